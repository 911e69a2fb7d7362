package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateChoicesRequiresAtLeastTwo(t *testing.T) {
	err := validateChoices([]ChoiceRequest{{Label: "A", IsCorrect: true}})
	require.Error(t, err)
}

func TestValidateChoicesRequiresExactlyOneCorrect(t *testing.T) {
	none := []ChoiceRequest{{Label: "A"}, {Label: "B"}}
	require.Error(t, validateChoices(none))

	two := []ChoiceRequest{{Label: "A", IsCorrect: true}, {Label: "B", IsCorrect: true}}
	require.Error(t, validateChoices(two))

	ok := []ChoiceRequest{{Label: "A", IsCorrect: true}, {Label: "B"}, {Label: "C"}}
	require.NoError(t, validateChoices(ok))
}
