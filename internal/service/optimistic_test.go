package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptimisticCommandAppliesThenPersists(t *testing.T) {
	var steps []string
	cmd := OptimisticCommand{
		Apply:   func() { steps = append(steps, "apply") },
		Persist: func() error { steps = append(steps, "persist"); return nil },
		Revert:  func() { steps = append(steps, "revert") },
	}

	require.NoError(t, cmd.Run())
	require.Equal(t, []string{"apply", "persist"}, steps)
}

func TestOptimisticCommandRevertsOnPersistFailure(t *testing.T) {
	var steps []string
	failure := errors.New("persist failed")
	cmd := OptimisticCommand{
		Apply:   func() { steps = append(steps, "apply") },
		Persist: func() error { steps = append(steps, "persist"); return failure },
		Revert:  func() { steps = append(steps, "revert") },
	}

	err := cmd.Run()
	require.ErrorIs(t, err, failure)
	require.Equal(t, []string{"apply", "persist", "revert"}, steps)
}

func TestOptimisticCommandWithoutOptionalHooks(t *testing.T) {
	cmd := OptimisticCommand{
		Persist: func() error { return errors.New("boom") },
	}
	require.Error(t, cmd.Run())

	cmd = OptimisticCommand{Persist: func() error { return nil }}
	require.NoError(t, cmd.Run())
}
