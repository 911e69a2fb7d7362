package util

import (
	"exam_prep_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	user := &model.User{Email: "stu@example.com", Role: model.Student}
	user.ID = 42

	token, err := GenerateJWT(user, "test-secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "test-secret")
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.UserID)
	require.Equal(t, model.Student, claims.Role)
	require.Equal(t, "stu@example.com", claims.Email)
}

func TestParseJWTWrongSecret(t *testing.T) {
	user := &model.User{Email: "stu@example.com", Role: model.Student}
	token, err := GenerateJWT(user, "secret-a", time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret-b")
	require.Error(t, err)
}

func TestParseJWTExpired(t *testing.T) {
	user := &model.User{Email: "stu@example.com", Role: model.Student}
	token, err := GenerateJWT(user, "test-secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "test-secret")
	require.Error(t, err)
}
