package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "chat-relay/errors"
)

var testKey = []byte("unit_test_signing_key_please_rotate")

func Test_Verify_Valid_Token(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(testKey, "u-42", "Alice", time.Hour)
	req.NoError(err)

	principal, err := NewVerifier(testKey).Verify(token)
	req.NoError(err)
	req.Equal("u-42", principal.ID)
	req.Equal("Alice", principal.DisplayName)
}

func Test_Verify_Falls_Back_To_UserID_As_DisplayName(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(testKey, "u-42", "", time.Hour)
	req.NoError(err)

	principal, err := NewVerifier(testKey).Verify(token)
	req.NoError(err)
	req.Equal("u-42", principal.DisplayName)
}

func Test_Verify_Rejects_Garbage(t *testing.T) {
	req := require.New(t)

	_, err := NewVerifier(testKey).Verify("not-a-token")
	req.ErrorIs(err, apperrors.ErrUnauthenticated)
}

func Test_Verify_Rejects_Wrong_Key(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken([]byte("some_other_key_entirely_here"), "u-42", "Alice", time.Hour)
	req.NoError(err)

	_, err = NewVerifier(testKey).Verify(token)
	req.ErrorIs(err, apperrors.ErrUnauthenticated)
}

func Test_Verify_Rejects_Expired(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(testKey, "u-42", "Alice", -time.Minute)
	req.NoError(err)

	_, err = NewVerifier(testKey).Verify(token)
	req.ErrorIs(err, apperrors.ErrUnauthenticated)
}
