package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyToken_RoundTrips(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	secret := []byte("test-secret")

	tok, err := issueToken(secret, "user-1", now)
	require.NoError(t, err)

	userID, err := verifyToken(secret, tok, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerifyToken_RejectsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	secret := []byte("test-secret")

	tok, err := issueToken(secret, "user-1", now)
	require.NoError(t, err)

	_, err = verifyToken(secret, tok, now.Add(sessionTokenTTL+time.Hour))
	assert.Error(t, err)
}

func TestVerifyToken_RejectsTamperedSignature(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	secret := []byte("test-secret")

	tok, err := issueToken(secret, "user-1", now)
	require.NoError(t, err)

	_, err = verifyToken([]byte("wrong-secret"), tok, now)
	assert.Error(t, err)
}

func TestVerifyToken_RejectsMalformedToken(t *testing.T) {
	_, err := verifyToken([]byte("s"), "not-a-token", time.Now())
	assert.Error(t, err)
}
