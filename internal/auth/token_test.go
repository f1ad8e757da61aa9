package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)

	signed, err := tokens.Issue(Identity{UserID: 42, Email: "user@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	identity, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.UserID)
	assert.Equal(t, "user@example.com", identity.Email)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)

	issued := time.Unix(1_700_000_000, 0)
	tokens.now = func() time.Time { return issued }

	signed, err := tokens.Issue(Identity{UserID: 1, Email: "a@example.com"})
	require.NoError(t, err)

	// Two hours later the one-hour token is dead.
	tokens.now = func() time.Time { return issued.Add(2 * time.Hour) }

	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_WrongSecret(t *testing.T) {
	issuer := NewTokens(testSecret, time.Hour)
	verifier := NewTokens("another-secret-another-secret-xx", time.Hour)

	signed, err := issuer.Issue(Identity{UserID: 1, Email: "a@example.com"})
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Garbage(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)

	for _, bad := range []string{"", "not-a-token", "a.b.c"} {
		_, err := tokens.Verify(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", bad)
	}
}

func TestTokens_DefaultTTL(t *testing.T) {
	tokens := NewTokens(testSecret, 0)
	assert.Equal(t, DefaultTokenTTL, tokens.ttl)
}
