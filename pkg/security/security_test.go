package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgonHashAndCompare(t *testing.T) {
	a := NewArgon()
	a.Memory = 1024
	a.Iterations = 1

	hash, err := a.Hash("hunter22")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=2$"))

	ok, err := a.Compare("hunter22", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Compare("hunter23", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgonCompareRejectsGarbage(t *testing.T) {
	_, err := NewArgon().Compare("x", "$2a$10$notargon")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestNewCodeRange(t *testing.T) {
	for range 1000 {
		c, err := NewCode()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, c, CodeMin)
		assert.LessOrEqual(t, c, CodeMax)
	}
}

func TestTokensRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tk := NewTokens("secret", time.Hour)
	tk.Now = func() time.Time { return now }

	raw, err := tk.Issue("user-1", "a@x.com")
	require.NoError(t, err)

	claims, err := tk.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)

	tk.Now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = tk.Parse(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokensRejectsOtherSecret(t *testing.T) {
	raw, err := NewTokens("one", time.Hour).Issue("user-1", "a@x.com")
	require.NoError(t, err)

	_, err = NewTokens("two", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
