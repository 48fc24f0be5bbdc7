package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret")

	token, expiresAt, err := tm.GenerateToken("reporting", []string{ScopeSlaRead}, time.Minute)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "reporting", claims.Service)
	assert.True(t, claims.HasScope(ScopeSlaRead))
	assert.False(t, claims.HasScope("sla:write"))
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a").GenerateToken("reporting", []string{ScopeSlaRead}, time.Minute)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b").ParseToken(token)
	assert.Error(t, err)
}

func TestGenerateTokenDefaultsTTL(t *testing.T) {
	tm := NewTokenManager("test-secret")
	_, expiresAt, err := tm.GenerateToken("reporting", []string{ScopeSlaRead}, 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := NewTokenManager("test-secret").ParseToken("not-a-token")
	assert.Error(t, err)
}
