package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "mailkeep/pkg/domain-errors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("test-key", "mailkeep")

	token, err := svc.GenerateToken("boss@example.com", []string{"admin"}, time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "boss@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewService("test-key", "mailkeep")

	token, err := svc.GenerateToken("boss@example.com", []string{"admin"}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	token, err := NewService("key-a", "mailkeep").GenerateToken("boss@example.com", nil, time.Minute)
	require.NoError(t, err)

	_, err = NewService("key-b", "mailkeep").ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestIsAdmin(t *testing.T) {
	assert.False(t, (&Claims{Privileges: []string{"backup"}}).IsAdmin())
	assert.True(t, (&Claims{Privileges: []string{"backup", "admin"}}).IsAdmin())
}
