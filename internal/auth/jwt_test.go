package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoyoungleee/say4team-eks/internal/config"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/user"
)

func TestTokenRoundTrip(t *testing.T) {
	cfg := &config.JWTConfig{Secret: "test-secret"}

	token, err := GenerateToken(cfg, "admin@test.com", user.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "admin@test.com", claims.Email)
	assert.Equal(t, user.RoleAdmin, claims.Role)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(&config.JWTConfig{Secret: "secret-a"}, "a@test.com", user.RoleUser)
	require.NoError(t, err)

	_, err = ParseToken(&config.JWTConfig{Secret: "secret-b"}, token)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken(&config.JWTConfig{Secret: "x"}, "not.a.token")
	assert.Error(t, err)
}
