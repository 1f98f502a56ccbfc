package myjwt

import (
	"testing"

	"SurfSense/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	conf := config.JwtConfig{Key: "k", Issuer: "surfsense"}
	tok, err := GenerateToken(conf, "user-1", "ann")
	require.NoError(t, err)

	claims, err := ParseToken(conf, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Uuid)
	assert.Equal(t, "ann", claims.Username)
}

func TestParseTokenRejectsWrongKeyOrIssuer(t *testing.T) {
	tok, err := GenerateToken(config.JwtConfig{Key: "k", Issuer: "a"}, "user-1", "")
	require.NoError(t, err)

	_, err = ParseToken(config.JwtConfig{Key: "other", Issuer: "a"}, tok)
	assert.Error(t, err)
	_, err = ParseToken(config.JwtConfig{Key: "k", Issuer: "b"}, tok)
	assert.Error(t, err)
}

func TestEmptyKey(t *testing.T) {
	_, err := GenerateToken(config.JwtConfig{}, "u", "")
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = ParseToken(config.JwtConfig{}, "x")
	assert.ErrorIs(t, err, ErrEmptyKey)
}
