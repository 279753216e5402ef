package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, "refreshToken", cfg.Auth.RefreshCookieName)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.False(t, cfg.App.IsProduction())
	assert.Contains(t, cfg.CORS.AllowedOrigins, "http://localhost:5500")
}

func TestLoadParsesOriginList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestValidateRejectsWildcardOrigin(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "*")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORS_ALLOWED_ORIGINS")
}

func TestValidateRejectsDevSecretsInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "development token secrets")
}

func TestValidateRejectsSharedSecret(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "same")
	t.Setenv("REFRESH_TOKEN_SECRET", "same")

	_, err := Load()
	require.Error(t, err)
}

func TestValidateRequiresBootstrapPair(t *testing.T) {
	t.Setenv("ADMIN_BOOTSTRAP_EMAIL", "root@example.com")

	_, err := Load()
	require.Error(t, err)
}

func TestInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")

	_, err := Load()
	require.Error(t, err)
}
