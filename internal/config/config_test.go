package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"CONFIG_FILE", "ZYNAPSE_ADDR", "APP_ENV", "LOG_LEVEL", "DATABASE_URL", "CORS_ALLOW_ORIGINS",
		"JWT_SECRET", "JWT_ISSUER", "JWT_AUDIENCE", "JWT_CLOCK_SKEW", "REQUEST_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.JWT.ClockSkew)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Empty(t, cfg.JWT.Issuer)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_MissingSecret(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "zynapse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
env: development
jwt:
  secret: from-file
  issuer: https://project.supabase.co/auth/v1
  audience: authenticated
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_AUDIENCE", "service_role")
	t.Setenv("REQUEST_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, "https://project.supabase.co/auth/v1", cfg.JWT.Issuer)
	assert.Equal(t, "service_role", cfg.JWT.Audience)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_CLOCK_SKEW", "five minutes")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_CLOCK_SKEW")
}
