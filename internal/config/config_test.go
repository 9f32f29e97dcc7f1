package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef"

// clearEnv blanks every key so values from the developer's shell do not
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "http://localhost:5173", cfg.ClientOrigin)
	assert.Equal(t, "data/halfbake.db", cfg.DatabaseURL)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenLifetime())
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, 120, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.GitHubEnabled())
	assert.Equal(t, "http://localhost:8080/api/auth/github/callback", cfg.GitHubCallbackURL)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_EXPIRES_IN", "3600")
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/halfbake")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("RATE_LIMIT_MAX", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("GITHUB_CALLBACK_URL", "https://halfbake.dev/api/auth/github/callback")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.TokenLifetime())
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "postgres://u:p@localhost/halfbake", cfg.DatabaseURL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 10, cfg.RateLimitMax)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.GitHubEnabled())
	assert.Equal(t, "https://halfbake.dev/api/auth/github/callback", cfg.GitHubCallbackURL)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET="+testSecret+"\nPORT=7000\n"), 0o600))
	t.Setenv("PORT", "7100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, testSecret, cfg.JWTSecret)
	assert.Equal(t, 7100, cfg.Port, "the process environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"short secret", map[string]string{"JWT_SECRET": "too-short"}},
		{"non-numeric lifetime", map[string]string{"JWT_SECRET": testSecret, "JWT_EXPIRES_IN": "7d"}},
		{"zero lifetime", map[string]string{"JWT_SECRET": testSecret, "JWT_EXPIRES_IN": "0"}},
		{"port out of range", map[string]string{"JWT_SECRET": testSecret, "PORT": "70000"}},
		{"negative rate limit", map[string]string{"JWT_SECRET": testSecret, "RATE_LIMIT_MAX": "-1"}},
		{"bad window", map[string]string{"JWT_SECRET": testSecret, "RATE_LIMIT_WINDOW": "soon"}},
		{"bad log level", map[string]string{"JWT_SECRET": testSecret, "LOG_LEVEL": "loud"}},
		{"bad log format", map[string]string{"JWT_SECRET": testSecret, "LOG_FORMAT": "xml"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(noEnvFile(t))

			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
