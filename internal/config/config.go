// Package config loads the server configuration from the environment.
//
// Values come from process environment variables, optionally seeded from
// a .env file. A variable already set in the environment always wins over
// the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const minSecretLength = 16

// Config is the complete server configuration.
type Config struct {
	Port         int    `mapstructure:"PORT"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`

	JWTSecret    string `mapstructure:"JWT_SECRET"`
	JWTExpiresIn int    `mapstructure:"JWT_EXPIRES_IN"` // seconds
	CookieSecure bool   `mapstructure:"COOKIE_SECURE"`

	RateLimitMax    int           `mapstructure:"RATE_LIMIT_MAX"`
	RateLimitWindow time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	GitHubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `mapstructure:"GITHUB_CALLBACK_URL"`
}

var defaults = map[string]any{
	"PORT":                 8080,
	"CLIENT_ORIGIN":        "http://localhost:5173",
	"DATABASE_URL":         "data/halfbake.db",
	"JWT_SECRET":           "",
	"JWT_EXPIRES_IN":       604800,
	"COOKIE_SECURE":        false,
	"RATE_LIMIT_MAX":       120,
	"RATE_LIMIT_WINDOW":    time.Minute,
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "text",
	"GITHUB_CLIENT_ID":     "",
	"GITHUB_CLIENT_SECRET": "",
	"GITHUB_CALLBACK_URL":  "",
}

// Load reads the configuration. envFiles are loaded first when they exist;
// with no arguments ".env" is tried. A missing file is not an error, a
// malformed one is.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding environment: %w", err)
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET is required")
	case len(c.JWTSecret) < minSecretLength:
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	case c.JWTExpiresIn <= 0:
		return fmt.Errorf("JWT_EXPIRES_IN must be a positive number of seconds, got %d", c.JWTExpiresIn)
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	case c.DatabaseURL == "":
		return errors.New("DATABASE_URL must not be empty")
	case c.RateLimitMax < 0:
		return fmt.Errorf("RATE_LIMIT_MAX must not be negative, got %d", c.RateLimitMax)
	case c.RateLimitWindow <= 0:
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// TokenLifetime is JWT_EXPIRES_IN as a duration.
func (c *Config) TokenLifetime() time.Duration {
	return time.Duration(c.JWTExpiresIn) * time.Second
}

// GitHubEnabled reports whether both GitHub OAuth credentials are set.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SlogLevel parses LOG_LEVEL.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn, or error, got %q", c.LogLevel)
	}
	return level, nil
}
