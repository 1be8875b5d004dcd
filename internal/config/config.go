package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr           string        `yaml:"addr"`
	Env            string        `yaml:"env"`
	LogLevel       string        `yaml:"log_level"`
	DatabaseURL    string        `yaml:"database_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    string        `yaml:"cors_allow_origins"`
	JWT            JWTConfig     `yaml:"jwt"`
}

// JWTConfig describes how externally issued bearer tokens are verified.
type JWTConfig struct {
	Secret    string        `yaml:"secret"`
	Issuer    string        `yaml:"issuer"`
	Audience  string        `yaml:"audience"`
	ClockSkew time.Duration `yaml:"clock_skew"`
}

var ErrMissingSecret = errors.New("JWT_SECRET is not set")

func defaults() Config {
	return Config{
		Addr:           ":8080",
		Env:            "production",
		LogLevel:       "info",
		RequestTimeout: 10 * time.Second,
		CORSOrigins:    "*",
		JWT:            JWTConfig{ClockSkew: 5 * time.Minute},
	}
}

// Load reads configuration from an optional .env file, an optional YAML file
// named by CONFIG_FILE and the process environment, in increasing priority.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.Addr, "ZYNAPSE_ADDR")
	setString(&c.Env, "APP_ENV")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.CORSOrigins, "CORS_ALLOW_ORIGINS")
	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.JWT.Issuer, "JWT_ISSUER")
	setString(&c.JWT.Audience, "JWT_AUDIENCE")

	if err := setDuration(&c.RequestTimeout, "REQUEST_TIMEOUT"); err != nil {
		return err
	}
	return setDuration(&c.JWT.ClockSkew, "JWT_CLOCK_SKEW")
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return ErrMissingSecret
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.JWT.ClockSkew < 0 {
		return fmt.Errorf("jwt clock skew must not be negative, got %s", c.JWT.ClockSkew)
	}
	return nil
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
