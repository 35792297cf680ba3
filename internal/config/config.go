// Package config handles loading and validation of application configuration
// from environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment represents the application's running environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	// Production refuses to start with a JWT secret shorter than this.
	minJWTSecretLength = 32

	// devJWTSecret signs tokens in development when no secret is configured.
	devJWTSecret = "centsible-dev-secret-not-for-production"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT"`
	Port           string      `mapstructure:"PORT"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS"`
}

// DatabaseConfig holds SQLite database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file. Parent directories are created on
	// startup when missing.
	Path string `mapstructure:"PATH"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"LEVEL"`
	// Format is "text" for colorized development output or "json".
	Format string `mapstructure:"FORMAT"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server   ServerConfig   `mapstructure:"SERVER"`
	Database DatabaseConfig `mapstructure:"DATABASE"`
	Auth     AuthConfig     `mapstructure:"AUTH"`
	Log      LogConfig      `mapstructure:"LOG"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// Load reads configuration with Viper: defaults first, then an optional
// config.yaml in the working directory, then CENTSIBLE_-prefixed environment
// variables (e.g. CENTSIBLE_SERVER_PORT, CENTSIBLE_AUTH_JWT_SECRET), which
// win over everything else.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DATABASE.PATH", "data/centsible.db")
	v.SetDefault("AUTH.JWT_SECRET", devJWTSecret)
	v.SetDefault("AUTH.TOKEN_TTL", "24h")
	v.SetDefault("LOG.LEVEL", "info")
	v.SetDefault("LOG.FORMAT", "text")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("CENTSIBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks if the loaded configuration values are valid.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	switch cfg.Server.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unknown environment %q", cfg.Server.Environment)
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if cfg.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if cfg.IsProduction() {
		if cfg.Auth.JWTSecret == devJWTSecret {
			return fmt.Errorf("JWT secret must be set in production")
		}
		if len(cfg.Auth.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT secret must be at least %d characters long", minJWTSecretLength)
		}
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}

	return nil
}
