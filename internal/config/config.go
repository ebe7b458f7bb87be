package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Port                 string         `mapstructure:"PORT" validate:"required"`
	Origin               string         `mapstructure:"ORIGIN"`
	Environment          string         `mapstructure:"APP_ENV" validate:"oneof=development test production"`
	LogLevel             string         `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	JWTSecret            string         `mapstructure:"JWT_SECRET" validate:"required"`
	JWTExpirationMinutes int            `mapstructure:"JWT_EXPIRATION_MINUTES" validate:"gt=0"`
	ClinicTimezone       string         `mapstructure:"CLINIC_TIMEZONE" validate:"required"`
	Database             DatabaseConfig `mapstructure:",squash"`
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string `mapstructure:"DB_HOST" validate:"required"`
	Port     string `mapstructure:"DB_PORT" validate:"required"`
	Username string `mapstructure:"DB_USERNAME" validate:"required"`
	Password string `mapstructure:"DB_PASSWORD"`
	Name     string `mapstructure:"DB_NAME" validate:"required"`
}

var keys = []string{
	"PORT", "ORIGIN", "APP_ENV", "LOG_LEVEL",
	"JWT_SECRET", "JWT_EXPIRATION_MINUTES", "CLINIC_TIMEZONE",
	"DB_HOST", "DB_PORT", "DB_USERNAME", "DB_PASSWORD", "DB_NAME",
}

// LoadConfig loads configuration from environment variables. The .env file,
// if any, is expected to be loaded into the environment by the caller.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "3001")
	v.SetDefault("ORIGIN", "http://localhost:4200")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "default_jwt_secret")
	v.SetDefault("JWT_EXPIRATION_MINUTES", 15)
	v.SetDefault("CLINIC_TIMEZONE", "Local")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "hospital")

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE: %w", err)
	}
	if cfg.IsProduction() && cfg.JWTSecret == "default_jwt_secret" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

// DSN builds the MySQL data source name.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Name)
}

// Location resolves the clinic time zone used to place slots on the clock.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.ClinicTimezone)
}

func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// JWTExpiration returns the access token lifetime.
func (c *Config) JWTExpiration() time.Duration {
	return time.Duration(c.JWTExpirationMinutes) * time.Minute
}
