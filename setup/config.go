// Package setup loads application configuration: YAML defaults first, then a
// .env file if present, then environment variables such as BM_SERVER_ADDR or
// BM_ADMIN_JWT_SECRET (prefix, section, field).
package setup

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix envconfig strips from environment variables.
const EnvPrefix = "BM"

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Markets  MarketsConfig  `yaml:"markets"`
	Admin    AdminConfig    `yaml:"admin"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	AllowedOrigins  []string      `yaml:"allowed_origins" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	// RequestsPerSecond and Burst configure the per-client rate limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second" split_words:"true" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `yaml:"dsn" validate:"required"`
}

type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

type LedgerConfig struct {
	// MaxAttempts bounds requote-and-commit retries on a stale market state.
	MaxAttempts int `yaml:"max_attempts" split_words:"true" validate:"gte=1,lte=100"`
}

type MarketsConfig struct {
	DefaultLiquidity uint64 `yaml:"default_liquidity" split_words:"true" validate:"gt=0"`
	StartingBalance  uint64 `yaml:"starting_balance" split_words:"true"`
	SeedDemo         bool   `yaml:"seed_demo" split_words:"true"`
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret" split_words:"true" validate:"required,min=16"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			AllowedOrigins:    []string{"http://localhost:5173"},
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "binarymarket.db"},
		Log:      LogConfig{Level: "info"},
		Ledger:   LedgerConfig{MaxAttempts: 5},
		Markets: MarketsConfig{
			DefaultLiquidity: 100_000_000_000,
			StartingBalance:  10_000_000_000,
		},
	}
}

// LoadConfig reads path (optional; a missing file keeps the defaults), loads
// .env, applies BM_* environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// .env is optional; production sets real environment variables
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
