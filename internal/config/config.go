// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	ListenAddr         string        `mapstructure:"LISTEN_ADDR"`
	DBURL              string        `mapstructure:"DB_URL"`
	EngineURL          string        `mapstructure:"ENGINE_URL"`
	WebhookCallbackURL string        `mapstructure:"WEBHOOK_CALLBACK_URL"`
	BillingSecret      string        `mapstructure:"BILLING_WEBHOOK_SECRET"`
	FreeTierRepoLimit  int           `mapstructure:"FREE_TIER_REPO_LIMIT"`
	ReviewTimeout      time.Duration `mapstructure:"REVIEW_TIMEOUT"`
	JobQueueSize       int           `mapstructure:"JOB_QUEUE_SIZE"`
	JobMaxAttempts     int           `mapstructure:"JOB_MAX_ATTEMPTS"`
	JobRetryBackoff    time.Duration `mapstructure:"JOB_RETRY_BACKOFF"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("FREE_TIER_REPO_LIMIT", 5)
	viper.SetDefault("REVIEW_TIMEOUT", "25s")
	viper.SetDefault("JOB_QUEUE_SIZE", 64)
	viper.SetDefault("JOB_MAX_ATTEMPTS", 3)
	viper.SetDefault("JOB_RETRY_BACKOFF", "5s")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.EngineURL == "" {
		return nil, errors.New("ENGINE_URL is a required configuration field")
	}
	if cfg.WebhookCallbackURL == "" {
		return nil, errors.New("WEBHOOK_CALLBACK_URL is a required configuration field")
	}
	if cfg.FreeTierRepoLimit <= 0 {
		return nil, errors.New("FREE_TIER_REPO_LIMIT must be a positive integer")
	}

	return &cfg, nil
}
