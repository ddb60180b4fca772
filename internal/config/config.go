package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	// Remote service the session authenticates against.
	BaseURL           string `env:"BASE_URL"`
	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`

	// Persistence for the credential and the cached profile.
	StoreBackend            string `env:"STORE_BACKEND" default:"file"`
	DataDir                 string `env:"DATA_DIR" default:"./data"`
	RedisURL                string `env:"REDIS_URL"`
	CredentialEncryptionKey string `env:"CREDENTIAL_ENCRYPTION_KEY"`
	KeyNamespace            string `env:"KEY_NAMESPACE" default:"org.ruby-china.turbolinks-app"`

	DevicePlatform     string        `env:"DEVICE_PLATFORM" default:"ios"`
	UnreadPollInterval time.Duration `env:"UNREAD_POLL_INTERVAL" default:"2m"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"BASE_URL":            cfg.BaseURL,
		"OAUTH_CLIENT_ID":     cfg.OAuthClientID,
		"OAUTH_CLIENT_SECRET": cfg.OAuthClientSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	switch cfg.StoreBackend {
	case "file":
		if cfg.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required when STORE_BACKEND is file")
		}
	case "redis":
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND is redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be \"file\" or \"redis\", got %q", cfg.StoreBackend)
	}

	if cfg.CredentialEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.CredentialEncryptionKey)
		if err != nil {
			return fmt.Errorf("CREDENTIAL_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("CREDENTIAL_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	if cfg.UnreadPollInterval <= 0 {
		return fmt.Errorf("UNREAD_POLL_INTERVAL must be positive")
	}

	return nil
}
