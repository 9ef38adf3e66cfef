package client

import (
	"errors"
	"fmt"
	"os"

	"github.com/markis/gh-minigpt/internal/config"
)

// ErrNoAPIKey is returned when neither the environment nor the config file
// provides an API key.
var ErrNoAPIKey = errors.New("no API key found")

// apiKey retrieves the API key from the configured environment variable,
// falling back to the config file.
func apiKey(cfg *config.Config) (string, error) {
	// Check environment variables first - fast path
	if cfg.APIKeyEnv != "" {
		if key := os.Getenv(cfg.APIKeyEnv); key != "" {
			return key, nil
		}
	}

	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}

	if cfg.APIKeyEnv != "" {
		return "", fmt.Errorf("%w: set %s or api_key in the config file", ErrNoAPIKey, cfg.APIKeyEnv)
	}
	return "", fmt.Errorf("%w: set api_key in the config file", ErrNoAPIKey)
}
