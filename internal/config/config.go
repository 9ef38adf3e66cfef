package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/markis/gh-minigpt/internal/stream"
)

const (
	configDirName = "minigpt"
	defaultConfig = ".config"
)

var configFiles = []string{
	"config.yaml",
	"config.yml",
}

// Prompt is a predefined instruction exposed as a subcommand.
type Prompt struct {
	Prompt string `yaml:"prompt"`
	Model  string `yaml:"model"`
}

// RenderConfig controls how the final completion is printed.
type RenderConfig struct {
	Format string `yaml:"format" default:"markdown"`
	Theme  string `yaml:"theme" default:"dark"`
	Wrap   int    `yaml:"wrap" default:"120"`
}

// StreamConfig holds the caller policy handed to the stream session.
type StreamConfig struct {
	CancelPolicy   string `yaml:"cancel_policy" default:"partial"`
	ExcerptLength  int    `yaml:"excerpt_length" default:"30"`
	StripCodeFence bool   `yaml:"strip_code_fence"`
	ChunkSize      int    `yaml:"chunk_size" default:"4096"`
}

// Config represents the structure of the configuration file used by the application.
type Config struct {
	Model          string            `yaml:"model" default:"gpt-3.5-turbo"`
	AlternateModel string            `yaml:"alternate_model" default:"gpt-4"`
	APIBase        string            `yaml:"api_base" default:"https://api.openai.com/v1"`
	APIKeyEnv      string            `yaml:"api_key_env" default:"OPENAI_API_KEY"`
	APIKey         string            `yaml:"api_key"`
	Timeout        time.Duration     `yaml:"timeout" default:"60s"`
	Prompts        map[string]Prompt `yaml:"prompts"`
	Render         RenderConfig      `yaml:"render"`
	Stream         StreamConfig      `yaml:"stream"`
}

// configResult is a struct used to return the configuration and any error that occurs during loading.
type configResult struct {
	config *Config
	err    error
}

// newDefaultConfig creates a configuration with every default applied.
func newDefaultConfig() *Config {
	cfg := &Config{Prompts: map[string]Prompt{}}
	if err := defaults.Set(cfg); err != nil {
		// Only reachable with a malformed default tag.
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return newDefaultConfig()
}

// CancelPolicy returns the parsed stream cancel policy.
func (c *Config) CancelPolicy() stream.CancelPolicy {
	p, _ := stream.ParseCancelPolicy(c.Stream.CancelPolicy)
	return p
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("model must not be empty"))
	}
	if c.APIBase == "" {
		errs = append(errs, errors.New("api_base must not be empty"))
	}
	if _, ok := stream.ParseCancelPolicy(c.Stream.CancelPolicy); !ok {
		errs = append(errs, fmt.Errorf("stream.cancel_policy must be \"partial\" or \"empty\", got %q", c.Stream.CancelPolicy))
	}
	if c.Stream.ExcerptLength < 0 {
		errs = append(errs, fmt.Errorf("stream.excerpt_length must not be negative, got %d", c.Stream.ExcerptLength))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	return errors.Join(errs...)
}

// getConfigPath retrieves the path to the configuration directory based on the XDG_CONFIG_HOME environment variable.
func getConfigPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(home, defaultConfig)
	}

	return filepath.Join(configHome, configDirName), nil
}

// tryLoadConfig attempts to load a configuration file from the specified path.
func tryLoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := newDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Prompts == nil {
		cfg.Prompts = map[string]Prompt{}
	}

	return cfg, nil
}

// LoadConfig loads the configuration, with a timeout. An explicit path must
// exist; otherwise the user's config directory is searched and defaults are
// used when nothing is found.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := make(chan configResult, 1)

	go func() {
		cfg, err := loadConfigFiles(ctx, path)
		if err == nil {
			err = cfg.Validate()
		}
		result <- configResult{config: cfg, err: err}
	}()

	done := ctx.Done()
	select {
	case <-done:
		return nil, ctx.Err()
	case r := <-result:
		if r.err != nil {
			return nil, r.err
		}
		return r.config, nil
	}
}

// loadConfigFiles loads configuration files from the user's home directory.
func loadConfigFiles(ctx context.Context, path string) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error before loading config: %w", err)
	}

	if path != "" {
		cfg, err := tryLoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		return cfg, nil
	}

	configDir, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Return default config early if directory doesn't exist
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return newDefaultConfig(), nil
	}

	for _, filename := range configFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg, err := tryLoadConfig(filepath.Join(configDir, filename))
		if err == nil {
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config from %s: %w", filename, err)
		}
	}

	return newDefaultConfig(), nil
}
