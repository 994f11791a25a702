// Package config loads runtime configuration from the environment and an
// optional agent_config.yaml overlay.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Validate when no API key is configured.
var ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY not set; export it or add api_key to config/agent_config.yaml")

// overlayPath is the optional per-project configuration file. Keys present
// in it override the environment, matching the env-then-file precedence of
// the rest of the tooling.
const overlayPath = "config/agent_config.yaml"

// Config carries everything the CLI needs to wire the agent together.
type Config struct {
	APIKey        string `envconfig:"ANTHROPIC_API_KEY" yaml:"api_key"`
	Model         string `envconfig:"LOOPWISE_MODEL" yaml:"model"`
	DefaultConfig string `envconfig:"LOOPWISE_CONFIG" default:"config/prompts.yaml" yaml:"default_config"`
	Headless      bool   `envconfig:"LOOPWISE_HEADLESS" yaml:"headless"`

	Store         string `envconfig:"LOOPWISE_STORE" default:"file" yaml:"store"`
	StateDir      string `envconfig:"LOOPWISE_STATE_DIR" default:".loopwise/sessions" yaml:"state_dir"`
	RedisAddr     string `envconfig:"LOOPWISE_REDIS_ADDR" default:"localhost:6379" yaml:"redis_addr"`
	RedisPassword string `envconfig:"LOOPWISE_REDIS_PASSWORD" yaml:"redis_password"`
	RedisDB       int    `envconfig:"LOOPWISE_REDIS_DB" yaml:"redis_db"`

	LogLevel    string `envconfig:"LOOPWISE_LOG_LEVEL" default:"info" yaml:"log_level"`
	ListenAddr  string `envconfig:"LOOPWISE_LISTEN_ADDR" default:":8080" yaml:"listen_addr"`
	TokenBudget int    `envconfig:"LOOPWISE_TOKEN_BUDGET" yaml:"token_budget"`
}

// Load reads .env, the process environment, and the optional overlay file,
// in that order of increasing precedence.
func Load() (*Config, error) {
	// A missing .env is fine; a malformed one is not.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := cfg.applyOverlay(overlayPath); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyOverlay(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Validate reports configuration errors that must stop startup.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.Store {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("unknown store %q (want file, redis, or memory)", c.Store)
	}
	return nil
}
