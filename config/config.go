// Package config loads server settings from a YAML file and SKYE_
// environment variables, env taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the daemon needs to start.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `mapstructure:"addr"`

	// AnthropicAPIKey authenticates against the Anthropic API. The SDK
	// also honors ANTHROPIC_API_KEY directly.
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`

	// Model is the chat model; ExtractionModel defaults to Model.
	Model           string `mapstructure:"model"`
	ExtractionModel string `mapstructure:"extraction_model"`

	// MaxTokens bounds chat responses.
	MaxTokens int64 `mapstructure:"max_tokens"`

	// RedisURL enables the Redis checkpoint store when set; empty keeps
	// checkpoints in process memory.
	RedisURL   string        `mapstructure:"redis_url"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	// CatalogPath seeds the content catalog from a JSON file when set.
	CatalogPath string `mapstructure:"catalog_path"`

	// EmbedderDims sizes the mock embedder; ignored when the ONNX
	// embedder is compiled in and configured.
	EmbedderDims int `mapstructure:"embedder_dims"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from the optional file path and the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", ":8080")
	v.SetDefault("model", "claude-sonnet-4-20250514")
	v.SetDefault("max_tokens", 1200)
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("embedder_dims", 384)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("SKYE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.ExtractionModel == "" {
		cfg.ExtractionModel = cfg.Model
	}
	return &cfg, nil
}
