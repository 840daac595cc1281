// Package config loads runtime configuration from an optional docther.yaml,
// DOCTHER_-prefixed environment variables and the conventional provider env
// vars.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/docther/docther/pkg/models"
)

// Model configures the chat model and conversation shape.
type Model struct {
	AnthropicAPIKey string  `mapstructure:"anthropic_api_key"`
	Name            string  `mapstructure:"name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	HistoryWindow   int     `mapstructure:"history_window"`
}

// Transcription configures the voice note transcription service.
type Transcription struct {
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	Model        string `mapstructure:"model"`
	Language     string `mapstructure:"language"`
}

// Config is the full runtime configuration. ToolServers holds one command
// line per MCP server to spawn.
type Config struct {
	Model         Model         `mapstructure:"model"`
	DatabaseURL   string        `mapstructure:"database_url"`
	ToolServers   []string      `mapstructure:"tool_servers"`
	Transcription Transcription `mapstructure:"transcription"`
}

// Load reads the configuration. path may be empty, in which case docther.yaml
// is looked up in the working directory and ~/.docther, and its absence is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("model.anthropic_api_key", "")
	v.SetDefault("model.name", models.DefaultAnthropicModel)
	v.SetDefault("model.max_tokens", 4000)
	v.SetDefault("model.temperature", 0.1)
	v.SetDefault("model.history_window", 20)
	v.SetDefault("database_url", "")
	v.SetDefault("tool_servers", []string{})
	v.SetDefault("transcription.openai_api_key", "")
	v.SetDefault("transcription.model", "")
	v.SetDefault("transcription.language", "")

	v.SetEnvPrefix("DOCTHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("docther")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.docther")
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// Fall back to the conventional provider variables.
	if cfg.Model.AnthropicAPIKey == "" {
		cfg.Model.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.Transcription.OpenAIAPIKey == "" {
		cfg.Transcription.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	return &cfg, nil
}
