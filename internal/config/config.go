// Package config defines the explicit configuration struct passed into the
// provider client, repository and manager at construction time. Nothing
// reads the environment ad hoc; everything flows through Load.
package config

import (
	"fmt"
	"time"

	"github.com/gigatui/gigatui/pkg/provider"
)

// Short scope variants accepted by the GigaChat auth endpoint.
var validAPITypes = []string{"PERS", "B2B", "CORP"}

// Config is the full application configuration.
type Config struct {
	// Backend selects the chat provider: "gigachat" (default) or "openai".
	Backend string `json:"backend" mapstructure:"backend"`

	// AuthKey is the long-lived GigaChat credential (base64 of
	// client_id:client_secret).
	AuthKey string `json:"auth_key" mapstructure:"auth_key"`

	// APIType is the short scope variant: PERS, B2B or CORP.
	APIType string `json:"api_type" mapstructure:"api_type"`

	// StorePath is the chat store JSON file.
	StorePath string `json:"chats_json" mapstructure:"chats_json"`

	// MaxTokens is the default generation cap for new sessions.
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`

	// SystemPrompt, when set, opens every new session.
	SystemPrompt string `json:"system_prompt" mapstructure:"system_prompt"`

	// RequestTimeout bounds every provider call.
	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`

	// InsecureSkipVerify disables TLS verification towards GigaChat.
	InsecureSkipVerify bool `json:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`

	// OAuthURL and BaseURL override the production GigaChat endpoints.
	OAuthURL string `json:"oauth_url" mapstructure:"oauth_url"`
	BaseURL  string `json:"base_url" mapstructure:"base_url"`

	// WatchStore enables the fsnotify watcher on the store file.
	WatchStore bool `json:"watch_store" mapstructure:"watch_store"`

	OpenAI  OpenAIConfig  `json:"openai" mapstructure:"openai"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	APIKey  string `json:"api_key" mapstructure:"api_key"`
	BaseURL string `json:"base_url" mapstructure:"base_url"`
	Model   string `json:"model" mapstructure:"model"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with defaults matching the original client:
// PERS scope, a 100-token generation cap and the chats file under ./data.
func DefaultConfig() *Config {
	return &Config{
		Backend:            "gigachat",
		APIType:            "PERS",
		StorePath:          "./data/gigachat_chats.json",
		MaxTokens:          100,
		RequestTimeout:     30 * time.Second,
		InsecureSkipVerify: true,
		WatchStore:         true,
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
	}
}

// Scope returns the full scope identifier sent to the auth endpoint.
func (c *Config) Scope() string {
	return "GIGACHAT_API_" + c.APIType
}

// Validate checks the configuration for the selected backend.
func (c *Config) Validate() error {
	switch c.Backend {
	case "", "gigachat":
		if c.AuthKey == "" {
			return fmt.Errorf("GIGACHAT_AUTH_TOKEN is required for the gigachat backend")
		}
		if !provider.IsAuthKey(c.AuthKey) {
			return fmt.Errorf("authorization key is not a base64 client_id:client_secret pair")
		}
		valid := false
		for _, t := range validAPITypes {
			if c.APIType == t {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid api_type %q (must be: PERS, B2B, CORP)", c.APIType)
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai api_key is required for the openai backend")
		}
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.StorePath == "" {
		return fmt.Errorf("chat store path cannot be empty")
	}
	return nil
}

// ProviderSettings maps the config onto the provider factory input.
func (c *Config) ProviderSettings() provider.Settings {
	return provider.Settings{
		Backend: c.Backend,
		GigaChat: provider.GigaChatConfig{
			AuthKey:            c.AuthKey,
			Scope:              c.Scope(),
			OAuthURL:           c.OAuthURL,
			BaseURL:            c.BaseURL,
			Timeout:            c.RequestTimeout,
			InsecureSkipVerify: c.InsecureSkipVerify,
		},
		OpenAI: provider.OpenAIConfig{
			APIKey:  c.OpenAI.APIKey,
			BaseURL: c.OpenAI.BaseURL,
			Model:   c.OpenAI.Model,
		},
	}
}
