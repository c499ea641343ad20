package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthKey() string {
	return base64.StdEncoding.EncodeToString([]byte(
		"11111111-2222-3333-4444-555555555555:aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
	))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gigachat", cfg.Backend)
	assert.Equal(t, "PERS", cfg.APIType)
	assert.Equal(t, "./data/gigachat_chats.json", cfg.StorePath)
	assert.Equal(t, 100, cfg.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.True(t, cfg.WatchStore)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestScope(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "GIGACHAT_API_PERS", cfg.Scope())

	cfg.APIType = "B2B"
	assert.Equal(t, "GIGACHAT_API_B2B", cfg.Scope())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.AuthKey = testAuthKey()
		return cfg
	}

	t.Run("valid gigachat", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("missing auth key", func(t *testing.T) {
		cfg := valid()
		cfg.AuthKey = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GIGACHAT_AUTH_TOKEN")
	})

	t.Run("malformed auth key", func(t *testing.T) {
		cfg := valid()
		cfg.AuthKey = "not-a-key"
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid api type", func(t *testing.T) {
		cfg := valid()
		cfg.APIType = "ENTERPRISE"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api_type")
	})

	t.Run("unsupported backend", func(t *testing.T) {
		cfg := valid()
		cfg.Backend = "llama"
		assert.Error(t, cfg.Validate())
	})

	t.Run("openai requires api key", func(t *testing.T) {
		cfg := valid()
		cfg.Backend = "openai"
		cfg.OpenAI.APIKey = ""
		assert.Error(t, cfg.Validate())

		cfg.OpenAI.APIKey = "sk-test"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("non-positive max tokens", func(t *testing.T) {
		cfg := valid()
		cfg.MaxTokens = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty store path", func(t *testing.T) {
		cfg := valid()
		cfg.StorePath = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestProviderSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuthKey = testAuthKey()
	cfg.APIType = "CORP"
	cfg.RequestTimeout = 5 * time.Second

	s := cfg.ProviderSettings()
	assert.Equal(t, "gigachat", s.Backend)
	assert.Equal(t, cfg.AuthKey, s.GigaChat.AuthKey)
	assert.Equal(t, "GIGACHAT_API_CORP", s.GigaChat.Scope)
	assert.Equal(t, 5*time.Second, s.GigaChat.Timeout)
	assert.True(t, s.GigaChat.InsecureSkipVerify)
}
