package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// defaultEnvFile mirrors the original client: a ./.env file is read into the
// environment before anything else, unless ENV_FILE_PATH points elsewhere.
const defaultEnvFile = "./.env"

// Loader handles configuration loading.
type Loader struct {
	configPath string
}

// NewLoader creates a loader. configPath may be empty, in which case
// $HOME/.gigatui/config.json is used when it exists.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load builds the configuration: defaults, then the optional JSON config
// file, then environment variables. Environment names keep the original
// client's contract (GIGACHAT_AUTH_TOKEN and friends).
func (l *Loader) Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigType("json")

	bindings := map[string]string{
		"auth_key":        "GIGACHAT_AUTH_TOKEN",
		"api_type":        "GIGACHAT_API_TYPE",
		"chats_json":      "GIGACHAT_CHATS_JSON",
		"max_tokens":      "GIGACHAT_MAX_TOKENS",
		"system_prompt":   "GIGACHAT_SYSTEM_PROMPT",
		"backend":         "GIGATUI_BACKEND",
		"logging.level":   "GIGATUI_LOG_LEVEL",
		"logging.file":    "GIGATUI_LOG_FILE",
		"openai.api_key":  "OPENAI_API_KEY",
		"openai.base_url": "OPENAI_BASE_URL",
		"openai.model":    "OPENAI_MODEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	configPath := l.ConfigPath()
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if l.configPath != "" {
			// An explicitly requested file must exist.
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// ConfigPath returns the effective config file path, which may not exist.
func (l *Loader) ConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".gigatui", "config.json")
}

func loadEnvFile() {
	path := os.Getenv("ENV_FILE_PATH")
	if path == "" {
		path = defaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	// Already-set variables win over the file.
	_ = godotenv.Load(path)
}

// Load is a convenience function that creates a loader and loads the config.
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
