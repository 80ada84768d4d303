package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Conventional environment variables bound on top of the OPENAPEX_
// prefix, so existing provider credentials are picked up unchanged.
var envBindings = map[string]string{
	"providers.openrouter_api_key": "OPENROUTER_API_KEY",
	"providers.groq_api_key":       "GROQ_API_KEY",
	"providers.gemini_api_key":     "GEMINI_API_KEY",
	"providers.hf_api_token":       "HF_API_TOKEN",
	"providers.nvidia_api_key":     "NVIDIA_API_KEY",
	"providers.anthropic_api_key":  "ANTHROPIC_API_KEY",
	"providers.openai_api_key":     "OPENAI_API_KEY",
	"providers.ollama_base_url":    "OLLAMA_BASE_URL",
}

// Loader reads the configuration file and environment.
type Loader struct {
	configPath string
}

// NewLoader creates a loader. An empty path means the default
// ~/.openapex/openapex.json.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load merges defaults, the config file (when present) and environment
// variables, then fills derived paths.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix("OPENAPEX")
	v.AutomaticEnv()
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := DefaultConfig()
	if _, statErr := os.Stat(configPath); statErr == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".openapex")
	}
	if cfg.Memory.DBPath == "" {
		cfg.Memory.DBPath = filepath.Join(cfg.DataDir, "memory.db")
	}
	if cfg.Memory.IdentityPath == "" {
		cfg.Memory.IdentityPath = filepath.Join(cfg.DataDir, "identity.json")
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "openapex.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) resolvePath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".openapex", "openapex.json"), nil
}

// Load is a convenience wrapper for a one-shot read.
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
