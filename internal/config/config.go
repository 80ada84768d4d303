// Package config defines the openApex configuration and its loader.
package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/growup62/openapex/pkg/llm"
	"github.com/growup62/openapex/pkg/state"
)

// Config is the main openApex configuration.
type Config struct {
	Providers ProvidersConfig `json:"providers" mapstructure:"providers"`
	Models    ModelsConfig    `json:"models" mapstructure:"models"`
	Brain     BrainConfig     `json:"brain" mapstructure:"brain"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	Autonomy  AutonomyConfig  `json:"autonomy" mapstructure:"autonomy"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`

	// DataDir holds the memory database, identity file and logs.
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ProvidersConfig holds credentials for the LLM backends. Every field
// can also be supplied through its conventional environment variable.
type ProvidersConfig struct {
	OpenRouterAPIKey string `json:"openrouter_api_key" mapstructure:"openrouter_api_key"`
	GroqAPIKey       string `json:"groq_api_key" mapstructure:"groq_api_key"`
	GeminiAPIKey     string `json:"gemini_api_key" mapstructure:"gemini_api_key"`
	HFAPIToken       string `json:"hf_api_token" mapstructure:"hf_api_token"`
	NvidiaAPIKey     string `json:"nvidia_api_key" mapstructure:"nvidia_api_key"`
	AnthropicAPIKey  string `json:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	OpenAIAPIKey     string `json:"openai_api_key" mapstructure:"openai_api_key"`
	OllamaBaseURL    string `json:"ollama_base_url" mapstructure:"ollama_base_url"`
}

// ModelsConfig maps task types to model identifiers (prefixed form,
// e.g. "groq/llama-3.1-8b-instant").
type ModelsConfig struct {
	Reasoning   string `json:"reasoning" mapstructure:"reasoning"`
	Tooling     string `json:"tooling" mapstructure:"tooling"`
	SwarmWorker string `json:"swarm_worker" mapstructure:"swarm_worker"`
}

// BrainConfig tunes the cognitive loop.
type BrainConfig struct {
	MaxIterations  int `json:"max_iterations" mapstructure:"max_iterations"`
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// MemoryConfig configures the episodic store.
type MemoryConfig struct {
	DBPath         string `json:"db_path" mapstructure:"db_path"`
	IdentityPath   string `json:"identity_path" mapstructure:"identity_path"`
	EmbeddingModel string `json:"embedding_model" mapstructure:"embedding_model"`
}

// AutonomyConfig configures background self-initiated work.
type AutonomyConfig struct {
	Enabled         bool     `json:"enabled" mapstructure:"enabled"`
	IntervalSeconds int      `json:"interval_seconds" mapstructure:"interval_seconds"`
	Topics          []string `json:"topics" mapstructure:"topics"`
}

// LoggingConfig configures the zerolog construction.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the shipped defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			OllamaBaseURL: "http://localhost:11434",
		},
		Models: ModelsConfig{
			Reasoning:   llm.DefaultReasoningModel,
			Tooling:     llm.DefaultToolingModel,
			SwarmWorker: llm.DefaultSwarmWorkerModel,
		},
		Brain: BrainConfig{
			MaxIterations:  state.DefaultMaxIterations,
			TimeoutSeconds: 60,
		},
		Autonomy: AutonomyConfig{
			Enabled:         false,
			IntervalSeconds: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Validate checks invariants a loaded config must satisfy.
func (c *Config) Validate() error {
	if c.Brain.MaxIterations <= 0 {
		return fmt.Errorf("brain.max_iterations must be positive")
	}
	if c.Brain.TimeoutSeconds <= 0 {
		return fmt.Errorf("brain.timeout_seconds must be positive")
	}
	if c.Autonomy.Enabled && c.Autonomy.IntervalSeconds <= 0 {
		return fmt.Errorf("autonomy.interval_seconds must be positive when autonomy is enabled")
	}
	return nil
}

// RouterConfig translates the configuration into the provider gateway's
// wiring.
func (c *Config) RouterConfig(logger zerolog.Logger) llm.Config {
	return llm.Config{
		Credentials: llm.Credentials{
			OpenRouter:    c.Providers.OpenRouterAPIKey,
			Groq:          c.Providers.GroqAPIKey,
			Gemini:        c.Providers.GeminiAPIKey,
			HuggingFace:   c.Providers.HFAPIToken,
			Nvidia:        c.Providers.NvidiaAPIKey,
			Anthropic:     c.Providers.AnthropicAPIKey,
			OllamaBaseURL: c.Providers.OllamaBaseURL,
		},
		ReasoningModel:   c.Models.Reasoning,
		ToolingModel:     c.Models.Tooling,
		SwarmWorkerModel: c.Models.SwarmWorker,
		Timeout:          time.Duration(c.Brain.TimeoutSeconds) * time.Second,
		Logger:           logger,
	}
}
