package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growup62/openapex/pkg/llm"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("should carry the shipped model defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, llm.DefaultReasoningModel, cfg.Models.Reasoning)
		assert.Equal(t, llm.DefaultSwarmWorkerModel, cfg.Models.SwarmWorker)
		assert.Equal(t, 10, cfg.Brain.MaxIterations)
		require.NoError(t, cfg.Validate())
	})
}

func TestValidate(t *testing.T) {
	t.Run("should reject a non-positive iteration ceiling", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Brain.MaxIterations = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("should reject enabled autonomy without an interval", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Autonomy.Enabled = true
		cfg.Autonomy.IntervalSeconds = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestRouterConfig(t *testing.T) {
	t.Run("should map credentials and models onto the gateway config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Providers.GroqAPIKey = "gsk-test"
		cfg.Providers.GeminiAPIKey = "g-test"
		cfg.Models.Reasoning = "groq/llama-3.3-70b-versatile"

		rc := cfg.RouterConfig(zerolog.Nop())
		assert.Equal(t, "gsk-test", rc.Credentials.Groq)
		assert.Equal(t, "g-test", rc.Credentials.Gemini)
		assert.Equal(t, "groq/llama-3.3-70b-versatile", rc.ReasoningModel)
	})
}

func TestLoader(t *testing.T) {
	t.Run("should return defaults when the file is missing", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.Brain.MaxIterations)
		assert.NotEmpty(t, cfg.Memory.DBPath)
		assert.NotEmpty(t, cfg.Memory.IdentityPath)
	})

	t.Run("should merge file values over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "openapex.json")
		body := `{
			"models": {"swarm_worker": "groq/llama-3.3-70b-versatile"},
			"brain": {"max_iterations": 5},
			"data_dir": "/tmp/openapex-test"
		}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Brain.MaxIterations)
		assert.Equal(t, "groq/llama-3.3-70b-versatile", cfg.Models.SwarmWorker)
		// Untouched defaults survive.
		assert.Equal(t, llm.DefaultReasoningModel, cfg.Models.Reasoning)
		assert.Equal(t, filepath.Join("/tmp/openapex-test", "memory.db"), cfg.Memory.DBPath)
	})

	t.Run("should pick up provider credentials from the environment", func(t *testing.T) {
		t.Setenv("GROQ_API_KEY", "gsk-from-env")
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, err)
		assert.Equal(t, "gsk-from-env", cfg.Providers.GroqAPIKey)
	})

	t.Run("should reject an invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "openapex.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"brain": {"max_iterations": -1}}`), 0600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
