package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Credentials holds the API keys for every supported provider family.
// A candidate whose family has an empty credential is skipped during the
// fallback walk; a skip is not a failure.
type Credentials struct {
	OpenRouter  string
	Groq        string
	Gemini      string
	HuggingFace string
	Nvidia      string
	Anthropic   string

	// OllamaBaseURL points at a local OpenAI-compatible server. Ollama
	// needs no key; an empty value falls back to the conventional local
	// address.
	OllamaBaseURL string
}

// Candidate is one entry in the static fallback chain. The model prefix
// selects the transform and provider family; BaseURL overrides the
// family's default endpoint.
type Candidate struct {
	Name    string
	Model   string
	BaseURL string
}

// Config assembles a Router.
type Config struct {
	Credentials      Credentials
	ReasoningModel   string
	ToolingModel     string
	SwarmWorkerModel string
	Fallbacks        []Candidate
	Timeout          time.Duration
	Logger           zerolog.Logger
}

// Defaults mirror the runtime's shipped configuration.
const (
	DefaultReasoningModel   = "gemini/gemini-2.0-flash-lite-preview-02-05"
	DefaultToolingModel     = "gemini/gemini-2.0-flash-lite-preview-02-05"
	DefaultSwarmWorkerModel = "groq/llama-3.1-8b-instant"
	DefaultTimeout          = 60 * time.Second
)

// DefaultFallbacks returns the static provider priority chain tried after
// the task type's primary model. Order encodes cost and reliability:
// cheap fast hosted models first, a local model last.
func DefaultFallbacks() []Candidate {
	return []Candidate{
		{Name: "gemini_flash_lite", Model: "gemini/gemini-2.0-flash-lite-preview-02-05"},
		{Name: "gemini_flash_1_5", Model: "gemini/gemini-1.5-flash"},
		{Name: "anthropic_haiku", Model: "anthropic/claude-3-5-haiku-20241022"},
		{Name: "nvidia_nim", Model: "nv/meta/llama-3.1-70b-instruct"},
		{Name: "groq_llama_8b", Model: "groq/llama-3.1-8b-instant"},
		{Name: "groq_llama_70b", Model: "groq/llama-3.3-70b-versatile"},
		{Name: "hf_llama_8b", Model: "hf/meta-llama/Llama-3.1-8B-Instruct"},
		{Name: "ollama_fallback", Model: "ollama/llama3"},
	}
}

// Router is the provider gateway. It resolves a task type to a primary
// model, then walks the fallback chain until a candidate answers.
type Router struct {
	creds     Credentials
	primaries map[TaskType]string
	fallbacks []Candidate
	timeout   time.Duration
	logger    zerolog.Logger
}

// New creates a router; zero-value config fields get the shipped defaults.
func New(cfg Config) *Router {
	if cfg.ReasoningModel == "" {
		cfg.ReasoningModel = DefaultReasoningModel
	}
	if cfg.ToolingModel == "" {
		cfg.ToolingModel = DefaultToolingModel
	}
	if cfg.SwarmWorkerModel == "" {
		cfg.SwarmWorkerModel = DefaultSwarmWorkerModel
	}
	if cfg.Fallbacks == nil {
		cfg.Fallbacks = DefaultFallbacks()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Router{
		creds: cfg.Credentials,
		primaries: map[TaskType]string{
			TaskReasoning:   cfg.ReasoningModel,
			TaskTooling:     cfg.ToolingModel,
			TaskSwarmWorker: cfg.SwarmWorkerModel,
		},
		fallbacks: cfg.Fallbacks,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
	}
}

// Generate sends the conversation to the first candidate that can answer.
// Candidates without credentials are skipped without counting as
// failures; each attempted candidate gets one try under the per-attempt
// timeout. When the whole chain fails the returned error is an
// *ExhaustedError carrying every attempt.
func (r *Router) Generate(ctx context.Context, messages []Message, taskType TaskType, tools []ToolSchema) (*Response, error) {
	primary, ok := r.primaries[taskType]
	if !ok || primary == "" {
		primary = r.primaries[TaskReasoning]
	}

	candidates := make([]Candidate, 0, len(r.fallbacks)+1)
	candidates = append(candidates, Candidate{Name: "primary", Model: primary})
	candidates = append(candidates, r.fallbacks...)

	var attempts []Attempt
	for _, c := range candidates {
		if c.Model == "" {
			continue
		}
		ep, ok := r.resolve(c)
		if !ok {
			r.logger.Debug().Str("provider", c.Name).Str("model", c.Model).Msg("Skipping provider without credential")
			continue
		}

		r.logger.Info().Str("provider", c.Name).Str("model", ep.model).Msg("Attempting provider")
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		resp, err := ep.call(callCtx, messages, tools)
		cancel()

		if err == nil {
			r.logger.Info().Str("provider", c.Name).Msg("Provider responded")
			return resp, nil
		}
		if recovered := recoverRejectedToolCall(err); recovered != nil {
			r.logger.Info().Str("provider", c.Name).Msg("Recovered tool call from provider rejection")
			return recovered, nil
		}

		r.logger.Warn().Str("provider", c.Name).Err(err).Msg("Provider failed, trying next")
		attempts = append(attempts, Attempt{Provider: c.Name, Model: ep.model, Err: err})
	}

	r.logger.Error().Int("attempted", len(attempts)).Msg("All providers exhausted")
	return nil, &ExhaustedError{Attempts: attempts}
}

// endpoint is a resolved candidate: the bare model name plus a bound
// transform closure.
type endpoint struct {
	model string
	call  func(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error)
}

// resolve maps a candidate's model prefix onto a concrete transform and
// checks the family credential. The second return is false when the
// candidate must be skipped.
func (r *Router) resolve(c Candidate) (endpoint, bool) {
	switch {
	case strings.HasPrefix(c.Model, "gemini/"):
		if r.creds.Gemini == "" {
			return endpoint{}, false
		}
		model := strings.TrimPrefix(c.Model, "gemini/")
		base := c.BaseURL
		if base == "" {
			base = geminiDefaultBaseURL
		}
		return endpoint{model: model, call: func(ctx context.Context, messages []Message, _ []ToolSchema) (*Response, error) {
			return callGeminiNative(ctx, base, r.creds.Gemini, model, messages)
		}}, true

	case strings.HasPrefix(c.Model, "anthropic/"):
		if r.creds.Anthropic == "" {
			return endpoint{}, false
		}
		model := strings.TrimPrefix(c.Model, "anthropic/")
		base := c.BaseURL
		return endpoint{model: model, call: func(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error) {
			return callAnthropic(ctx, base, r.creds.Anthropic, model, messages, tools)
		}}, true

	case strings.HasPrefix(c.Model, "groq/"):
		return r.openAICompat(c, "groq/", r.creds.Groq, "https://api.groq.com/openai/v1", true)

	case strings.HasPrefix(c.Model, "nv/"):
		return r.openAICompat(c, "nv/", r.creds.Nvidia, "https://integrate.api.nvidia.com/v1", true)

	case strings.HasPrefix(c.Model, "hf/"):
		// The HF router rejects the tools field for most hosted models.
		return r.openAICompat(c, "hf/", r.creds.HuggingFace, "https://router.huggingface.co/v1", false)

	case strings.HasPrefix(c.Model, "ollama/"):
		base := c.BaseURL
		if base == "" {
			base = r.creds.OllamaBaseURL
		}
		if base == "" {
			base = "http://localhost:11434"
		}
		base = strings.TrimSuffix(base, "/") + "/v1"
		model := strings.TrimPrefix(c.Model, "ollama/")
		return endpoint{model: model, call: func(ctx context.Context, messages []Message, _ []ToolSchema) (*Response, error) {
			// Local server ignores the key but the client requires one.
			return callOpenAICompat(ctx, base, "ollama", model, messages, nil)
		}}, true

	default:
		// Bare model names route through OpenRouter.
		if r.creds.OpenRouter == "" {
			return endpoint{}, false
		}
		base := c.BaseURL
		if base == "" {
			base = "https://openrouter.ai/api/v1"
		}
		model := c.Model
		return endpoint{model: model, call: func(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error) {
			return callOpenAICompat(ctx, base, r.creds.OpenRouter, model, messages, tools)
		}}, true
	}
}

// nv/ model names embed slashes (nv/meta/llama-3.1-70b-instruct), so the
// prefix strip keeps everything after the family marker.
func (r *Router) openAICompat(c Candidate, prefix, key, defaultBase string, forwardTools bool) (endpoint, bool) {
	if key == "" {
		return endpoint{}, false
	}
	base := c.BaseURL
	if base == "" {
		base = defaultBase
	}
	model := strings.TrimPrefix(c.Model, prefix)
	return endpoint{model: model, call: func(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error) {
		if !forwardTools {
			tools = nil
		}
		return callOpenAICompat(ctx, base, key, model, messages, tools)
	}}, true
}
