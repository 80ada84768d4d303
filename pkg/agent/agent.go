// Package agent couples a conversation ledger, a registered tool
// catalog and a provider gateway into one reasoning actor. An agent does
// not loop; callers drive it one Cycle at a time and decide what to do
// with the outcome.
package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/growup62/openapex/pkg/ledger"
	"github.com/growup62/openapex/pkg/llm"
	"github.com/growup62/openapex/pkg/toolcall"
)

// Gateway is the provider routing surface an agent reasons through.
// Implemented by llm.Router.
type Gateway interface {
	Generate(ctx context.Context, messages []llm.Message, taskType llm.TaskType, tools []llm.ToolSchema) (*llm.Response, error)
}

// ToolGuidelines is appended to every agent's system prompt so models
// that drift into prose remember the calling convention.
const ToolGuidelines = `CRITICAL GUIDELINES FOR TOOL USAGE:
1. You have access to tools. You MUST use them whenever you need external information or need to affect the system.
2. When calling a tool, output a valid JSON tool call matching the provided schema.
3. If asked to search the web, USE the web_search tool. Do not guess.
4. Think step-by-step before acting.`

// Agent is a single reasoning actor.
type Agent struct {
	name      string
	ledger    *ledger.Ledger
	gateway   Gateway
	tools     []llm.ToolSchema
	reasoning llm.TaskType
	tooling   llm.TaskType
	logger    zerolog.Logger
}

// Option mutates an Agent during construction.
type Option func(*Agent)

// WithTaskTypes overrides the model classes used for reasoning and
// tooling cycles. The swarm delegator routes its workers to the cheap
// swarm_worker class this way.
func WithTaskTypes(reasoning, tooling llm.TaskType) Option {
	return func(a *Agent) {
		a.reasoning = reasoning
		a.tooling = tooling
	}
}

// New creates an agent whose ledger is seeded with an identity prompt
// built from the name and role description.
func New(name, roleDescription string, gateway Gateway, logger zerolog.Logger, opts ...Option) *Agent {
	a := &Agent{
		name:      name,
		gateway:   gateway,
		reasoning: llm.TaskReasoning,
		tooling:   llm.TaskTooling,
		logger:    logger.With().Str("agent", name).Logger(),
	}
	a.ledger = ledger.New(fmt.Sprintf("You are %s. %s\n\n%s", name, roleDescription, ToolGuidelines))
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Info().Msg("Agent initialized")
	return a
}

// Name returns the agent's identifier.
func (a *Agent) Name() string {
	return a.name
}

// RegisterTool adds a tool schema to the catalog advertised to providers.
func (a *Agent) RegisterTool(schema llm.ToolSchema) {
	a.tools = append(a.tools, schema)
	a.logger.Debug().Str("tool", schema.Name).Msg("Registered tool")
}

// Tools returns a copy of the registered catalog.
func (a *Agent) Tools() []llm.ToolSchema {
	out := make([]llm.ToolSchema, len(a.tools))
	copy(out, a.tools)
	return out
}

// Observe appends a message, normally a tool result, to the ledger.
func (a *Agent) Observe(msg llm.Message) {
	a.ledger.Append(msg)
}

// SetSystemPrompt replaces the pinned identity entry.
func (a *Agent) SetSystemPrompt(content string) {
	a.ledger.ReplaceSystem(content)
}

// History returns a copy of the full conversation so far.
func (a *Agent) History() []llm.Message {
	return a.ledger.All()
}

// Cycle executes one fundamental reasoning step: record the input, ask
// the gateway, classify the reply. Structured tool calls win over
// anything in the content field; content that parses as an inline tool
// call is intercepted; remaining text is a terminal answer.
func (a *Agent) Cycle(ctx context.Context, input string, forceReasoning bool) (CycleResult, error) {
	if input != "" {
		a.ledger.Append(llm.Message{Role: "user", Content: input})
		a.logger.Info().Str("input", truncate(input, 50)).Msg("Processing input")
	}

	taskType := a.tooling
	if forceReasoning {
		taskType = a.reasoning
	}

	var tools []llm.ToolSchema
	if len(a.tools) > 0 {
		tools = a.Tools()
	}

	resp, err := a.gateway.Generate(ctx, a.ledger.All(), taskType, tools)
	if err != nil {
		a.logger.Error().Err(err).Msg("Gateway request failed")
		return CycleResult{Status: StatusFailed}, err
	}
	if len(resp.Choices) == 0 {
		return CycleResult{Status: StatusFailed}, fmt.Errorf("empty response from gateway")
	}

	msg := resp.Choices[0].Message

	if len(msg.ToolCalls) > 0 {
		a.ledger.Append(llm.Message{Role: "assistant", Content: msg.Content, ToolCalls: msg.ToolCalls})
		return CycleResult{Status: StatusToolRequested, ToolCalls: msg.ToolCalls}, nil
	}

	if msg.Content != "" {
		if calls := toolcall.Extract(msg.Content); calls != nil {
			a.logger.Info().Str("tool", calls[0].Name).Msg("Intercepted inline tool call from content")
			// Recorded with empty content so the raw tag syntax never
			// leaks back into the conversation.
			a.ledger.Append(llm.Message{Role: "assistant", ToolCalls: calls})
			return CycleResult{Status: StatusToolRequested, ToolCalls: calls}, nil
		}
		a.ledger.Append(llm.Message{Role: "assistant", Content: msg.Content})
		return CycleResult{Status: StatusSuccess, Response: msg.Content}, nil
	}

	a.logger.Warn().Msg("Gateway returned neither content nor tool calls")
	return CycleResult{Status: StatusUnknown, Raw: resp}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
