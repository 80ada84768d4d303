// Package toolexecutor is the dispatch registry mapping tool names to
// typed handlers. Parameter schemas are compiled at registration time and
// every payload is validated before a handler runs, so handlers can trust
// their arguments.
package toolexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/growup62/openapex/pkg/llm"
)

// Handler executes a tool with validated arguments and returns a
// serializable result.
type Handler func(ctx context.Context, args map[string]interface{}) (string, error)

// Definition couples a tool schema with its handler.
type Definition struct {
	Schema  llm.ToolSchema
	Handler Handler
}

// ErrUnknownTool is returned when a name is not in the registry.
var ErrUnknownTool = errors.New("unknown tool")

// ErrToolNotPermitted is returned by restricted dispatchers for names
// outside their allowlist.
var ErrToolNotPermitted = errors.New("tool not permitted for this agent")

// ArgumentError marks a malformed tool-call payload. Callers record it
// as a tool observation and keep looping; it is never fatal.
type ArgumentError struct {
	Tool   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
}

// Dispatcher is the execution surface handed to reasoning loops. The
// swarm delegator passes sub-agents an allowlisted view of the parent's
// registry; side effects still land in the shared host environment.
type Dispatcher interface {
	Execute(ctx context.Context, name string, arguments string) (string, error)
	Schemas() []llm.ToolSchema
}

// Executor is the full registry. It implements Dispatcher.
type Executor struct {
	defs    map[string]Definition
	schemas map[string]*gojsonschema.Schema
	logger  zerolog.Logger
	mu      sync.RWMutex
}

// New creates an empty registry.
func New(logger zerolog.Logger) *Executor {
	logger.Info().Msg("Tool executor initialized")
	return &Executor{
		defs:    make(map[string]Definition),
		schemas: make(map[string]*gojsonschema.Schema),
		logger:  logger,
	}
}

// Register adds a tool. The parameter block is compiled as a JSON schema
// here, at registration time; an uncompilable schema rejects the tool
// instead of surfacing later inside a reasoning loop.
func (e *Executor) Register(def Definition) error {
	if def.Schema.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s has no handler", def.Schema.Name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.defs[def.Schema.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Schema.Name)
	}
	if len(def.Schema.Parameters) > 0 {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(def.Schema.Parameters))
		if err != nil {
			return fmt.Errorf("invalid parameter schema for %s: %w", def.Schema.Name, err)
		}
		e.schemas[def.Schema.Name] = compiled
	}
	e.defs[def.Schema.Name] = def
	e.logger.Debug().Str("tool", def.Schema.Name).Msg("Tool registered")
	return nil
}

// Schema returns the schema for one registered tool.
func (e *Executor) Schema(name string) (llm.ToolSchema, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	def, ok := e.defs[name]
	if !ok {
		return llm.ToolSchema{}, false
	}
	return def.Schema, true
}

// Schemas returns every registered schema, sorted by name.
func (e *Executor) Schemas() []llm.ToolSchema {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]llm.ToolSchema, 0, len(e.defs))
	for _, def := range e.defs {
		out = append(out, def.Schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs a registered tool against a raw argument payload.
// Payloads that are not JSON objects, or that fail schema validation,
// yield an *ArgumentError.
func (e *Executor) Execute(ctx context.Context, name string, arguments string) (string, error) {
	e.mu.RLock()
	def, ok := e.defs[name]
	compiled := e.schemas[name]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if arguments == "" {
		arguments = "{}"
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", &ArgumentError{Tool: name, Reason: "arguments are not a valid JSON object"}
	}

	if compiled != nil {
		result, err := compiled.Validate(gojsonschema.NewGoLoader(args))
		if err != nil {
			return "", &ArgumentError{Tool: name, Reason: err.Error()}
		}
		if !result.Valid() {
			return "", &ArgumentError{Tool: name, Reason: formatSchemaErrors(result)}
		}
	}

	e.logger.Info().Str("tool", name).Msg("Executing tool")
	out, err := def.Handler(ctx, args)
	if err != nil {
		return "", fmt.Errorf("tool %s failed: %w", name, err)
	}
	return out, nil
}

func formatSchemaErrors(result *gojsonschema.Result) string {
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	payload, _ := json.Marshal(msgs)
	return string(payload)
}
