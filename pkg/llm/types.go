// Package llm routes generation requests across heterogeneous LLM
// providers through a single normalized interface. Callers speak one
// message format; the router walks an ordered fallback chain of concrete
// endpoints until one of them answers.
package llm

import (
	"encoding/json"

	"github.com/growup62/openapex/pkg/toolcall"
)

// TaskType selects which model class handles a request.
type TaskType string

const (
	// TaskReasoning is for deep planning and final-answer synthesis.
	TaskReasoning TaskType = "reasoning"
	// TaskTooling is for cycles expected to emit tool calls.
	TaskTooling TaskType = "tooling"
	// TaskSwarmWorker is the cheap class used by ephemeral sub-agents.
	TaskSwarmWorker TaskType = "swarm_worker"
)

// Message is one conversation entry in the provider-neutral format.
// Role is one of system, user, assistant, tool. ToolCallID and Name are
// set only on tool-result messages.
type Message struct {
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	ToolCalls  []toolcall.Call `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
}

// ToolSchema describes a callable tool. Parameters is a JSON schema
// object describing the tool's arguments.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Response is the normalized provider reply. Every transform produces
// this shape regardless of the backend's native format, so downstream
// code never branches on which provider actually answered.
type Response struct {
	Choices []Choice `json:"choices"`
}

// Choice wraps one candidate assistant message.
type Choice struct {
	Message Message `json:"message"`
}
