package swarm

import (
	"encoding/json"

	"github.com/growup62/openapex/pkg/llm"
)

// ToolName is how parents invoke delegation.
const ToolName = "delegate_task"

// DefaultAllowedTools is the safe subset granted to sub-agents when the
// caller does not narrow it further. Mutating tools stay with the parent.
func DefaultAllowedTools() []string {
	return []string{
		"web_search",
		"web_fetch",
		"run_python",
		"analyze_image",
		"system_read_file",
	}
}

// DelegateTaskSchema is the registerable tool schema for delegation.
func DelegateTaskSchema() llm.ToolSchema {
	return llm.ToolSchema{
		Name: ToolName,
		Description: "Delegate a narrow, well-scoped sub-task to an ephemeral specialist sub-agent. " +
			"The sub-agent runs synchronously with a restricted tool set and returns its final answer.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"role_name": {
					"type": "string",
					"description": "The specialist role for the sub-agent, e.g. 'Researcher' or 'Data Analyst'."
				},
				"task_description": {
					"type": "string",
					"description": "The single, focused task the sub-agent must complete."
				},
				"allowed_tools": {
					"type": "array",
					"items": {"type": "string"},
					"description": "Optional tool names the sub-agent may use. Defaults to the safe read-only subset."
				}
			},
			"required": ["role_name", "task_description"]
		}`),
	}
}
