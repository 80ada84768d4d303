package memory

import (
	"context"
	"encoding/json"

	"github.com/growup62/openapex/pkg/llm"
	"github.com/growup62/openapex/pkg/toolexecutor"
)

// RegisterTools wires the self-learning tools into a tool executor so
// agents can reflect and recall on their own initiative.
func RegisterTools(executor *toolexecutor.Executor, learner *SelfLearner) error {
	selfReflect := toolexecutor.Definition{
		Schema: llm.ToolSchema{
			Name:        "self_reflect",
			Description: "Reflect on a completed task and store the lesson in long-term memory.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"task": {"type": "string", "description": "The task that was completed."},
					"result": {"type": "string", "description": "The outcome of the task."}
				},
				"required": ["task", "result"]
			}`),
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			task, _ := args["task"].(string)
			result, _ := args["result"].(string)
			if err := learner.ReflectOnTask(ctx, task, result); err != nil {
				return "", err
			}
			return `{"status": "success", "message": "Lesson stored in long-term memory."}`, nil
		},
	}

	recallKnowledge := toolexecutor.Definition{
		Schema: llm.ToolSchema{
			Name:        "recall_knowledge",
			Description: "Search long-term memory for past experiences relevant to a query.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "What to look for in memory."},
					"n_results": {"type": "integer", "description": "How many memories to return. Defaults to 3."}
				},
				"required": ["query"]
			}`),
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			query, _ := args["query"].(string)
			topK := 3
			if n, ok := args["n_results"].(float64); ok && n > 0 {
				topK = int(n)
			}
			episodes, err := learner.RecallSimilar(ctx, query, topK)
			if err != nil {
				return "", err
			}
			if len(episodes) == 0 {
				return `{"status": "no_memories", "message": "Nothing relevant found in memory."}`, nil
			}
			payload, err := json.Marshal(map[string]interface{}{
				"status":            "success",
				"relevant_memories": episodes,
			})
			if err != nil {
				return "", err
			}
			return string(payload), nil
		},
	}

	for _, def := range []toolexecutor.Definition{selfReflect, recallKnowledge} {
		if err := executor.Register(def); err != nil {
			return err
		}
	}
	return nil
}
