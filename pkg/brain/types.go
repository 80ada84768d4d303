package brain

import (
	"context"

	"github.com/growup62/openapex/pkg/llm"
	"github.com/growup62/openapex/pkg/memory"
)

// EpisodicMemory is the long-term store consulted before a task and
// written after it. Implemented by memory.Store.
type EpisodicMemory interface {
	StoreEpisode(ctx context.Context, task, resultSummary string) (string, error)
	SearchSimilar(ctx context.Context, query string, topK int) ([]memory.Episode, error)
}

// Reflector distills a lesson from a finished task. Implemented by
// memory.SelfLearner.
type Reflector interface {
	ReflectOnTask(ctx context.Context, task, result string) error
}

// SelfModel observes task and tool outcomes and renders the identity
// text injected into the system prompt. Implemented by
// consciousness.Consciousness. The brain consumes nothing from it beyond
// the rendered prompt.
type SelfModel interface {
	SelfModel(tools []llm.ToolSchema) string
	OnTaskComplete(task string)
	OnTaskFail(task string, err error)
	OnToolUsed(name string)
}

// Delegator runs one scoped sub-task synchronously and returns its
// result or error string. Implemented by swarm.Delegator.
type Delegator interface {
	Delegate(ctx context.Context, role, taskDescription string, allowedTools []string) string
}
