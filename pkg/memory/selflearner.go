package memory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// SelfLearner closes the learning loop: reflect on finished tasks,
// recall prior experience before new ones.
type SelfLearner struct {
	store  *Store
	logger zerolog.Logger
}

// NewSelfLearner wraps a store.
func NewSelfLearner(store *Store, logger zerolog.Logger) *SelfLearner {
	return &SelfLearner{store: store, logger: logger}
}

// ReflectOnTask distills a finished task into a reflection episode.
func (l *SelfLearner) ReflectOnTask(ctx context.Context, task, result string) error {
	l.logger.Info().Str("task", truncate(task, 50)).Msg("Reflecting on completed task")
	summary := fmt.Sprintf("Result: %s\nLesson: completed successfully.", truncate(result, 2000))
	_, err := l.store.storeKind(ctx, "[REFLECTION] "+task, summary, "reflection")
	return err
}

// RecallSimilar retrieves episodes relevant to a query.
func (l *SelfLearner) RecallSimilar(ctx context.Context, query string, topK int) ([]Episode, error) {
	return l.store.SearchSimilar(ctx, query, topK)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
