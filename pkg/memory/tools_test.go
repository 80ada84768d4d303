package memory

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growup62/openapex/pkg/toolexecutor"
)

func TestRegisterTools(t *testing.T) {
	setup := func(t *testing.T) *toolexecutor.Executor {
		t.Helper()
		s, err := New(Config{
			DBPath: filepath.Join(t.TempDir(), "memory.db"),
			Logger: zerolog.Nop(),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		e := toolexecutor.New(zerolog.Nop())
		require.NoError(t, RegisterTools(e, NewSelfLearner(s, zerolog.Nop())))
		return e
	}

	t.Run("should register both learning tools", func(t *testing.T) {
		e := setup(t)
		_, ok := e.Schema("self_reflect")
		assert.True(t, ok)
		_, ok = e.Schema("recall_knowledge")
		assert.True(t, ok)
	})

	t.Run("should reflect then recall through the tool surface", func(t *testing.T) {
		e := setup(t)
		ctx := context.Background()

		out, err := e.Execute(ctx, "self_reflect", `{"task": "summarize the report", "result": "three key findings extracted"}`)
		require.NoError(t, err)
		assert.Contains(t, out, "success")

		out, err = e.Execute(ctx, "recall_knowledge", `{"query": "summarize report"}`)
		require.NoError(t, err)

		var recalled struct {
			Status   string    `json:"status"`
			Memories []Episode `json:"relevant_memories"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &recalled))
		assert.Equal(t, "success", recalled.Status)
		require.NotEmpty(t, recalled.Memories)
	})

	t.Run("should report no_memories on an empty store", func(t *testing.T) {
		e := setup(t)
		out, err := e.Execute(context.Background(), "recall_knowledge", `{"query": "anything at all"}`)
		require.NoError(t, err)
		assert.Contains(t, out, "no_memories")
	})

	t.Run("should reject a reflect call without required fields", func(t *testing.T) {
		e := setup(t)
		_, err := e.Execute(context.Background(), "self_reflect", `{"task": "only task"}`)
		var argErr *toolexecutor.ArgumentError
		require.ErrorAs(t, err, &argErr)
	})
}
