package autonomy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBrain captures submitted objectives.
type recordingBrain struct {
	mu         sync.Mutex
	objectives []string
}

func (b *recordingBrain) Solve(_ context.Context, request string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objectives = append(b.objectives, request)
	return "ok", nil
}

func (b *recordingBrain) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.objectives))
	copy(out, b.objectives)
	return out
}

func TestNew(t *testing.T) {
	t.Run("should require a brain", func(t *testing.T) {
		_, err := New(Config{})
		assert.Error(t, err)
	})

	t.Run("should default interval and topics", func(t *testing.T) {
		e, err := New(Config{Brain: &recordingBrain{}, Logger: zerolog.Nop()})
		require.NoError(t, err)
		assert.Equal(t, 60*time.Second, e.interval)
		assert.NotEmpty(t, e.topics)
	})
}

func TestStartStop(t *testing.T) {
	t.Run("should reject a second start", func(t *testing.T) {
		e, err := New(Config{Brain: &recordingBrain{}, Interval: time.Hour, Logger: zerolog.Nop()})
		require.NoError(t, err)
		require.NoError(t, e.Start())
		defer e.Stop()

		assert.True(t, e.Running())
		assert.Error(t, e.Start())
	})

	t.Run("should stop cleanly and be idempotent", func(t *testing.T) {
		e, err := New(Config{Brain: &recordingBrain{}, Interval: time.Hour, Logger: zerolog.Nop()})
		require.NoError(t, err)
		require.NoError(t, e.Start())
		e.Stop()
		e.Stop()
		assert.False(t, e.Running())
	})
}

func TestRunCycle(t *testing.T) {
	t.Run("should submit learning objectives for early cycles", func(t *testing.T) {
		brain := &recordingBrain{}
		e, err := New(Config{
			Brain:  brain,
			Topics: []string{"topic one", "topic two"},
			Logger: zerolog.Nop(),
		})
		require.NoError(t, err)

		e.runCycle()
		e.runCycle()

		objectives := brain.all()
		require.Len(t, objectives, 2)
		assert.Contains(t, objectives[0], "topic one")
		assert.Contains(t, objectives[0], "self_reflect")
		assert.Contains(t, objectives[1], "topic two")
		assert.Equal(t, ModeLearning, e.Mode())
		assert.Equal(t, 2, e.CycleCount())
	})

	t.Run("should rotate modes after the exploration phase", func(t *testing.T) {
		brain := &recordingBrain{}
		e, err := New(Config{Brain: brain, Logger: zerolog.Nop()})
		require.NoError(t, err)

		modes := map[Mode]bool{}
		for i := 0; i < 8; i++ {
			e.runCycle()
			modes[e.Mode()] = true
		}
		assert.True(t, modes[ModeLearning])
		assert.True(t, modes[ModeMonitoring])
		assert.True(t, modes[ModeCreating])
		assert.True(t, modes[ModeIdle])
	})

	t.Run("should submit nothing on idle cycles", func(t *testing.T) {
		brain := &recordingBrain{}
		e, err := New(Config{Brain: brain, Logger: zerolog.Nop()})
		require.NoError(t, err)

		// Cycle 7 is the first idle slot (7 % 4 == 3).
		for i := 0; i < 7; i++ {
			e.runCycle()
		}
		require.Equal(t, ModeIdle, e.Mode())
		// Idle cycle submitted nothing: 6 objectives from 7 cycles.
		assert.Len(t, brain.all(), 6)
	})
}
