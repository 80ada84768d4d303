package state

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineSetState(t *testing.T) {
	t.Run("should start idle with a zero counter", func(t *testing.T) {
		m := NewMachine(0, zerolog.Nop())
		assert.Equal(t, Idle, m.Current())
		assert.Equal(t, 0, m.Iteration())
	})

	t.Run("should reject unknown states without mutating", func(t *testing.T) {
		m := NewMachine(10, zerolog.Nop())
		require.NoError(t, m.SetState(Executing))
		err := m.SetState(State("SLEEPING"))
		require.Error(t, err)
		assert.Equal(t, Executing, m.Current())
	})

	t.Run("should reset the counter only on PLANNING and IDLE", func(t *testing.T) {
		m := NewMachine(10, zerolog.Nop())
		m.Increment()
		m.Increment()
		require.Equal(t, 2, m.Iteration())

		require.NoError(t, m.SetState(Executing))
		assert.Equal(t, 2, m.Iteration())
		require.NoError(t, m.SetState(Verifying))
		assert.Equal(t, 2, m.Iteration())

		require.NoError(t, m.SetState(Planning))
		assert.Equal(t, 0, m.Iteration())

		m.Increment()
		require.NoError(t, m.SetState(Idle))
		assert.Equal(t, 0, m.Iteration())
	})
}

func TestMachineIncrement(t *testing.T) {
	t.Run("should allow exactly the ceiling number of iterations", func(t *testing.T) {
		m := NewMachine(10, zerolog.Nop())
		for i := 0; i < 10; i++ {
			assert.True(t, m.Increment(), "iteration %d should be allowed", i+1)
		}
		assert.NotEqual(t, Error, m.Current())

		// The 11th call exceeds the ceiling.
		assert.False(t, m.Increment())
		assert.Equal(t, Error, m.Current())
	})

	t.Run("should allow a fresh run after replanning", func(t *testing.T) {
		m := NewMachine(2, zerolog.Nop())
		assert.True(t, m.Increment())
		assert.True(t, m.Increment())
		assert.False(t, m.Increment())

		require.NoError(t, m.SetState(Planning))
		assert.True(t, m.Increment())
	})
}

func TestMachineSnapshot(t *testing.T) {
	t.Run("should expose state and iteration", func(t *testing.T) {
		m := NewMachine(10, zerolog.Nop())
		require.NoError(t, m.SetState(Planning))
		m.Increment()
		snap := m.Snapshot()
		assert.Equal(t, Planning, snap.State)
		assert.Equal(t, 1, snap.Iteration)
	})
}
