// Package state tracks the cognitive execution state of a reasoning loop
// and guards it with an iteration circuit breaker.
package state

import (
	"fmt"

	"github.com/rs/zerolog"
)

// State names one phase of the execution lifecycle.
type State string

const (
	Idle      State = "IDLE"
	Planning  State = "PLANNING"
	Executing State = "EXECUTING"
	Verifying State = "VERIFYING"
	Error     State = "ERROR"
)

func (s State) valid() bool {
	switch s {
	case Idle, Planning, Executing, Verifying, Error:
		return true
	}
	return false
}

// DefaultMaxIterations is the per-task ceiling on reasoning cycles.
const DefaultMaxIterations = 10

// Machine holds the current state and the per-task iteration counter.
// It is not goroutine-safe; the owning loop is single-threaded.
type Machine struct {
	current       State
	maxIterations int
	iteration     int
	logger        zerolog.Logger
}

// NewMachine starts in IDLE with the given ceiling (<= 0 means default).
func NewMachine(maxIterations int, logger zerolog.Logger) *Machine {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Machine{current: Idle, maxIterations: maxIterations, logger: logger}
}

// Current returns the present state.
func (m *Machine) Current() State {
	return m.current
}

// Iteration returns the per-task counter value.
func (m *Machine) Iteration() int {
	return m.iteration
}

// SetState transitions to a new state. Unknown values are rejected
// without mutating anything. Entering PLANNING or IDLE resets the
// iteration counter; that is the only reset path.
func (m *Machine) SetState(next State) error {
	if !next.valid() {
		m.logger.Error().Str("state", string(next)).Msg("Rejected invalid state")
		return fmt.Errorf("invalid state: %q", next)
	}
	m.logger.Info().Str("from", string(m.current)).Str("to", string(next)).Msg("State transition")
	m.current = next
	if next == Planning || next == Idle {
		m.iteration = 0
	}
	return nil
}

// Increment advances the iteration counter before each reasoning cycle.
// Once the counter exceeds the ceiling it forces ERROR and returns false.
// This is the sole guard against infinite tool-calling loops.
func (m *Machine) Increment() bool {
	m.iteration++
	m.logger.Debug().Int("iteration", m.iteration).Int("max", m.maxIterations).Msg("Loop iteration")
	if m.iteration > m.maxIterations {
		m.logger.Error().Int("max", m.maxIterations).Msg("Iteration ceiling reached, tripping circuit breaker")
		_ = m.SetState(Error)
		return false
	}
	return true
}

// Snapshot is the queryable view of the machine, serializable for
// diagnostics and prompt context.
type Snapshot struct {
	State     State `json:"current_state"`
	Iteration int   `json:"iteration"`
}

// Snapshot returns the current state and counter.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{State: m.current, Iteration: m.iteration}
}
