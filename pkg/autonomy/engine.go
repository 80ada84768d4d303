// Package autonomy drives self-initiated work: on a wall-clock schedule
// it picks a mode, generates an objective, and submits it to the brain
// from its own goroutine. The brain serializes submissions internally,
// so an autonomous cycle that overlaps a user request simply waits.
package autonomy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// TaskSubmitter is the brain entry point the engine feeds.
type TaskSubmitter interface {
	Solve(ctx context.Context, request string) (string, error)
}

// Mode is what an autonomous cycle decides to do.
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeLearning   Mode = "learning"
	ModeMonitoring Mode = "monitoring"
	ModeCreating   Mode = "creating"
)

// DefaultTopics seeds the learning rotation.
func DefaultTopics() []string {
	return []string{
		"today's AI technology news",
		"practical Go concurrency patterns",
		"recent developments in local LLM inference",
		"robotics and IoT trends",
		"productivity techniques for software work",
	}
}

// Config assembles an Engine.
type Config struct {
	Brain    TaskSubmitter
	Interval time.Duration
	Topics   []string
	Logger   zerolog.Logger
}

// Engine owns its cron scheduler; nothing here is a process-wide global.
type Engine struct {
	brain    TaskSubmitter
	interval time.Duration
	topics   []string
	logger   zerolog.Logger

	cron        *cron.Cron
	cycleCount  int
	currentMode Mode
	running     bool
	mu          sync.Mutex
}

// New validates the wiring and creates a stopped engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Brain == nil {
		return nil, fmt.Errorf("brain is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = DefaultTopics()
	}
	return &Engine{
		brain:       cfg.Brain,
		interval:    cfg.Interval,
		topics:      cfg.Topics,
		logger:      cfg.Logger,
		currentMode: ModeIdle,
	}, nil
}

// Start schedules the autonomous loop.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("autonomy engine already running")
	}
	e.cron = cron.New()
	if _, err := e.cron.AddFunc(fmt.Sprintf("@every %s", e.interval), e.runCycle); err != nil {
		return fmt.Errorf("failed to schedule autonomous cycle: %w", err)
	}
	e.cron.Start()
	e.running = true
	e.logger.Info().Dur("interval", e.interval).Msg("Autonomy engine started")
	return nil
}

// Stop halts scheduling. A cycle already in flight finishes.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.cron.Stop()
	e.running = false
	e.logger.Info().Msg("Autonomy engine stopped")
}

// Running reports whether the scheduler is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Mode returns the mode chosen by the most recent cycle.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentMode
}

// CycleCount returns how many cycles have fired.
func (e *Engine) CycleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cycleCount
}

func (e *Engine) runCycle() {
	e.mu.Lock()
	e.cycleCount++
	cycle := e.cycleCount
	mode := decideMode(cycle)
	e.currentMode = mode
	objective := e.buildObjective(mode, cycle)
	e.mu.Unlock()

	e.logger.Info().Int("cycle", cycle).Str("mode", string(mode)).Msg("Autonomous cycle")
	if objective == "" {
		return
	}
	if _, err := e.brain.Solve(context.Background(), objective); err != nil {
		e.logger.Error().Err(err).Int("cycle", cycle).Msg("Autonomous cycle failed")
	}
}

// decideMode explores first, then settles into a rotation of learning,
// monitoring and creating with idle gaps.
func decideMode(cycle int) Mode {
	if cycle <= 3 {
		return ModeLearning
	}
	switch cycle % 4 {
	case 0:
		return ModeMonitoring
	case 1:
		return ModeLearning
	case 2:
		return ModeCreating
	default:
		return ModeIdle
	}
}

func (e *Engine) buildObjective(mode Mode, cycle int) string {
	switch mode {
	case ModeLearning:
		topic := e.topics[(cycle-1)%len(e.topics)]
		return fmt.Sprintf("Research %q and store what you learn in long-term memory using self_reflect.", topic)
	case ModeMonitoring:
		return "Check the host system's health (disk usage, notable processes) and summarize anything unusual."
	case ModeCreating:
		return "Write a short note about something interesting you learned recently and store it in memory."
	default:
		return ""
	}
}
