// Package swarm spawns ephemeral role-scoped sub-agents. A sub-agent is
// created for exactly one task, driven synchronously to a terminal
// answer, and discarded; nothing about it survives the call.
package swarm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/growup62/openapex/pkg/agent"
	"github.com/growup62/openapex/pkg/llm"
	"github.com/growup62/openapex/pkg/state"
	"github.com/growup62/openapex/pkg/toolexecutor"
)

// Config assembles a Delegator.
type Config struct {
	Gateway  agent.Gateway
	Executor *toolexecutor.Executor

	// ParentTools names the tools registered on the delegating agent.
	// Every grant is intersected with this set, so a sub-agent can never
	// hold a tool its parent does not. Nil leaves the executor catalog
	// as the only bound.
	ParentTools []string

	MaxIterations int
	Logger        zerolog.Logger
}

// Delegator creates and runs sub-agents on behalf of a parent loop.
type Delegator struct {
	gateway       agent.Gateway
	executor      *toolexecutor.Executor
	parentTools   map[string]struct{}
	maxIterations int
	logger        zerolog.Logger

	active map[string]*agent.Agent
	mu     sync.Mutex
}

// New validates the wiring and creates a delegator.
func New(cfg Config) (*Delegator, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = state.DefaultMaxIterations
	}
	var parent map[string]struct{}
	if cfg.ParentTools != nil {
		parent = make(map[string]struct{}, len(cfg.ParentTools))
		for _, name := range cfg.ParentTools {
			parent[name] = struct{}{}
		}
	}
	return &Delegator{
		gateway:       cfg.Gateway,
		executor:      cfg.Executor,
		parentTools:   parent,
		maxIterations: cfg.MaxIterations,
		logger:        cfg.Logger,
		active:        make(map[string]*agent.Agent),
	}, nil
}

// ActiveCount reports how many sub-agents are currently running.
func (d *Delegator) ActiveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.active)
}

// Delegate spawns a sub-agent for one task and blocks until it finishes.
// Every failure mode, iteration ceiling and handler panics included,
// comes back as an error string: a sub-agent failure is an observation
// for the parent, never a reason to force the parent into ERROR.
func (d *Delegator) Delegate(ctx context.Context, role, taskDescription string, allowedTools []string) (result string) {
	suffix, err := gonanoid.New(6)
	if err != nil {
		return fmt.Sprintf("Error evaluating sub-task: %v", err)
	}
	agentID := fmt.Sprintf("SubAgent-%s-%s", sanitizeRole(role), suffix)
	d.logger.Info().Str("subagent", agentID).Str("role", role).Msg("Spawning sub-agent")

	rolePrompt := fmt.Sprintf(
		"You are %s, an ephemeral specialist spawned by a parent agent. "+
			"Your role: %s. "+
			"Stay narrowly focused on the single task you are given and nothing else. "+
			"Finish with a comprehensive final answer your parent can use directly.",
		agentID, role,
	)
	sub := agent.New(agentID, rolePrompt, d.gateway, d.logger,
		agent.WithTaskTypes(llm.TaskSwarmWorker, llm.TaskSwarmWorker))

	if allowedTools == nil {
		allowedTools = DefaultAllowedTools()
	}
	allowedTools = d.restrictToParent(allowedTools)
	granted := make(map[string]struct{}, len(allowedTools))
	for _, name := range allowedTools {
		granted[name] = struct{}{}
	}
	for _, schema := range d.executor.Schemas() {
		if _, ok := granted[schema.Name]; ok {
			sub.RegisterTool(schema)
		}
	}

	d.mu.Lock()
	d.active[agentID] = sub
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.active, agentID)
		d.mu.Unlock()
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Str("subagent", agentID).Msg("Sub-agent panicked")
			result = fmt.Sprintf("Error evaluating sub-task: panic: %v", r)
		}
	}()

	return d.run(ctx, sub, agentID, taskDescription, allowedTools)
}

// run drives the sub-agent's own plan/act/observe loop on a fresh state
// machine with an allowlisted dispatcher.
func (d *Delegator) run(ctx context.Context, sub *agent.Agent, agentID, taskDescription string, allowedTools []string) string {
	dispatcher := d.executor.WithAllowlist(allowedTools)
	machine := state.NewMachine(d.maxIterations, d.logger.With().Str("subagent", agentID).Logger())
	_ = machine.SetState(state.Planning)

	input := "Current objective: " + taskDescription
	for {
		if !machine.Increment() {
			return fmt.Sprintf("Error evaluating sub-task: no answer after %d cycles", d.maxIterations)
		}

		res, err := sub.Cycle(ctx, input, false)
		input = ""
		if err != nil {
			d.logger.Error().Err(err).Str("subagent", agentID).Msg("Sub-agent cycle failed")
			return fmt.Sprintf("Error evaluating sub-task: %v", err)
		}

		switch res.Status {
		case agent.StatusToolRequested:
			_ = machine.SetState(state.Executing)
			for _, call := range res.ToolCalls {
				observation, execErr := dispatcher.Execute(ctx, call.Name, call.Arguments)
				if execErr != nil {
					observation = fmt.Sprintf(`{"error": %q}`, execErr.Error())
				}
				sub.Observe(llm.Message{Role: "tool", Content: observation, ToolCallID: call.ID, Name: call.Name})
			}

		case agent.StatusSuccess:
			_ = machine.SetState(state.Verifying)
			_ = machine.SetState(state.Idle)
			d.logger.Info().Str("subagent", agentID).Msg("Sub-agent completed the task")
			return res.Response

		default:
			return fmt.Sprintf("Error evaluating sub-task: unexpected cycle status %q", res.Status)
		}
	}
}

// restrictToParent drops grant names the delegating agent never held.
func (d *Delegator) restrictToParent(allowed []string) []string {
	if d.parentTools == nil {
		return allowed
	}
	kept := make([]string, 0, len(allowed))
	for _, name := range allowed {
		if _, ok := d.parentTools[name]; ok {
			kept = append(kept, name)
		}
	}
	return kept
}

func sanitizeRole(role string) string {
	return strings.ReplaceAll(strings.TrimSpace(role), " ", "-")
}
