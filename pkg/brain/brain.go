// Package brain is the top-level orchestrator: it owns the main agent,
// the execution state machine and the task stack, and drives the
// plan/act/observe loop that turns a user request into a final answer.
package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/growup62/openapex/pkg/agent"
	"github.com/growup62/openapex/pkg/llm"
	"github.com/growup62/openapex/pkg/state"
	"github.com/growup62/openapex/pkg/swarm"
	"github.com/growup62/openapex/pkg/toolcall"
	"github.com/growup62/openapex/pkg/toolexecutor"
)

// ErrIterationCeiling is returned when a task burns through the whole
// iteration budget without reaching a terminal answer.
var ErrIterationCeiling = errors.New("iteration ceiling exceeded")

// CoreToolNames is the survival subset registered on the main agent.
// The rest of the catalog stays reachable through delegation, which
// keeps the system prompt's token cost down.
var CoreToolNames = []string{
	"system_run_command",
	"system_read_file",
	"system_list_directory",
	"system_patch_file",
	"web_search",
	"self_reflect",
	"recall_knowledge",
	"run_python",
}

// Config assembles a Brain. Gateway and Executor are required; the
// remaining collaborators are optional and skipped when nil.
type Config struct {
	Gateway       agent.Gateway
	Executor      *toolexecutor.Executor
	Delegator     Delegator
	Memory        EpisodicMemory
	Reflector     Reflector
	SelfModel     SelfModel
	CoreTools     []string
	MaxIterations int
	Logger        zerolog.Logger
}

// Brain drives the cognitive loop.
type Brain struct {
	gateway   agent.Gateway
	agent     *agent.Agent
	machine   *state.Machine
	executor  *toolexecutor.Executor
	delegator Delegator
	memory    EpisodicMemory
	reflector Reflector
	selfModel SelfModel

	// tasks is a LIFO stack. Solve pushes one task per call; the stack
	// form keeps nested pushes working.
	tasks []string

	// mu serializes Solve: the autonomy engine submits objectives from
	// its own goroutine and the loop is not reentrant.
	mu sync.Mutex

	logger zerolog.Logger
}

// New wires the brain and registers the core tool subset plus the
// delegation tool on the main agent.
func New(cfg Config) (*Brain, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	b := &Brain{
		gateway:   cfg.Gateway,
		machine:   state.NewMachine(cfg.MaxIterations, cfg.Logger),
		executor:  cfg.Executor,
		delegator: cfg.Delegator,
		memory:    cfg.Memory,
		reflector: cfg.Reflector,
		selfModel: cfg.SelfModel,
		logger:    cfg.Logger,
	}

	b.agent = agent.New("openApex", "the primary orchestrating intelligence of this system", cfg.Gateway, cfg.Logger)

	coreTools := cfg.CoreTools
	if coreTools == nil {
		coreTools = CoreToolNames
	}
	for _, name := range coreTools {
		if schema, ok := cfg.Executor.Schema(name); ok {
			b.agent.RegisterTool(schema)
		}
	}
	if b.delegator != nil {
		b.agent.RegisterTool(swarm.DelegateTaskSchema())
	}

	b.refreshIdentity()
	return b, nil
}

// refreshIdentity re-renders the self-model into the system prompt.
func (b *Brain) refreshIdentity() {
	if b.selfModel == nil {
		return
	}
	prompt := b.selfModel.SelfModel(b.agent.Tools()) + "\n\n" + agent.ToolGuidelines
	b.agent.SetSystemPrompt(prompt)
}

// State returns the current execution state.
func (b *Brain) State() state.State {
	return b.machine.Current()
}

// Snapshot returns the execution state and iteration counter.
func (b *Brain) Snapshot() state.Snapshot {
	return b.machine.Snapshot()
}

// Solve runs the full cognitive loop for one request and returns the
// terminal answer. Tool failures become observations and the loop keeps
// going; only gateway failure or the iteration ceiling abort the task.
func (b *Brain) Solve(ctx context.Context, userRequest string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logger.Info().Str("task", truncate(userRequest, 80)).Msg("Starting resolution")

	input := "Current objective: " + userRequest
	if hint := b.recallHint(ctx, userRequest); hint != "" {
		input += hint
	}

	_ = b.machine.SetState(state.Planning)
	b.tasks = append(b.tasks, userRequest)

	var finalAnswer string
	var loopErr error

loop:
	for len(b.tasks) > 0 {
		if !b.machine.Increment() {
			loopErr = ErrIterationCeiling
			break
		}

		currentTask := b.tasks[len(b.tasks)-1]

		res, err := b.agent.Cycle(ctx, input, true)
		input = ""
		if err != nil {
			_ = b.machine.SetState(state.Error)
			loopErr = fmt.Errorf("agent cycle failed: %w", err)
			break
		}

		switch res.Status {
		case agent.StatusToolRequested:
			_ = b.machine.SetState(state.Executing)
			for _, call := range res.ToolCalls {
				b.observeToolCall(ctx, call)
			}

		case agent.StatusSuccess:
			finalAnswer = res.Response
			b.completeTask(ctx, currentTask, finalAnswer)
			b.tasks = b.tasks[:len(b.tasks)-1]
			_ = b.machine.SetState(state.Verifying)

		default:
			// Neither text nor tool calls; give the loop another turn
			// until the iteration guard decides otherwise.
			b.logger.Warn().Str("status", string(res.Status)).Msg("Cycle produced no actionable output")
			continue loop
		}
	}

	if loopErr != nil {
		if b.selfModel != nil {
			b.selfModel.OnTaskFail(userRequest, loopErr)
		}
		// Abandon whatever is still stacked.
		b.tasks = b.tasks[:0]
		b.logger.Error().Err(loopErr).Msg("Task abandoned")
		_ = b.machine.SetState(state.Idle)
		return "", loopErr
	}

	_ = b.machine.SetState(state.Idle)
	b.logger.Info().Msg("All tasks processed")
	return finalAnswer, nil
}

// recallHint surfaces the closest past episode before planning starts.
func (b *Brain) recallHint(ctx context.Context, task string) string {
	if b.memory == nil {
		return ""
	}
	recalls, err := b.memory.SearchSimilar(ctx, task, 3)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Pre-task recall failed")
		return ""
	}
	if len(recalls) == 0 {
		return ""
	}
	b.logger.Info().Int("memories", len(recalls)).Msg("Pre-task recall found relevant experience")
	return "\n\n[Past Experience]: " + truncate(recalls[0].Content, 300)
}

// completeTask runs the post-task hooks exactly once per successful task.
func (b *Brain) completeTask(ctx context.Context, task, answer string) {
	if b.memory != nil {
		if _, err := b.memory.StoreEpisode(ctx, task, answer); err != nil {
			b.logger.Error().Err(err).Msg("Failed to store episode")
		}
	}
	if b.reflector != nil {
		if err := b.reflector.ReflectOnTask(ctx, task, answer); err != nil {
			b.logger.Warn().Err(err).Msg("Post-task reflection failed")
		}
	}
	if b.selfModel != nil {
		b.selfModel.OnTaskComplete(task)
	}
	b.logger.Info().Msg("Task completed, stored and reflected")
}

func (b *Brain) observeToolCall(ctx context.Context, call toolcall.Call) {
	if b.selfModel != nil {
		b.selfModel.OnToolUsed(call.Name)
	}
	observation := b.dispatch(ctx, call)
	b.agent.Observe(llm.Message{Role: "tool", Content: observation, ToolCallID: call.ID, Name: call.Name})
}

// dispatch resolves one tool call against the executor, or the swarm for
// delegate_task, and serializes the outcome as an observation string.
func (b *Brain) dispatch(ctx context.Context, call toolcall.Call) string {
	if call.Name == swarm.ToolName && b.delegator != nil {
		return b.delegateTask(ctx, call.Arguments)
	}

	out, err := b.executor.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		var argErr *toolexecutor.ArgumentError
		if errors.As(err, &argErr) {
			b.logger.Warn().Str("tool", call.Name).Str("reason", argErr.Reason).Msg("Malformed tool arguments")
			return "Error: Failed to parse tool arguments as JSON."
		}
		b.logger.Warn().Str("tool", call.Name).Err(err).Msg("Tool execution failed")
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return out
}

func (b *Brain) delegateTask(ctx context.Context, arguments string) string {
	var args struct {
		RoleName        string   `json:"role_name"`
		TaskDescription string   `json:"task_description"`
		AllowedTools    []string `json:"allowed_tools"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "Error: Failed to parse tool arguments as JSON."
	}
	if args.RoleName == "" || args.TaskDescription == "" {
		return `{"error": "missing 'role_name' or 'task_description'"}`
	}

	result := b.delegator.Delegate(ctx, args.RoleName, args.TaskDescription, args.AllowedTools)
	payload, _ := json.Marshal(map[string]string{"sub_agent_result": result})
	return string(payload)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
