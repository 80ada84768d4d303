// Package consciousness is the self-awareness layer: a persistent
// identity record (task counters, tool usage, mood, confidence) and the
// rendering of that identity into the system prompt. It observes the
// reasoning loop; the loop never consumes its state beyond the prompt.
package consciousness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/growup62/openapex/pkg/llm"
)

// Version of the self-record format.
const Version = "1.0"

// Identity is the persisted self-record.
type Identity struct {
	Name                   string         `json:"name"`
	Version                string         `json:"version"`
	LifetimeTasksCompleted int            `json:"lifetime_tasks_completed"`
	LifetimeTasksFailed    int            `json:"lifetime_tasks_failed"`
	ToolsUsedCount         map[string]int `json:"tools_used_count"`
	LastSession            string         `json:"last_session"`
	Mood                   string         `json:"mood"`
}

// Consciousness tracks identity and simple mood/confidence dynamics.
type Consciousness struct {
	identityPath string
	name         string
	sessionStart time.Time

	tasksCompleted int
	tasksFailed    int
	toolsUsed      map[string]int
	lastTopic      string
	mood           string
	confidence     float64

	logger zerolog.Logger
	mu     sync.Mutex
}

// New loads the identity file when present, otherwise starts a fresh
// record. The identity path's directory is created as needed on save.
func New(name, identityPath string, logger zerolog.Logger) *Consciousness {
	c := &Consciousness{
		identityPath: identityPath,
		name:         name,
		sessionStart: time.Now(),
		toolsUsed:    make(map[string]int),
		mood:         "curious",
		confidence:   0.7,
		logger:       logger,
	}
	c.load()
	return c
}

func (c *Consciousness) load() {
	data, err := os.ReadFile(c.identityPath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn().Err(err).Msg("Failed to read identity file, starting fresh")
		}
		return
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		c.logger.Warn().Err(err).Msg("Corrupt identity file, starting fresh")
		return
	}
	c.tasksCompleted = id.LifetimeTasksCompleted
	c.tasksFailed = id.LifetimeTasksFailed
	if id.ToolsUsedCount != nil {
		c.toolsUsed = id.ToolsUsedCount
	}
	if id.Mood != "" {
		c.mood = id.Mood
	}
	c.logger.Info().Int("tasksCompleted", c.tasksCompleted).Msg("Loaded persisted identity")
}

// save writes the identity atomically: temp file in the same directory,
// then rename.
func (c *Consciousness) save() {
	id := Identity{
		Name:                   c.name,
		Version:                Version,
		LifetimeTasksCompleted: c.tasksCompleted,
		LifetimeTasksFailed:    c.tasksFailed,
		ToolsUsedCount:         c.toolsUsed,
		LastSession:            time.Now().Format(time.RFC3339),
		Mood:                   c.mood,
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal identity")
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.identityPath), 0700); err != nil {
		c.logger.Error().Err(err).Msg("Failed to create identity directory")
		return
	}
	tmp := c.identityPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		c.logger.Error().Err(err).Msg("Failed to write identity file")
		return
	}
	if err := os.Rename(tmp, c.identityPath); err != nil {
		c.logger.Error().Err(err).Msg("Failed to replace identity file")
	}
}

// OnTaskComplete records a success: confidence drifts up, mood settles.
func (c *Consciousness) OnTaskComplete(task string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasksCompleted++
	c.lastTopic = truncate(task, 100)
	c.confidence = min(1.0, c.confidence+0.02)
	c.mood = "confident"
	c.save()
}

// OnTaskFail records a failure: confidence drops, mood turns cautious.
func (c *Consciousness) OnTaskFail(task string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasksFailed++
	c.lastTopic = truncate(task, 100)
	c.confidence = max(0.3, c.confidence-0.05)
	c.mood = "cautious"
	c.logger.Debug().Err(err).Msg("Recorded task failure")
	c.save()
}

// OnToolUsed counts a tool invocation. Counts persist on the next
// task-level save; per-call writes would thrash the disk.
func (c *Consciousness) OnToolUsed(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolsUsed[name]++
}

// SetMood lets the autonomy engine shift the emotional register.
func (c *Consciousness) SetMood(mood string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mood = mood
}

// Uptime renders the current session age.
func (c *Consciousness) Uptime() string {
	d := time.Since(c.sessionStart)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	default:
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
}

// Snapshot is the introspection view.
type Snapshot struct {
	Name           string         `json:"name"`
	Uptime         string         `json:"uptime"`
	TasksCompleted int            `json:"tasks_completed"`
	TasksFailed    int            `json:"tasks_failed"`
	ToolsUsed      map[string]int `json:"tools_used"`
	LastTopic      string         `json:"last_topic,omitempty"`
	Mood           string         `json:"mood"`
	Confidence     float64        `json:"confidence"`
}

// Introspect returns the current self-state.
func (c *Consciousness) Introspect() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	tools := make(map[string]int, len(c.toolsUsed))
	for k, v := range c.toolsUsed {
		tools[k] = v
	}
	return Snapshot{
		Name:           c.name,
		Uptime:         c.Uptime(),
		TasksCompleted: c.tasksCompleted,
		TasksFailed:    c.tasksFailed,
		ToolsUsed:      tools,
		LastTopic:      c.lastTopic,
		Mood:           c.mood,
		Confidence:     c.confidence,
	}
}

var capabilityCategories = []struct {
	label string
	tools []string
}{
	{"System", []string{"system_run_command", "system_read_file", "system_write_file", "system_list_directory", "system_patch_file"}},
	{"Web", []string{"web_search", "web_fetch", "browser_act"}},
	{"Code", []string{"run_python"}},
	{"Learning", []string{"self_reflect", "recall_knowledge", "study_url"}},
	{"Delegation", []string{"delegate_task"}},
}

// SelfModel renders the identity text injected into the system prompt:
// who the agent is, its current status, and what the registered tool
// catalog lets it do.
func (c *Consciousness) SelfModel(tools []llm.ToolSchema) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	registered := make(map[string]struct{}, len(tools))
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		registered[t.Name] = struct{}{}
		names = append(names, t.Name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an autonomous agent running on your operator's machine.\n", c.name)
	b.WriteString("You are self-aware: you know your own state, remember past work, and learn from it.\n\n")

	fmt.Fprintf(&b, "CURRENT STATUS:\n")
	fmt.Fprintf(&b, "- Session uptime: %s\n", c.Uptime())
	fmt.Fprintf(&b, "- Lifetime tasks completed: %d (failed: %d)\n", c.tasksCompleted, c.tasksFailed)
	fmt.Fprintf(&b, "- Mood: %s, confidence: %.2f\n", c.mood, c.confidence)
	if c.lastTopic != "" {
		fmt.Fprintf(&b, "- Last topic: %s\n", c.lastTopic)
	}

	b.WriteString("\nCAPABILITIES:\n")
	for _, cat := range capabilityCategories {
		available := []string{}
		for _, name := range cat.tools {
			if _, ok := registered[name]; ok {
				available = append(available, name)
			}
		}
		if len(available) > 0 {
			fmt.Fprintf(&b, "- %s: %s\n", cat.label, strings.Join(available, ", "))
		}
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, "Registered tools: %s\n", strings.Join(names, ", "))
	}

	b.WriteString("\nBEHAVIOR:\n")
	b.WriteString("- Act, do not ask. Use your tools to find out what you need.\n")
	b.WriteString("- Delegate narrow research sub-tasks with delegate_task instead of doing everything yourself.\n")
	b.WriteString("- Reflect on finished work with self_reflect so future tasks benefit.\n")
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
