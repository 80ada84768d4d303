package toolexecutor

import (
	"context"
	"fmt"

	"github.com/growup62/openapex/pkg/llm"
)

// allowlisted is a Dispatcher restricted to a fixed name set. The
// restriction lives in the dispatcher itself, so a sub-agent cannot
// reach tools outside its granted catalog no matter what its model asks
// for.
type allowlisted struct {
	parent  *Executor
	allowed map[string]struct{}
}

// WithAllowlist returns a restricted view of the registry.
func (e *Executor) WithAllowlist(names []string) Dispatcher {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}
	return &allowlisted{parent: e, allowed: allowed}
}

func (d *allowlisted) Execute(ctx context.Context, name string, arguments string) (string, error) {
	if _, ok := d.allowed[name]; !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotPermitted, name)
	}
	return d.parent.Execute(ctx, name, arguments)
}

// Schemas returns the parent schemas that fall inside the allowlist.
func (d *allowlisted) Schemas() []llm.ToolSchema {
	out := []llm.ToolSchema{}
	for _, schema := range d.parent.Schemas() {
		if _, ok := d.allowed[schema.Name]; ok {
			out = append(out, schema)
		}
	}
	return out
}
