package job

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xraph/freekiq"
)

// HandlerFunc is a type-erased job handler that accepts raw JSON payload.
type HandlerFunc func(ctx context.Context, payload []byte) error

type entry struct {
	handler HandlerFunc
	opts    Options
}

// Registry maps job names to handlers and their declared options.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// RegisterDefinition registers a typed job definition. The payload is
// JSON-decoded into T before the typed handler runs.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	handler := func(ctx context.Context, payload []byte) error {
		var t T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &t); err != nil {
				return fmt.Errorf("unmarshal payload for job %q: %w", def.Name, err)
			}
		}
		return def.Handler(ctx, t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[def.Name] = entry{handler: handler, opts: def.Opts}
}

// Get returns the handler for the given job name.
func (r *Registry) Get(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.handler, ok
}

// Options returns the options declared on the definition.
func (r *Registry) Options(name string) (Options, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.opts, ok
}

// Policy returns the job-class free-retry policy. Unknown names yield the
// zero Policy, which defers to the engine defaults.
func (r *Registry) Policy(name string) freekiq.Policy {
	opts, _ := r.Options(name)
	return opts.FreeRetry
}

// Names returns all registered job names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}
