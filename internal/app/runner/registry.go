package runner

import (
	"fmt"
	"sync"

	"github.com/ahrav/taskflow/internal/domain/execution"
)

// TaskFactory builds a fresh task instance from an incoming envelope. The
// factory decodes the envelope's params into the task's typed parameters.
type TaskFactory func(msg execution.Message) (execution.Task, error)

// Registry maps entrypoints to the factories that build their tasks.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]TaskFactory
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]TaskFactory)}
}

// Register binds an entrypoint to a factory. Registering the same entrypoint
// twice replaces the previous factory.
func (r *Registry) Register(entrypoint string, factory TaskFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[entrypoint] = factory
}

// Entrypoints returns every registered entrypoint.
func (r *Registry) Entrypoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for ep := range r.factories {
		out = append(out, ep)
	}
	return out
}

// Resolve returns the factory bound to the entrypoint.
func (r *Registry) Resolve(entrypoint string) (TaskFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[entrypoint]
	if !ok {
		return nil, fmt.Errorf("no task registered for entrypoint %q", entrypoint)
	}
	return factory, nil
}
