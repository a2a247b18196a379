package operations

import (
	"fmt"
	"sync"
)

// Registry holds the pipeline steps in execution order
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
	order []string // Maintains registration order
}

// NewRegistry creates an empty Step registry
func NewRegistry() *Registry {
	return &Registry{
		steps: make(map[string]Step),
		order: make([]string, 0),
	}
}

// Register appends a Step to the registry.
// Dependencies must already be registered and the phase may not decrease,
// so registration order is always a valid execution order.
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("cannot register nil Step")
	}

	id := step.ID()
	if id == "" {
		return fmt.Errorf("Step ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[id]; exists {
		return fmt.Errorf("Step with ID %s already registered", id)
	}
	for _, dep := range step.GetDependencies() {
		if _, exists := r.steps[dep]; !exists {
			return fmt.Errorf("Step %s depends on unregistered Step %s", id, dep)
		}
	}
	if n := len(r.order); n > 0 {
		if last := r.steps[r.order[n-1]]; step.Phase() < last.Phase() {
			return fmt.Errorf("Step %s (phase %d) registered after phase %d", id, step.Phase(), last.Phase())
		}
	}

	r.steps[id] = step
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a Step by ID
func (r *Registry) Get(id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, exists := r.steps[id]
	if !exists {
		return nil, fmt.Errorf("Step with ID %s not found", id)
	}
	return step, nil
}

// List returns all steps in registration order
func (r *Registry) List() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := make([]Step, 0, len(r.order))
	for _, id := range r.order {
		steps = append(steps, r.steps[id])
	}
	return steps
}

// Count returns the number of registered steps
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}
