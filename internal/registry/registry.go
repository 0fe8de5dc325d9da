// Package registry provides the in-memory run registry. It is the single
// source of truth for run status; all synchronization is internal and no
// caller ever sees a pointer into the registry's own state.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/llmsc-security/swe-agent-api/internal/domain"
)

// Registry maps run ids to run records. State is lost on process restart;
// that is a stated limitation of the service, not something the registry
// papers over.
type Registry struct {
	mu    sync.RWMutex
	runs  map[string]*domain.Run
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{runs: make(map[string]*domain.Run)}
}

// Create inserts a new run in the queued state. An id already held by a
// non-terminal run is rejected with domain.ErrDuplicateRun; an id whose run
// has finished may be reused, replacing the old record.
func (r *Registry) Create(id, problem string) (*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.runs[id]; ok {
		if !existing.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: %s is %s", domain.ErrDuplicateRun, id, existing.Status)
		}
		r.removeFromOrder(id)
	}

	run := &domain.Run{
		ID:        id,
		Problem:   problem,
		Status:    domain.RunStatusQueued,
		CreatedAt: time.Now(),
	}
	r.runs[id] = run
	r.order = append(r.order, id)
	return run.Clone(), nil
}

// Get returns a snapshot of the run with the given id.
func (r *Registry) Get(id string) (*domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return run.Clone(), nil
}

// Transition moves the run to the next status, atomically with respect to
// concurrent reads of the same id. result is recorded only for completed,
// errMsg only for failed. Illegal moves fail with
// domain.ErrInvalidTransition and leave the run unchanged.
func (r *Registry) Transition(id string, next domain.RunStatus, result, errMsg string) (*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if !run.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s for %s", domain.ErrInvalidTransition, run.Status, next, id)
	}

	run.Status = next
	switch next {
	case domain.RunStatusCompleted:
		run.Result = result
	case domain.RunStatusFailed:
		run.Error = errMsg
	}
	if next.IsTerminal() {
		now := time.Now()
		run.EndedAt = &now
	}
	return run.Clone(), nil
}

// List returns a snapshot of all runs in insertion order.
func (r *Registry) List() []*domain.Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Run, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.runs[id].Clone())
	}
	return out
}

// Clear removes all runs. Used on service teardown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = make(map[string]*domain.Run)
	r.order = nil
}

func (r *Registry) removeFromOrder(id string) {
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
