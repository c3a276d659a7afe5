package lifecycle

import (
	"sort"
	"sync"
	"time"

	"github.com/Iron-Ham/conclave/internal/errors"
)

// Registry tracks the targets that currently have a run in flight. Each
// Controller is given its own Registry; there is no process-wide state.
type Registry struct {
	mu      sync.Mutex
	running map[string]time.Time // targetID -> acquired at
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{running: make(map[string]time.Time)}
}

// Acquire marks targetID as running. It fails with ErrAlreadyRunning, and
// leaves the registry unchanged, when the target is already held.
func (r *Registry) Acquire(targetID string) error {
	if targetID == "" {
		return errors.NewValidationError("target id must not be empty").WithField("target")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.running[targetID]; ok {
		return errors.NewAlreadyExistsError("run", targetID).WithCause(errors.ErrAlreadyRunning)
	}
	r.running[targetID] = time.Now()
	return nil
}

// Release clears targetID. Releasing a target that is not held is a no-op.
func (r *Registry) Release(targetID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, targetID)
}

// IsRunning reports whether targetID is held.
func (r *Registry) IsRunning(targetID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[targetID]
	return ok
}

// Active returns the held targets, sorted.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.running))
	for id := range r.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
