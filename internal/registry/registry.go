// Package registry tracks the analysis pipelines currently running in this
// process. A job is registered when its pipeline is dispatched and released
// when it reaches a terminal state, so duplicate concurrent runs for the
// same job id can be rejected and in-flight jobs can be cancelled.
package registry

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type Registry struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]context.CancelFunc
}

func New() *Registry {
	return &Registry{jobs: map[uuid.UUID]context.CancelFunc{}}
}

// Acquire registers a job as running. It returns false when the job is
// already running, in which case the caller must not start a second
// pipeline.
func (r *Registry) Acquire(id uuid.UUID, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, running := r.jobs[id]; running {
		return false
	}
	r.jobs[id] = cancel
	return true
}

// Release deregisters a job once its pipeline reaches a terminal state.
func (r *Registry) Release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// Cancel cancels a running job. Returns false when the job is not running.
func (r *Registry) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	cancel, running := r.jobs[id]
	r.mu.Unlock()
	if !running {
		return false
	}
	cancel()
	return true
}

// Running reports the number of pipelines currently registered.
func (r *Registry) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
