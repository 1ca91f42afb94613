package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorded is one call captured by Recorder
type Recorded struct {
	Task    string
	Payload any
	RunAt   *time.Time
	Group   string
}

// Recorder is an in-memory Enqueuer that only remembers what was enqueued.
// Tests use it to assert fan-out without running the jobs.
type Recorder struct {
	mu    sync.Mutex
	Calls []Recorded
	Err   error
}

var _ Enqueuer = (*Recorder)(nil)

// Enqueue records the call
func (r *Recorder) Enqueue(_ context.Context, task string, payload any, opts ...Option) (uuid.UUID, error) {
	o := enqueueOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return uuid.Nil, r.Err
	}
	r.Calls = append(r.Calls, Recorded{Task: task, Payload: payload, RunAt: o.runAt, Group: o.group})
	return uuid.New(), nil
}

// Tasks returns the task names in call order
func (r *Recorder) Tasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		names[i] = c.Task
	}
	return names
}

// Find returns the calls for one task
func (r *Recorder) Find(task string) []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Recorded
	for _, c := range r.Calls {
		if c.Task == task {
			out = append(out, c)
		}
	}
	return out
}
