// Package scheduler implements the in-memory layer and job manager: a layer
// registry, a job registry with bounded FIFO admission, a completion waiter,
// and a retention sweep. All state belongs to a single Scheduler instance;
// callers receive value copies and mutate only through its methods.
package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/layerpipe/api/internal/model"
)

// Defaults for the configuration surface. All of them are overridable per
// call or at construction.
const (
	DefaultMaxConcurrentJobs = 3
	DefaultWaitTimeout       = 5 * time.Minute
	DefaultRetention         = time.Hour
)

type jobRecord struct {
	job  model.PipelineJob
	done chan struct{} // closed exactly once, on the terminal transition
}

// Scheduler owns the layer and job registries, the pending FIFO queue and the
// bounded in-flight set. One mutex guards all of them; every operation other
// than WaitForJob runs to completion without blocking.
type Scheduler struct {
	mu sync.Mutex

	layers     map[string]*model.AudioLayer
	layerOrder []string

	jobs     map[string]*jobRecord
	jobOrder []string
	queue    []string
	inFlight map[string]struct{}

	maxConcurrent int
	newID         func() string
	now           func() time.Time
	onTerminal    func(model.PipelineJob)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxConcurrentJobs bounds the in-flight set. Values below 1 are ignored.
func WithMaxConcurrentJobs(n int) Option {
	return func(s *Scheduler) {
		if n >= 1 {
			s.maxConcurrent = n
		}
	}
}

// WithIDGenerator injects the unique-id source used for layers and jobs.
func WithIDGenerator(f func() string) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.newID = f
		}
	}
}

// WithClock injects the time source. Used by tests to drive retention.
func WithClock(f func() time.Time) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.now = f
		}
	}
}

// WithTerminalHook registers a callback invoked after every effective
// completed/failed transition, outside the registry lock.
func WithTerminalHook(f func(model.PipelineJob)) Option {
	return func(s *Scheduler) {
		s.onTerminal = f
	}
}

// New creates a Scheduler with empty registries.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		layers:        make(map[string]*model.AudioLayer),
		jobs:          make(map[string]*jobRecord),
		inFlight:      make(map[string]struct{}),
		maxConcurrent: DefaultMaxConcurrentJobs,
		newID:         uuid.NewString,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns registry-wide counters, computed fresh on each call.
func (s *Scheduler) Stats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := model.Stats{
		TotalLayers: len(s.layers),
		TotalJobs:   len(s.jobs),
	}
	for _, rec := range s.jobs {
		switch rec.job.Status {
		case model.StatusPending:
			st.PendingJobs++
		case model.StatusProcessing:
			st.ProcessingJobs++
		case model.StatusCompleted:
			st.CompletedJobs++
		case model.StatusFailed:
			st.FailedJobs++
		}
	}
	return st
}

// monotonic bump: UpdatedAt never moves backwards even with a skewed clock
func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func cloneMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
