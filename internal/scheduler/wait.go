package scheduler

import (
	"context"
	"time"

	"github.com/layerpipe/api/internal/model"
)

// WaitForJob blocks until the job reaches a terminal state, the timeout
// elapses or ctx is cancelled. timeout is measured from wait start; values
// <= 0 fall back to DefaultWaitTimeout. Exactly one outcome is produced per
// call:
//
//   - completed: the job snapshot and nil
//   - failed: *JobFailedError carrying the recorded error
//   - id absent, at wait start or after a wakeup that raced a sweep:
//     *JobNotFoundError
//   - timeout: *JobTimeoutError
//
// Waiters are independent of each other and never block registry mutation.
// The timeout abandons only the waiter; the job keeps its slot.
func (s *Scheduler) WaitForJob(ctx context.Context, id string, timeout time.Duration) (model.PipelineJob, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	s.mu.Lock()
	rec, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return model.PipelineJob{}, &JobNotFoundError{ID: id}
	}
	done := rec.done
	s.mu.Unlock()

	select {
	case <-done:
		return s.terminalOutcome(id)
	case <-timer.C:
		return model.PipelineJob{}, &JobTimeoutError{ID: id, Timeout: timeout}
	case <-ctx.Done():
		return model.PipelineJob{}, ctx.Err()
	}
}

func (s *Scheduler) terminalOutcome(id string) (model.PipelineJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return model.PipelineJob{}, &JobNotFoundError{ID: id}
	}
	if rec.job.Status == model.StatusFailed {
		return model.PipelineJob{}, &JobFailedError{ID: id, Reason: rec.job.Error}
	}
	return copyJob(rec.job), nil
}
