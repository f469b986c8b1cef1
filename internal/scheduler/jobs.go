package scheduler

import (
	"encoding/json"

	"github.com/layerpipe/api/internal/model"
)

// CreateJob registers a job in pending status, appends it to the FIFO queue
// and runs the admission pass. The returned snapshot reflects whether the job
// was admitted immediately.
func (s *Scheduler) CreateJob(stage model.Stage) model.PipelineJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := &jobRecord{
		job: model.PipelineJob{
			ID:        s.newID(),
			Stage:     stage,
			Status:    model.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
		done: make(chan struct{}),
	}
	s.jobs[rec.job.ID] = rec
	s.jobOrder = append(s.jobOrder, rec.job.ID)
	s.queue = append(s.queue, rec.job.ID)

	s.admitLocked()

	return copyJob(rec.job)
}

// admitLocked promotes pending jobs from the front of the queue into the
// in-flight set until the concurrency bound is reached. Strict FIFO: slot
// assignment order is fully determined by creation order.
func (s *Scheduler) admitLocked() {
	for len(s.inFlight) < s.maxConcurrent && len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]

		rec, ok := s.jobs[id]
		if !ok || rec.job.Status != model.StatusPending {
			continue
		}
		s.inFlight[id] = struct{}{}
		rec.job.Status = model.StatusProcessing
		rec.job.UpdatedAt = laterOf(s.now(), rec.job.UpdatedAt)
	}
}

// allowedTransition is the job state machine. Terminal states admit nothing,
// which makes duplicate terminal reports no-ops and keeps slot release
// idempotent. Repeating a non-terminal status is a permitted touch.
func allowedTransition(from, to model.Status) bool {
	switch from {
	case model.StatusPending:
		return true
	case model.StatusProcessing:
		return to != model.StatusPending
	default:
		return false
	}
}

// UpdateJobStatus applies a worker-reported status change. Unknown ids and
// transitions out of a terminal state are no-ops. A terminal update records
// the result or error, releases the job's in-flight slot, wakes every waiter
// and re-runs the admission pass. Non-terminal updates never affect queue or
// in-flight membership.
func (s *Scheduler) UpdateJobStatus(id string, status model.Status, result json.RawMessage, errMsg string) {
	s.mu.Lock()

	rec, ok := s.jobs[id]
	if !ok || !allowedTransition(rec.job.Status, status) {
		s.mu.Unlock()
		return
	}

	rec.job.Status = status
	rec.job.UpdatedAt = laterOf(s.now(), rec.job.UpdatedAt)
	switch status {
	case model.StatusCompleted:
		rec.job.Result = cloneBytes(result)
	case model.StatusFailed:
		rec.job.Error = errMsg
	}

	if !status.Terminal() {
		s.mu.Unlock()
		return
	}

	delete(s.inFlight, id)
	s.queue = removeID(s.queue, id)
	close(rec.done)
	s.admitLocked()

	snapshot := copyJob(rec.job)
	hook := s.onTerminal
	s.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
}

// GetJob returns a snapshot of the job, or false if the id is unknown.
func (s *Scheduler) GetJob(id string) (model.PipelineJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return model.PipelineJob{}, false
	}
	return copyJob(rec.job), true
}

// ListPending returns pending jobs in insertion order.
func (s *Scheduler) ListPending() []model.PipelineJob {
	return s.listByStatus(model.StatusPending)
}

// ListProcessing returns in-flight jobs in insertion order.
func (s *Scheduler) ListProcessing() []model.PipelineJob {
	return s.listByStatus(model.StatusProcessing)
}

// ListCompleted returns completed jobs in insertion order.
func (s *Scheduler) ListCompleted() []model.PipelineJob {
	return s.listByStatus(model.StatusCompleted)
}

// ListFailed returns failed jobs in insertion order.
func (s *Scheduler) ListFailed() []model.PipelineJob {
	return s.listByStatus(model.StatusFailed)
}

func (s *Scheduler) listByStatus(status model.Status) []model.PipelineJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.PipelineJob{}
	for _, id := range s.jobOrder {
		rec := s.jobs[id]
		if rec.job.Status == status {
			out = append(out, copyJob(rec.job))
		}
	}
	return out
}

func copyJob(job model.PipelineJob) model.PipelineJob {
	out := job
	out.Result = cloneBytes(job.Result)
	return out
}
