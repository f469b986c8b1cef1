package scheduler

import (
	"time"

	"github.com/layerpipe/api/internal/model"
)

// ClearCompletedJobs deletes every completed job whose UpdatedAt is older
// than now-olderThan and returns the number removed. Pending, processing and
// failed jobs are never swept regardless of age; failed jobs stay around for
// inspection. The sweep is synchronous — scheduling it is the caller's job.
func (s *Scheduler) ClearCompletedJobs(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	removed := 0
	kept := s.jobOrder[:0]
	for _, id := range s.jobOrder {
		rec := s.jobs[id]
		if rec.job.Status == model.StatusCompleted && rec.job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.jobOrder = kept
	return removed
}
