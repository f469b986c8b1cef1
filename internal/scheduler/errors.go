package scheduler

import (
	"fmt"
	"time"
)

// JobNotFoundError is returned by WaitForJob when the job id is absent from
// the registry, either at wait start or after a wakeup that raced a sweep.
type JobNotFoundError struct {
	ID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job %s not found", e.ID)
}

// JobFailedError is returned by WaitForJob when the awaited job reached the
// failed state. Reason carries the worker-reported error, possibly empty.
type JobFailedError struct {
	ID     string
	Reason string
}

func (e *JobFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("job %s failed", e.ID)
	}
	return fmt.Sprintf("job %s failed: %s", e.ID, e.Reason)
}

// JobTimeoutError is returned by WaitForJob when no terminal state was
// observed within the timeout, measured from wait start.
type JobTimeoutError struct {
	ID      string
	Timeout time.Duration
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for job %s", e.Timeout, e.ID)
}
