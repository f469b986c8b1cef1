package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/layerpipe/api/internal/model"
	"github.com/layerpipe/api/internal/scheduler"
)

// StageRunner simulates the external workers that perform stage work. It
// receives job ids out-of-band, waits for the scheduler to admit each job,
// fakes the stage's work and reports the outcome through UpdateJobStatus —
// the same surface a real worker fleet would use. Development and demo only.
type StageRunner struct {
	scheduler *scheduler.Scheduler
	dispatch  chan dispatchedJob
}

type dispatchedJob struct {
	id    string
	stage model.Stage
}

// NewStageRunner creates a runner bound to the scheduler's public operations.
func NewStageRunner(s *scheduler.Scheduler) *StageRunner {
	return &StageRunner{
		scheduler: s,
		dispatch:  make(chan dispatchedJob, 64),
	}
}

// Dispatch hands a job id to the runner. Non-blocking; if the buffer is full
// the job is dropped and will simply never reach a terminal state, which the
// waiter surfaces as a timeout.
func (r *StageRunner) Dispatch(id string, stage model.Stage) {
	select {
	case r.dispatch <- dispatchedJob{id: id, stage: stage}:
	default:
		log.Printf("Stage runner backlog full, dropping job %s", id)
	}
}

// Run consumes dispatched jobs until ctx is cancelled. Each job is processed
// in its own goroutine so the scheduler's concurrency bound, not the runner,
// decides how many run at once.
func (r *StageRunner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-r.dispatch:
			go r.process(ctx, d.id, d.stage)
		}
	}
}

func (r *StageRunner) process(ctx context.Context, id string, stage model.Stage) {
	if !r.awaitAdmission(ctx, id) {
		return
	}

	log.Printf("Starting %s job: %s", stage, id)

	duration, result, err := simulateStage(id, stage)
	select {
	case <-ctx.Done():
		return
	case <-time.After(duration):
	}

	if err != nil {
		r.scheduler.UpdateJobStatus(id, model.StatusFailed, nil, err.Error())
		log.Printf("Job %s failed: %v", id, err)
		return
	}

	r.scheduler.UpdateJobStatus(id, model.StatusCompleted, result, "")
	log.Printf("Job %s completed", id)
}

// awaitAdmission polls the public GetJob until the scheduler promotes the job
// to processing. Workers receive ids before admission, so this mirrors a real
// worker holding off until its job holds a slot.
func (r *StageRunner) awaitAdmission(ctx context.Context, id string) bool {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		job, ok := r.scheduler.GetJob(id)
		if !ok || job.Status.Terminal() {
			return false
		}
		if job.Status == model.StatusProcessing {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func simulateStage(id string, stage model.Stage) (time.Duration, json.RawMessage, error) {
	switch stage {
	case model.StageSpeechSynthesis:
		return 300 * time.Millisecond,
			json.RawMessage(fmt.Sprintf(`{"audioUrl":"https://cdn.layerpipe.dev/audio/%s.wav","durationMs":12000}`, id)), nil
	case model.StageAudioConversion:
		return 200 * time.Millisecond,
			json.RawMessage(`{"format":"wav","sampleRate":48000}`), nil
	case model.StageRepositoryScrape:
		return 400 * time.Millisecond,
			json.RawMessage(`{"repositories":12,"skills":["go","typescript"]}`), nil
	case model.StageReportGeneration:
		return 250 * time.Millisecond,
			json.RawMessage(fmt.Sprintf(`{"reportUrl":"https://cdn.layerpipe.dev/reports/%s.pdf"}`, id)), nil
	default:
		return 50 * time.Millisecond, nil, fmt.Errorf("no worker registered for stage %q", stage)
	}
}
