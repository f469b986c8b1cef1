package scheduler

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/layerpipe/api/internal/model"
)

func TestAdmissionUpToCapacity(t *testing.T) {
	s := newTestScheduler() // default capacity 3

	var jobs []model.PipelineJob
	for i := 0; i < 5; i++ {
		jobs = append(jobs, s.CreateJob(model.StageAudioConversion))
	}

	for i := 0; i < 3; i++ {
		if jobs[i].Status != model.StatusProcessing {
			t.Errorf("job %d: expected processing at creation, got %s", i+1, jobs[i].Status)
		}
	}
	for i := 3; i < 5; i++ {
		if jobs[i].Status != model.StatusPending {
			t.Errorf("job %d: expected pending at creation, got %s", i+1, jobs[i].Status)
		}
	}

	pending := s.ListPending()
	if len(pending) != 2 || pending[0].ID != jobs[3].ID || pending[1].ID != jobs[4].ID {
		t.Errorf("expected queue [%s %s], got %v", jobs[3].ID, jobs[4].ID, pending)
	}
}

func TestSlotReleaseAdmitsNextInFIFOOrder(t *testing.T) {
	s := newTestScheduler()

	var jobs []model.PipelineJob
	for i := 0; i < 5; i++ {
		jobs = append(jobs, s.CreateJob(model.StageAudioConversion))
	}

	s.UpdateJobStatus(jobs[0].ID, model.StatusCompleted, nil, "")

	assertJobStatus(t, s, jobs[0].ID, model.StatusCompleted)
	assertJobStatus(t, s, jobs[3].ID, model.StatusProcessing)
	assertJobStatus(t, s, jobs[4].ID, model.StatusPending)

	processing := s.ListProcessing()
	if len(processing) != 3 {
		t.Fatalf("expected 3 in flight after release, got %d", len(processing))
	}

	// failing a slot holder admits the last pending job
	s.UpdateJobStatus(jobs[1].ID, model.StatusFailed, nil, "worker crashed")
	assertJobStatus(t, s, jobs[4].ID, model.StatusProcessing)
	if n := len(s.ListPending()); n != 0 {
		t.Errorf("expected empty queue, got %d pending", n)
	}
}

func TestConcurrencyBoundHeld(t *testing.T) {
	s := newTestScheduler(WithMaxConcurrentJobs(2))

	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, s.CreateJob(model.StageRepositoryScrape).ID)
		if n := len(s.ListProcessing()); n > 2 {
			t.Fatalf("in-flight bound exceeded: %d", n)
		}
	}
	for _, id := range ids {
		s.UpdateJobStatus(id, model.StatusCompleted, nil, "")
		if n := len(s.ListProcessing()); n > 2 {
			t.Fatalf("in-flight bound exceeded after release: %d", n)
		}
	}
}

func TestDuplicateTerminalReportIsNoOp(t *testing.T) {
	s := newTestScheduler(WithMaxConcurrentJobs(1))

	j1 := s.CreateJob(model.StageAudioConversion)
	j2 := s.CreateJob(model.StageAudioConversion)
	j3 := s.CreateJob(model.StageAudioConversion)

	s.UpdateJobStatus(j1.ID, model.StatusCompleted, nil, "")
	assertJobStatus(t, s, j2.ID, model.StatusProcessing)

	// re-reporting must not double-release the slot and admit j3 early
	s.UpdateJobStatus(j1.ID, model.StatusCompleted, nil, "")
	assertJobStatus(t, s, j3.ID, model.StatusPending)
	if n := len(s.ListProcessing()); n != 1 {
		t.Errorf("expected 1 in flight, got %d", n)
	}
}

func TestNoTransitionOutOfTerminalState(t *testing.T) {
	s := newTestScheduler()

	job := s.CreateJob(model.StageSpeechSynthesis)
	s.UpdateJobStatus(job.ID, model.StatusFailed, nil, "synthesis failed")

	s.UpdateJobStatus(job.ID, model.StatusPending, nil, "")
	assertJobStatus(t, s, job.ID, model.StatusFailed)

	s.UpdateJobStatus(job.ID, model.StatusProcessing, nil, "")
	assertJobStatus(t, s, job.ID, model.StatusFailed)

	// not even to the other terminal state
	s.UpdateJobStatus(job.ID, model.StatusCompleted, json.RawMessage(`{}`), "")
	got, _ := s.GetJob(job.ID)
	if got.Status != model.StatusFailed || got.Result != nil {
		t.Errorf("terminal job mutated: status=%s result=%s", got.Status, got.Result)
	}
}

func TestResultAndErrorRecording(t *testing.T) {
	s := newTestScheduler()

	done := s.CreateJob(model.StageReportGeneration)
	failed := s.CreateJob(model.StageReportGeneration)

	result := json.RawMessage(`{"reportUrl":"https://cdn.layerpipe.dev/reports/1.pdf"}`)
	s.UpdateJobStatus(done.ID, model.StatusCompleted, result, "")
	s.UpdateJobStatus(failed.ID, model.StatusFailed, nil, "upstream 503")

	got, _ := s.GetJob(done.ID)
	if string(got.Result) != string(result) {
		t.Errorf("expected result %s, got %s", result, got.Result)
	}
	if got.Error != "" {
		t.Errorf("completed job has error %q", got.Error)
	}

	got, _ = s.GetJob(failed.ID)
	if got.Error != "upstream 503" {
		t.Errorf("expected recorded error, got %q", got.Error)
	}
	if got.Result != nil {
		t.Errorf("failed job has result %s", got.Result)
	}
}

func TestFailureReportWithoutErrorPayload(t *testing.T) {
	s := newTestScheduler()

	job := s.CreateJob(model.StageAudioConversion)
	s.UpdateJobStatus(job.ID, model.StatusFailed, nil, "")

	got, ok := s.GetJob(job.ID)
	if !ok || got.Status != model.StatusFailed {
		t.Fatalf("expected failed job, got %+v ok=%v", got, ok)
	}
}

func TestUpdateUnknownJobIsNoOp(t *testing.T) {
	s := newTestScheduler()
	s.CreateJob(model.StageAudioConversion)

	before := s.Stats()
	s.UpdateJobStatus("no-such-job", model.StatusCompleted, nil, "")
	if after := s.Stats(); after != before {
		t.Errorf("stats changed by unknown-id update: %+v -> %+v", before, after)
	}
}

func TestExternalProcessingUpdateDoesNotOccupySlot(t *testing.T) {
	s := newTestScheduler(WithMaxConcurrentJobs(1))

	s.CreateJob(model.StageAudioConversion)
	j2 := s.CreateJob(model.StageAudioConversion)

	// a stray processing report on a queued job must not consume a slot,
	// and the admission pass later skips the no-longer-pending entry
	s.UpdateJobStatus(j2.ID, model.StatusProcessing, nil, "")
	if n := len(s.ListProcessing()); n != 2 {
		t.Fatalf("expected 2 jobs reporting processing, got %d", n)
	}

	j3 := s.CreateJob(model.StageAudioConversion)
	s.UpdateJobStatus(j2.ID, model.StatusCompleted, nil, "")
	assertJobStatus(t, s, j3.ID, model.StatusPending) // j1 still holds the only slot
}

func TestListingsFollowInsertionOrder(t *testing.T) {
	s := newTestScheduler(WithMaxConcurrentJobs(2))

	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, s.CreateJob(model.StageSpeechSynthesis).ID)
	}
	s.UpdateJobStatus(ids[0], model.StatusCompleted, nil, "")
	s.UpdateJobStatus(ids[1], model.StatusCompleted, nil, "")

	completed := s.ListCompleted()
	if len(completed) != 2 || completed[0].ID != ids[0] || completed[1].ID != ids[1] {
		t.Errorf("completed listing out of order: %v", completed)
	}
	processing := s.ListProcessing()
	if len(processing) != 2 || processing[0].ID != ids[2] || processing[1].ID != ids[3] {
		t.Errorf("processing listing out of order: %v", processing)
	}
}

func TestTerminalHook(t *testing.T) {
	var mu sync.Mutex
	var seen []model.PipelineJob

	s := newTestScheduler(WithTerminalHook(func(job model.PipelineJob) {
		mu.Lock()
		seen = append(seen, job)
		mu.Unlock()
	}))

	job := s.CreateJob(model.StageSpeechSynthesis)
	s.UpdateJobStatus(job.ID, model.StatusProcessing, nil, "") // non-terminal, no hook
	s.UpdateJobStatus(job.ID, model.StatusFailed, nil, "boom")
	s.UpdateJobStatus(job.ID, model.StatusFailed, nil, "boom") // duplicate, no hook

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 {
		t.Fatalf("expected 1 hook invocation, got %d", len(seen))
	}
	if seen[0].ID != job.ID || seen[0].Status != model.StatusFailed || seen[0].Error != "boom" {
		t.Errorf("unexpected hook snapshot: %+v", seen[0])
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := newTestScheduler()

	job := s.CreateJob(model.StageAudioConversion)
	s.UpdateJobStatus(job.ID, model.StatusCompleted, json.RawMessage(`{"n":1}`), "")

	snap, _ := s.GetJob(job.ID)
	snap.Result[len(snap.Result)-1] = 'X'

	again, _ := s.GetJob(job.ID)
	if string(again.Result) != `{"n":1}` {
		t.Errorf("registry result mutated through snapshot: %s", again.Result)
	}
}
