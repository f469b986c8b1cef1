package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/layerpipe/api/internal/model"
	"github.com/layerpipe/api/internal/scheduler"
	"github.com/layerpipe/api/internal/worker"
	"github.com/layerpipe/api/pkg/response"
)

type JobHandler struct {
	scheduler   *scheduler.Scheduler
	validator   *validator.Validate
	runner      *worker.StageRunner // nil unless simulated workers are enabled
	waitTimeout time.Duration
}

func NewJobHandler(s *scheduler.Scheduler, v *validator.Validate, runner *worker.StageRunner, waitTimeout time.Duration) *JobHandler {
	if waitTimeout <= 0 {
		waitTimeout = scheduler.DefaultWaitTimeout
	}
	return &JobHandler{
		scheduler:   s,
		validator:   v,
		runner:      runner,
		waitTimeout: waitTimeout,
	}
}

// Create handles POST /api/jobs
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var req model.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job := h.scheduler.CreateJob(req.Stage)

	// hand the job id to the simulated worker out-of-band, as a real
	// dispatcher would
	if h.runner != nil {
		h.runner.Dispatch(job.ID, job.Stage)
	}

	return response.Accepted(c, job)
}

// Get handles GET /api/jobs/:jobId
func (h *JobHandler) Get(c *fiber.Ctx) error {
	jobID := c.Params("jobId")

	job, ok := h.scheduler.GetJob(jobID)
	if !ok {
		return response.NotFound(c, "Job not found")
	}

	return response.OK(c, job)
}

// List handles GET /api/jobs?status=
func (h *JobHandler) List(c *fiber.Ctx) error {
	var jobs []model.PipelineJob
	switch model.Status(c.Query("status")) {
	case model.StatusPending:
		jobs = h.scheduler.ListPending()
	case model.StatusProcessing:
		jobs = h.scheduler.ListProcessing()
	case model.StatusCompleted:
		jobs = h.scheduler.ListCompleted()
	case model.StatusFailed:
		jobs = h.scheduler.ListFailed()
	default:
		return response.ValidationError(c, "status query parameter is required", map[string]interface{}{
			"allowed": model.ValidStatuses,
		})
	}

	return response.OK(c, model.JobListResponse{Jobs: jobs})
}

// UpdateStatus handles POST /api/jobs/:jobId/status
func (h *JobHandler) UpdateStatus(c *fiber.Ctx) error {
	jobID := c.Params("jobId")

	var req model.UpdateJobStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	// the registry treats unknown ids as no-ops, so confirm existence first
	if _, ok := h.scheduler.GetJob(jobID); !ok {
		return response.NotFound(c, "Job not found")
	}

	h.scheduler.UpdateJobStatus(jobID, req.Status, req.Result, req.Error)

	job, _ := h.scheduler.GetJob(jobID)
	return response.OK(c, job)
}

// Wait handles GET /api/jobs/:jobId/wait?timeoutMs=
func (h *JobHandler) Wait(c *fiber.Ctx) error {
	jobID := c.Params("jobId")

	timeout := h.waitTimeout
	if raw := c.Query("timeoutMs"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return response.ValidationError(c, "timeoutMs must be a positive integer", nil)
		}
		timeout = time.Duration(ms) * time.Millisecond
	}

	job, err := h.scheduler.WaitForJob(c.Context(), jobID, timeout)
	if err != nil {
		var notFound *scheduler.JobNotFoundError
		var failed *scheduler.JobFailedError
		var timedOut *scheduler.JobTimeoutError
		switch {
		case errors.As(err, &notFound):
			return response.NotFound(c, "Job not found")
		case errors.As(err, &failed):
			return response.JobFailed(c, "Job failed", map[string]interface{}{
				"jobId":  failed.ID,
				"reason": failed.Reason,
			})
		case errors.As(err, &timedOut):
			return response.JobTimeout(c, "Timed out waiting for job")
		default:
			return response.ServiceError(c, err.Error())
		}
	}

	return response.OK(c, job)
}
