package handler

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/layerpipe/api/internal/model"
	"github.com/layerpipe/api/internal/scheduler"
	"github.com/layerpipe/api/pkg/response"
)

type SystemHandler struct {
	scheduler *scheduler.Scheduler
	retention time.Duration
}

func NewSystemHandler(s *scheduler.Scheduler, retention time.Duration) *SystemHandler {
	if retention <= 0 {
		retention = scheduler.DefaultRetention
	}
	return &SystemHandler{
		scheduler: s,
		retention: retention,
	}
}

// Stats handles GET /api/stats
func (h *SystemHandler) Stats(c *fiber.Ctx) error {
	return response.OK(c, h.scheduler.Stats())
}

// Sweep handles POST /api/maintenance/sweep?olderThanMs=
func (h *SystemHandler) Sweep(c *fiber.Ctx) error {
	window := h.retention
	if raw := c.Query("olderThanMs"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			return response.ValidationError(c, "olderThanMs must be a non-negative integer", nil)
		}
		window = time.Duration(ms) * time.Millisecond
	}

	removed := h.scheduler.ClearCompletedJobs(window)
	return response.OK(c, model.SweepResponse{Removed: removed})
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
