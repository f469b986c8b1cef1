package handler

import (
	"encoding/json"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/layerpipe/api/internal/model"
	"github.com/layerpipe/api/internal/scheduler"
	"github.com/layerpipe/api/pkg/response"
)

const maxAudioUploadSize = 50 * 1024 * 1024 // 50MB

var validAudioTypes = map[string]bool{
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/wave":  true,
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/mp4":   true,
	"audio/x-m4a": true,
	"audio/aac":   true,
	"audio/x-aac": true,
	"audio/flac":  true,
}

type LayerHandler struct {
	scheduler *scheduler.Scheduler
	validator *validator.Validate
}

func NewLayerHandler(s *scheduler.Scheduler, v *validator.Validate) *LayerHandler {
	return &LayerHandler{
		scheduler: s,
		validator: v,
	}
}

// Create handles POST /api/projects/:projectId/layers
func (h *LayerHandler) Create(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	var req model.CreateLayerRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	layer := h.scheduler.CreateLayer(projectID, model.LayerConfig{
		Type:       req.Type,
		Name:       req.Name,
		Parameters: req.Parameters,
	})

	return response.Created(c, layer)
}

// List handles GET /api/projects/:projectId/layers
func (h *LayerHandler) List(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	return response.OK(c, model.LayerListResponse{
		ProjectID: projectID,
		Layers:    h.scheduler.ListLayersForProject(projectID),
	})
}

// Get handles GET /api/layers/:layerId
func (h *LayerHandler) Get(c *fiber.Ctx) error {
	layerID := c.Params("layerId")

	layer, ok := h.scheduler.GetLayer(layerID)
	if !ok {
		return response.NotFound(c, "Layer not found")
	}

	return response.OK(c, layer)
}

// UpdateStatus handles PUT /api/layers/:layerId/status
func (h *LayerHandler) UpdateStatus(c *fiber.Ctx) error {
	layerID := c.Params("layerId")

	var req model.UpdateLayerStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	// the registry treats unknown ids as no-ops, so confirm existence first
	if _, ok := h.scheduler.GetLayer(layerID); !ok {
		return response.NotFound(c, "Layer not found")
	}

	h.scheduler.UpdateLayerStatus(layerID, req.Status)

	layer, _ := h.scheduler.GetLayer(layerID)
	return response.OK(c, layer)
}

// AttachAudio handles POST /api/layers/:layerId/audio
func (h *LayerHandler) AttachAudio(c *fiber.Ctx) error {
	layerID := c.Params("layerId")

	if _, ok := h.scheduler.GetLayer(layerID); !ok {
		return response.NotFound(c, "Layer not found")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > maxAudioUploadSize {
		return response.ValidationError(c, "File size exceeds 50MB limit", map[string]interface{}{
			"maxSize":  maxAudioUploadSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	if !validAudioTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: WAV, M4A, MP3, AAC, FLAC", map[string]interface{}{
			"contentType": contentType,
		})
	}

	// Optional metadata overrides as a JSON object form field
	var overrides map[string]interface{}
	if raw := c.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			return response.ValidationError(c, "metadata must be a JSON object", nil)
		}
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return response.ServiceError(c, "Failed to read file")
	}

	h.scheduler.AttachAudio(layerID, data, overrides)

	layer, _ := h.scheduler.GetLayer(layerID)
	return response.OK(c, layer)
}

// DownloadAudio handles GET /api/layers/:layerId/audio
func (h *LayerHandler) DownloadAudio(c *fiber.Ctx) error {
	layerID := c.Params("layerId")

	layer, ok := h.scheduler.GetLayer(layerID)
	if !ok {
		return response.NotFound(c, "Layer not found")
	}
	if !layer.HasAudio() {
		return response.NotFound(c, "Layer has no audio attached")
	}

	contentType := "application/octet-stream"
	if ct, ok := layer.Metadata["contentType"].(string); ok && ct != "" {
		contentType = ct
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(layer.AudioData)
}

// Delete handles DELETE /api/layers/:layerId
func (h *LayerHandler) Delete(c *fiber.Ctx) error {
	layerID := c.Params("layerId")

	// deletion is unconditional and idempotent
	h.scheduler.DeleteLayer(layerID)
	return response.NoContent(c)
}
