package model

import "time"

// AudioLayer represents one audio artifact under construction
type AudioLayer struct {
	ID        string                 `json:"id"`
	ProjectID string                 `json:"projectId"`
	Type      LayerType              `json:"type"`
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Metadata  map[string]interface{} `json:"metadata"`
	AudioData []byte                 `json:"-"` // served separately, never inlined
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// HasAudio reports whether audio bytes have been attached to the layer.
func (l *AudioLayer) HasAudio() bool {
	return len(l.AudioData) > 0
}

// LayerConfig carries the caller-supplied settings for a new layer
type LayerConfig struct {
	Type       LayerType
	Name       string
	Parameters map[string]interface{}
}

// CreateLayerRequest represents the request to create a layer
type CreateLayerRequest struct {
	Type       LayerType              `json:"type" validate:"required,oneof=vocals fx ambient"`
	Name       string                 `json:"name" validate:"required,min=1,max=128"`
	Parameters map[string]interface{} `json:"parameters"`
}

// UpdateLayerStatusRequest represents a layer status change
type UpdateLayerStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending processing completed failed"`
}

// LayerListResponse wraps a project's layers
type LayerListResponse struct {
	ProjectID string       `json:"projectId"`
	Layers    []AudioLayer `json:"layers"`
}
