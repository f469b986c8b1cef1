package scheduler

import "github.com/layerpipe/api/internal/model"

// CreateLayer registers a new layer in pending status and returns its
// snapshot. There is no uniqueness constraint on (projectId, name).
func (s *Scheduler) CreateLayer(projectID string, cfg model.LayerConfig) model.AudioLayer {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	layer := &model.AudioLayer{
		ID:        s.newID(),
		ProjectID: projectID,
		Type:      cfg.Type,
		Name:      cfg.Name,
		Status:    model.StatusPending,
		Metadata:  cloneMetadata(cfg.Parameters),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.layers[layer.ID] = layer
	s.layerOrder = append(s.layerOrder, layer.ID)

	return copyLayer(layer)
}

// GetLayer returns a snapshot of the layer, or false if the id is unknown.
// Absence is a normal outcome, not an error.
func (s *Scheduler) GetLayer(id string) (model.AudioLayer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layer, ok := s.layers[id]
	if !ok {
		return model.AudioLayer{}, false
	}
	return copyLayer(layer), true
}

// ListLayersForProject returns the project's layers in insertion order.
func (s *Scheduler) ListLayersForProject(projectID string) []model.AudioLayer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.AudioLayer{}
	for _, id := range s.layerOrder {
		layer := s.layers[id]
		if layer.ProjectID == projectID {
			out = append(out, copyLayer(layer))
		}
	}
	return out
}

// UpdateLayerStatus sets the layer status and bumps UpdatedAt. Unknown ids
// are a no-op.
func (s *Scheduler) UpdateLayerStatus(id string, status model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layer, ok := s.layers[id]
	if !ok {
		return
	}
	layer.Status = status
	layer.UpdatedAt = laterOf(s.now(), layer.UpdatedAt)
}

// AttachAudio stores the audio bytes on the layer, forces its status to
// completed and merges the metadata overrides last-write-wins per key.
// Unknown ids are a no-op.
func (s *Scheduler) AttachAudio(id string, data []byte, overrides map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layer, ok := s.layers[id]
	if !ok {
		return
	}
	layer.AudioData = cloneBytes(data)
	layer.Status = model.StatusCompleted
	for k, v := range overrides {
		layer.Metadata[k] = v
	}
	layer.UpdatedAt = laterOf(s.now(), layer.UpdatedAt)
}

// DeleteLayer removes the layer unconditionally. Deleting an unknown id is a
// no-op. Deletion is immediate and not reference-counted against any job.
func (s *Scheduler) DeleteLayer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.layers[id]; !ok {
		return
	}
	delete(s.layers, id)
	s.layerOrder = removeID(s.layerOrder, id)
}

func copyLayer(layer *model.AudioLayer) model.AudioLayer {
	out := *layer
	out.Metadata = cloneMetadata(layer.Metadata)
	out.AudioData = cloneBytes(layer.AudioData)
	return out
}
