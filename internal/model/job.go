package model

import (
	"encoding/json"
	"time"
)

// PipelineJob represents one bounded unit of asynchronous work
type PipelineJob struct {
	ID        string          `json:"id"`
	Stage     Stage           `json:"stage"`
	Status    Status          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"` // set only on completion
	Error     string          `json:"error,omitempty"`  // set only on failure
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CreateJobRequest represents the request to enqueue a job
type CreateJobRequest struct {
	Stage Stage `json:"stage" validate:"required,min=1,max=64"`
}

// UpdateJobStatusRequest is the outcome report sent by workers
type UpdateJobStatusRequest struct {
	Status Status          `json:"status" validate:"required,oneof=pending processing completed failed"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// JobListResponse wraps a filtered job listing
type JobListResponse struct {
	Jobs []PipelineJob `json:"jobs"`
}

// Stats reports registry-wide counters, computed fresh on each call
type Stats struct {
	TotalLayers    int `json:"totalLayers"`
	TotalJobs      int `json:"totalJobs"`
	PendingJobs    int `json:"pendingJobs"`
	ProcessingJobs int `json:"processingJobs"`
	CompletedJobs  int `json:"completedJobs"`
	FailedJobs     int `json:"failedJobs"`
}

// SweepResponse reports the outcome of a retention sweep
type SweepResponse struct {
	Removed int `json:"removed"`
}
