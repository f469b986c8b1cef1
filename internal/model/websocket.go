package model

// WebSocket message types
const (
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSCompleteMessage announces a job's successful completion
type WSCompleteMessage struct {
	Type  string      `json:"type"`
	JobID string      `json:"jobId"`
	Job   PipelineJob `json:"job"`
}

// WSErrorMessage announces a job failure
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
