package model

// Status is the shared lifecycle vocabulary for layers and jobs
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var ValidStatuses = []Status{
	StatusPending, StatusProcessing, StatusCompleted, StatusFailed,
}

// Terminal reports whether no further scheduler-driven transition can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Layer types
type LayerType string

const (
	LayerTypeVocals  LayerType = "vocals"
	LayerTypeFX      LayerType = "fx"
	LayerTypeAmbient LayerType = "ambient"
)

var ValidLayerTypes = []LayerType{
	LayerTypeVocals, LayerTypeFX, LayerTypeAmbient,
}

// Stage labels the kind of work a job performs. The scheduler treats it as
// opaque; these constants cover the stages the platform currently dispatches.
type Stage string

const (
	StageSpeechSynthesis  Stage = "speech_synthesis"
	StageAudioConversion  Stage = "audio_conversion"
	StageRepositoryScrape Stage = "repository_scrape"
	StageReportGeneration Stage = "report_generation"
)
