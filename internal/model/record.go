package model

import "time"

// Log levels stored on a LogRecord. Lines with no detectable level
// default to INFO.
const (
	LevelDebug    = "DEBUG"
	LevelInfo     = "INFO"
	LevelWarning  = "WARNING"
	LevelError    = "ERROR"
	LevelCritical = "CRITICAL"
)

// Step status values for workflow records.
const (
	StepStarted         = "started"
	StepCompleted       = "completed"
	StepFailed          = "failed"
	StepWorkflowStarted = "workflow_started"
	StepUnknown         = "unknown"
)

// LogRecord is the structured form of one raw log line.
// Optional fields are omitted from the serialized entry when absent;
// the index fan-out is conditional on their presence.
type LogRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Level       string    `json:"level"`
	Message     string    `json:"message"`
	Host        string    `json:"host"`
	Application string    `json:"application"`
	Component   string    `json:"component"`
	FilePath    string    `json:"file_path"`
	LineNumber  int       `json:"line_number"`

	RefreshID       string  `json:"refresh_id,omitempty"`
	StepName        string  `json:"step_name,omitempty"`
	StepNumber      int     `json:"step_number,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	StepStatus      string  `json:"step_status,omitempty"`
}

// QueryFilter defines criteria for log retrieval.
type QueryFilter struct {
	Host        string
	Application string
	Component   string
	Level       string
	RefreshID   string
	StepName    string
	Search      string // case-insensitive substring match on message
	Pattern     string // regex match on message; invalid patterns are ignored
	StartTime   time.Time
	EndTime     time.Time
	Limit       int
	Offset      int
}

// QueryResult is a materialized, filtered and paginated response.
// Total reflects the candidate count before final pagination; when
// several index sets were merged it is an estimate.
type QueryResult struct {
	Logs   []LogRecord `json:"logs"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
