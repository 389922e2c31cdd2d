package models

import "time"

// JobType identifies one of the fixed set of scheduled jobs.
type JobType string

const (
	JobTypeMovieDiscovery  JobType = "movie_discovery"
	JobTypeChangeTracking  JobType = "change_tracking"
	JobTypeCategoryRefresh JobType = "category_refresh"
	JobTypeDatasetExport   JobType = "dataset_export"
)

// JobExecutionStatus is the per-execution state machine:
// PENDING -> RUNNING -> {COMPLETED, FAILED, CANCELLED}. Terminal states are
// final.
type JobExecutionStatus string

const (
	JobStatusPending   JobExecutionStatus = "pending"
	JobStatusRunning   JobExecutionStatus = "running"
	JobStatusCompleted JobExecutionStatus = "completed"
	JobStatusFailed    JobExecutionStatus = "failed"
	JobStatusCancelled JobExecutionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions may leave the status.
func (s JobExecutionStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// JobStatus is one row per job execution, mutated only by the owning runner.
type JobStatus struct {
	ID             int64              `json:"id"`
	JobType        JobType            `json:"job_type"`
	Status         JobExecutionStatus `json:"status"`
	TotalItems     *int               `json:"total_items,omitempty"`
	ProcessedItems int                `json:"processed_items"`
	FailedItems    int                `json:"failed_items"`
	ErrorMessage   string             `json:"error_message,omitempty"`
	StartedAt      *time.Time         `json:"started_at,omitempty"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// LogLevel is the severity of a job log entry.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
	LogLevelSuccess LogLevel = "success"
)

// JobLog is an append-only diagnostic line attached to a job execution.
type JobLog struct {
	ID          int64     `json:"id"`
	JobStatusID int64     `json:"job_status_id"`
	Level       LogLevel  `json:"level"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// JobTypeStats is an aggregate breakdown for one job type.
type JobTypeStats struct {
	JobType   JobType `json:"job_type"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	Cancelled int     `json:"cancelled"`
}
