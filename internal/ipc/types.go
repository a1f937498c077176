package ipc

import "scribe/internal/api"

// Submission codes returned in SubmitResponse.Code.
const (
	CodeAccepted     = "ACCEPTED"
	CodeInvalidInput = "INVALID_INPUT"
	CodeQueueFull    = "QUEUE_FULL"
	CodeShuttingDown = "SHUTTING_DOWN"
	CodeInternal     = "INTERNAL"
)

// Job mirrors the API job DTO.
type Job = api.Job

// Progress mirrors the API progress DTO.
type Progress = api.Progress

// DaemonStatus mirrors the API status DTO.
type DaemonStatus = api.DaemonStatus

// HistoryEntry mirrors the API history DTO.
type HistoryEntry = api.HistoryEntry

// StopSummary mirrors the API stop DTO.
type StopSummary = api.StopSummary

// SubmitRequest enqueues a job. Paths should be absolute; the daemon does
// not share the caller's working directory.
type SubmitRequest struct {
	InputPath  string `json:"inputPath"`
	OutputPath string `json:"outputPath,omitempty"`
}

// SubmitResponse reports whether the job was admitted.
type SubmitResponse struct {
	Accepted bool   `json:"accepted"`
	Code     string `json:"code"`
	Message  string `json:"message,omitempty"`
	Job      Job    `json:"job"`
}

// ProgressRequest fetches a progress snapshot.
type ProgressRequest struct{}

// ProgressResponse wraps the snapshot.
type ProgressResponse struct {
	Progress Progress `json:"progress"`
}

// StopRequest drains the worker and shuts the daemon down. A zero
// TimeoutSeconds uses the configured default; Force stops immediately.
type StopRequest struct {
	TimeoutSeconds int  `json:"timeoutSeconds,omitempty"`
	Force          bool `json:"force,omitempty"`
}

// StopResponse reports how the worker ended.
type StopResponse struct {
	Stopped bool        `json:"stopped"`
	Summary StopSummary `json:"summary"`
	Message string      `json:"message,omitempty"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse wraps daemon status.
type StatusResponse struct {
	Status DaemonStatus `json:"status"`
}

// HistoryRequest fetches up to Limit journaled results.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse lists journaled results, newest first.
type HistoryResponse struct {
	Enabled bool           `json:"enabled"`
	Entries []HistoryEntry `json:"entries"`
}

// LogTailRequest reads the daemon log.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"waitMillis"`
	Contains   string `json:"contains,omitempty"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest sends a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
