package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a submitted job.
type Job struct {
	ID          string `json:"id"`
	InputPath   string `json:"inputPath"`
	OutputPath  string `json:"outputPath"`
	SubmittedAt string `json:"submittedAt,omitempty"`
}

// Result describes the outcome of one job.
type Result struct {
	JobID          string   `json:"jobId"`
	Status         string   `json:"status"`
	InputPath      string   `json:"inputPath"`
	OutputPath     string   `json:"outputPath"`
	Language       string   `json:"language,omitempty"`
	LanguageName   string   `json:"languageName,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	ElapsedSeconds *float64 `json:"elapsedSeconds,omitempty"`
	Segments       int      `json:"segments"`
	Error          string   `json:"error,omitempty"`
	ErrorKind      string   `json:"errorKind,omitempty"`
	FinishedAt     string   `json:"finishedAt,omitempty"`
}

// Progress is the observer snapshot.
type Progress struct {
	Queued       int     `json:"queued"`
	Completed    int     `json:"completed"`
	CurrentTask  string  `json:"currentTask,omitempty"`
	CurrentJobID string  `json:"currentJobId,omitempty"`
	StartedAt    string  `json:"startedAt,omitempty"`
	LastResult   *Result `json:"lastResult,omitempty"`
}

// Busy reports whether a job is in flight.
func (p Progress) Busy() bool {
	return p.CurrentTask != ""
}

// WorkflowStatus summarizes the worker.
type WorkflowStatus struct {
	Running       bool     `json:"running"`
	Draining      bool     `json:"draining"`
	StartedAt     string   `json:"startedAt,omitempty"`
	Backend       string   `json:"backend"`
	QueueCapacity int      `json:"queueCapacity"`
	QueuePolicy   string   `json:"queuePolicy"`
	LastError     string   `json:"lastError,omitempty"`
	Progress      Progress `json:"progress"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	LockFilePath string             `json:"lockFilePath"`
	LogPath      string             `json:"logPath,omitempty"`
	HistoryPath  string             `json:"historyPath,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// SubmitRequest asks the daemon to transcribe InputPath.
type SubmitRequest struct {
	InputPath  string `json:"inputPath"`
	OutputPath string `json:"outputPath,omitempty"`
}

// SubmitResponse returns the admitted job.
type SubmitResponse struct {
	Job Job `json:"job"`
}

// HistoryEntry is one journaled result.
type HistoryEntry struct {
	ID int64 `json:"id"`
	Result
}

// HistoryResponse wraps journaled results, newest first.
type HistoryResponse struct {
	Enabled bool           `json:"enabled"`
	Entries []HistoryEntry `json:"entries"`
}

// StopSummary reports how the worker ended.
type StopSummary struct {
	Drained   bool `json:"drained"`
	Forced    bool `json:"forced"`
	Abandoned *Job `json:"abandoned,omitempty"`
	Discarded int  `json:"discarded"`
}

// ErrorResponse is the body of every non-2xx HTTP reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
