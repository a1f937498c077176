package progress

import "time"

// Status describes how a job ended.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the outcome of exactly one consumed job.
type Result struct {
	Status         Status    `json:"status"`
	JobID          string    `json:"job_id"`
	InputPath      string    `json:"input_path"`
	OutputPath     string    `json:"output_path"`
	Language       string    `json:"language,omitempty"`
	Confidence     *float64  `json:"confidence,omitempty"`
	ElapsedSeconds *float64  `json:"elapsed_seconds,omitempty"`
	Segments       int       `json:"segments,omitempty"`
	Error          string    `json:"error,omitempty"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Succeeded reports whether the result carries a written artifact.
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Clone returns a copy that shares no pointers with r.
func (r Result) Clone() Result {
	out := r
	if r.Confidence != nil {
		v := *r.Confidence
		out.Confidence = &v
	}
	if r.ElapsedSeconds != nil {
		v := *r.ElapsedSeconds
		out.ElapsedSeconds = &v
	}
	return out
}

// Float returns a pointer to v for the optional Result fields.
func Float(v float64) *float64 {
	return &v
}
