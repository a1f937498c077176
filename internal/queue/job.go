package queue

import (
	"time"

	"github.com/google/uuid"
)

// Job is one transcription request. It is immutable once submitted.
type Job struct {
	ID          string    `json:"id"`
	InputPath   string    `json:"input_path"`
	OutputPath  string    `json:"output_path"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewJob stamps a job with a fresh correlation ID.
func NewJob(inputPath, outputPath string) Job {
	return Job{
		ID:          uuid.NewString(),
		InputPath:   inputPath,
		OutputPath:  outputPath,
		SubmittedAt: time.Now().UTC(),
	}
}
