package transcribe

import (
	"context"
	"fmt"
)

// Segment is one timed span of recognized text, in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the materialized output of one Transcribe call.
type Transcript struct {
	Segments []Segment
	// Language is the detected (or forced) ISO 639-1 code.
	Language string
	// Confidence is in [0,1]; nil when the backend reports none.
	Confidence *float64
}

// Transcriber turns a media file into timed text. Implementations must stop
// any child process when ctx ends.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, inputPath string) (Transcript, error)
}

// Func adapts a function to the Transcriber interface.
type Func func(ctx context.Context, inputPath string) (Transcript, error)

// Name implements Transcriber.
func (f Func) Name() string { return "func" }

// Transcribe implements Transcriber.
func (f Func) Transcribe(ctx context.Context, inputPath string) (Transcript, error) {
	return f(ctx, inputPath)
}

// Validate checks segment bounds. Ordering is the backend's contract and is
// not checked here.
func (t Transcript) Validate() error {
	for i, seg := range t.Segments {
		if seg.Start < 0 || seg.End < seg.Start {
			return fmt.Errorf("segment %d has invalid bounds %.3f..%.3f", i+1, seg.Start, seg.End)
		}
	}
	return nil
}
