package testsupport

import (
	"context"
	"errors"
	"sync"

	"scribe/internal/transcribe"
)

// Behavior scripts how StubTranscriber responds to one input path.
type Behavior struct {
	Transcript transcribe.Transcript
	Err        error
	// Panic makes the call panic with this value.
	Panic any
	// Gate, when set, blocks the call until it is closed or ctx ends.
	Gate <-chan struct{}
}

// StubTranscriber is a scripted transcribe.Transcriber that records the
// order of calls. Inputs without a behavior get a one-segment transcript.
type StubTranscriber struct {
	mu        sync.Mutex
	behaviors map[string]Behavior
	calls     []string
	started   chan string
}

// NewStubTranscriber returns an empty stub.
func NewStubTranscriber() *StubTranscriber {
	return &StubTranscriber{
		behaviors: make(map[string]Behavior),
		started:   make(chan string, 64),
	}
}

// On registers the behavior for inputPath.
func (s *StubTranscriber) On(inputPath string, b Behavior) *StubTranscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behaviors[inputPath] = b
	return s
}

// Calls returns the inputs seen so far in call order.
func (s *StubTranscriber) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Started delivers each input path as its call begins.
func (s *StubTranscriber) Started() <-chan string {
	return s.started
}

// Name implements transcribe.Transcriber.
func (s *StubTranscriber) Name() string { return "stub" }

// Transcribe implements transcribe.Transcriber.
func (s *StubTranscriber) Transcribe(ctx context.Context, inputPath string) (transcribe.Transcript, error) {
	s.mu.Lock()
	s.calls = append(s.calls, inputPath)
	b, ok := s.behaviors[inputPath]
	s.mu.Unlock()

	select {
	case s.started <- inputPath:
	default:
	}

	if b.Gate != nil {
		select {
		case <-b.Gate:
		case <-ctx.Done():
			return transcribe.Transcript{}, ctx.Err()
		}
	}
	if b.Panic != nil {
		panic(b.Panic)
	}
	if b.Err != nil {
		return transcribe.Transcript{}, b.Err
	}
	if !ok {
		confidence := 0.9
		return transcribe.Transcript{
			Segments:   []transcribe.Segment{{Start: 0, End: 1.5, Text: "stub transcript"}},
			Language:   "en",
			Confidence: &confidence,
		}, nil
	}
	return b.Transcript, nil
}

// ErrStub is a convenient failure for scripted behaviors.
var ErrStub = errors.New("stub transcription failure")
