package progress

import (
	"sync"
	"time"
)

// State is the snapshot observers receive.
type State struct {
	Queued       int       `json:"queued"`
	Completed    int       `json:"completed"`
	CurrentTask  string    `json:"current_task,omitempty"`
	CurrentJobID string    `json:"current_job_id,omitempty"`
	StartedAt    time.Time `json:"started_at,omitzero"`
	LastResult   *Result   `json:"last_result,omitempty"`
}

// Busy reports whether a job is in flight.
func (s State) Busy() bool {
	return s.CurrentTask != ""
}

// Store guards the live State.
type Store struct {
	mu    sync.RWMutex
	state State
	now   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{now: time.Now}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	if s.state.LastResult != nil {
		last := s.state.LastResult.Clone()
		out.LastResult = &last
	}
	return out
}

// Enqueued records one admitted job.
func (s *Store) Enqueued() {
	s.mu.Lock()
	s.state.Queued++
	s.mu.Unlock()
}

// Begin marks jobID as in flight and removes it from the backlog count.
func (s *Store) Begin(jobID, inputPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Queued > 0 {
		s.state.Queued--
	}
	s.state.CurrentTask = inputPath
	s.state.CurrentJobID = jobID
	s.state.StartedAt = s.now()
}

// Publish records a finished job's result and clears the in-flight marker.
func (s *Store) Publish(result Result) {
	stored := result.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Completed++
	s.state.LastResult = &stored
	s.clearCurrentLocked()
}

// Abandon clears the in-flight marker without publishing a result. discarded
// jobs that will never run are dropped from the backlog count.
func (s *Store) Abandon(discarded int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCurrentLocked()
	s.state.Queued -= discarded
	if s.state.Queued < 0 {
		s.state.Queued = 0
	}
}

func (s *Store) clearCurrentLocked() {
	s.state.CurrentTask = ""
	s.state.CurrentJobID = ""
	s.state.StartedAt = time.Time{}
}
