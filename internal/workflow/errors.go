package workflow

import "errors"

var (
	// ErrForcedTermination reports that Stop timed out and cancelled the worker.
	ErrForcedTermination = errors.New("worker forcibly terminated")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("worker already started")
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("worker already stopped")
)
