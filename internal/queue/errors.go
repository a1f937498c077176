package queue

import "errors"

var (
	// ErrClosed is returned once the stop sentinel has been enqueued.
	ErrClosed = errors.New("queue closed")
	// ErrFull is returned by a bounded queue using the reject policy.
	ErrFull = errors.New("queue full")
)
