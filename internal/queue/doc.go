// Package queue implements the in-memory FIFO that feeds the worker.
//
// Jobs are admitted at the tail and consumed from the head by exactly one
// reader. Close appends a sentinel that tells the reader to stop once
// everything admitted before it has been consumed; nothing is admitted
// after the sentinel. The backlog is unbounded unless a capacity is set,
// in which case the full policy decides whether Submit fails or waits.
// Nothing is persisted: a restart starts with an empty queue.
package queue
