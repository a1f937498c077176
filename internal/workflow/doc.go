// Package workflow runs transcription jobs on a single background worker.
//
// The Manager owns the job queue, the progress store and a Supervisor.
// Submit enqueues and returns immediately; the worker consumes jobs in FIFO
// order, writes one SRT artifact per job and publishes exactly one Result
// per consumed job, then fans the Result out to sinks such as the history
// journal and the notifier.
//
// Stop drains: it appends the queue sentinel behind everything already
// submitted and waits. When the timeout expires the worker context is
// cancelled, which kills the transcriber subprocess. The in-flight job is
// then abandoned with no Result and reported in StopResult, and Stop
// returns ErrForcedTermination. A job that panics becomes an error Result.
// A fault that kills the worker outside job handling is logged and
// surfaced through Status; the worker is not restarted.
package workflow
