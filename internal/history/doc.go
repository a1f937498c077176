// Package history journals finished job results in SQLite.
//
// The journal is append-only from the worker's point of view and trimmed to
// a configured number of rows. It records what happened; it does not persist
// the pending queue, so jobs that were waiting when the daemon exited are not
// replayed on the next start.
package history
