// Package logs tails daemon log files for `scribe logs`.
//
// Tail reads the last N lines (negative offset) or everything after a byte
// offset, optionally waiting for new lines, and can keep only lines that
// mention a job ID. Memory stays bounded by the requested line count.
package logs
