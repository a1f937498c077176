// Package progress holds the daemon's observable job counters.
//
// A Store owns one ProgressState guarded by a single RWMutex. Every
// transition (Enqueued, Begin, Publish, Abandon) mutates all affected fields
// under the write lock, and Snapshot hands readers a deep copy, so a reader
// never observes a half-applied transition or a live reference into the
// store.
package progress
