// Package daemon coordinates the long-running scribe process.
//
// It wires configuration, the workflow manager and the optional HTTP API
// into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon exposes submission, progress, history and status
// to the IPC and HTTP surfaces and sends the shutdown notification.
//
// Keep orchestration logic here: transcription belongs to the workflow
// package while the daemon focuses on startup, shutdown and high level
// coordination.
package daemon
