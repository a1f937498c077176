// Package ipc exposes the daemon to the CLI via JSON-RPC over a Unix domain
// socket. The service is registered as "Scribe" with Submit, Progress, Stop,
// Status, History, LogTail and TestNotification methods.
//
// Submission failures the caller can act on (queue full, shutting down,
// invalid input) come back as a response Code rather than an RPC error so
// the CLI can tell them apart.
package ipc
