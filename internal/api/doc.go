// Package api defines the wire types shared by the HTTP API, the IPC
// service and the CLI. It translates workflow, progress and history models
// into transport-friendly DTOs so clients never couple to internal types.
//
// DTOs use camelCase JSON tags. Timestamps are RFC3339 with milliseconds.
// Optional metrics stay pointers so "not reported" and zero are distinct.
package api
