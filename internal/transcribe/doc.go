// Package transcribe defines the contract between the worker and the
// speech-to-text backends, plus the helpers every backend shares: a
// replaceable command runner, ffmpeg audio extraction and scratch
// directories.
package transcribe
