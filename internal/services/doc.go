// Package services defines shared utilities consumed by the worker loop and
// the transcription backends.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the short kinds recorded on error results.
//
// Backends live in subpackages (whisperx, whispercpp) and return errors built
// with Wrap so the worker can label failures uniformly.
package services
