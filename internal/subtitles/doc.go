// Package subtitles renders transcripts as SubRip (SRT) files and reads them
// back for validation.
//
// Each segment becomes one cue: a 1-based index line, a
// "HH:MM:SS,mmm --> HH:MM:SS,mmm" timing line, the text, and a blank line.
// Timestamps round to the nearest millisecond before they are split into
// fields, so 59.9996s renders as 00:01:00,000 rather than 00:00:59,1000.
package subtitles
