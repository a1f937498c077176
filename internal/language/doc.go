// Package language normalizes the language codes transcription backends
// accept and report, and renders them as English display names.
//
// Parsing and naming go through golang.org/x/text so any ISO 639 code the
// backends emit is understood, not just a hand-maintained table.
package language
