// Package whisperx runs WhisperX through uvx as a transcription backend.
//
// Each call extracts a 16 kHz mono WAV with ffmpeg into a scratch directory,
// invokes `uvx whisperx` with JSON output, and parses segments and the
// detected language from the result. Confidence is the mean word alignment
// score. Model, device, compute type, task and VAD method come from Config.
package whisperx
