// Package whispercpp runs whisper.cpp's whisper-cli as a transcription
// backend for hosts without a Python toolchain.
package whispercpp
