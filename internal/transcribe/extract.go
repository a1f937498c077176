package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FFmpegCommand is used when no ffmpeg binary is configured.
const FFmpegCommand = "ffmpeg"

// ExtractAudioArgs builds the ffmpeg arguments that turn the first audio
// stream of source into 16 kHz mono PCM WAV at dest.
func ExtractAudioArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

// ExtractAudio runs ffmpeg through run and verifies that dest was produced.
func ExtractAudio(ctx context.Context, run CommandRunner, ffmpegBinary, source, dest string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("extract audio: source path required")
	}
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	if err := run(ctx, ffmpegBinary, ExtractAudioArgs(source, dest)...); err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("extract audio: output missing: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("extract audio: ffmpeg produced an empty file")
	}
	return nil
}

// Scratch creates a per-call working directory under base. The returned
// cleanup removes it.
func Scratch(base, prefix string) (string, func(), error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", nil, fmt.Errorf("ensure work dir: %w", err)
	}
	dir, err := os.MkdirTemp(base, prefix+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
