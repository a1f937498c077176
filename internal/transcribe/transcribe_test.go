package transcribe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"scribe/internal/transcribe"
)

func TestTranscriptValidate(t *testing.T) {
	good := transcribe.Transcript{Segments: []transcribe.Segment{{Start: 0, End: 1}, {Start: 1, End: 1}}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid transcript: %v", err)
	}
	bad := transcribe.Transcript{Segments: []transcribe.Segment{{Start: 2, End: 1}}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for end before start")
	}
}

func TestExtractAudioUsesRunner(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "in.mp4")
	dest := filepath.Join(dir, "out.wav")
	if err := os.WriteFile(source, []byte("media"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	var gotName string
	var gotArgs []string
	runner := func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
	}
	if err := transcribe.ExtractAudio(context.Background(), runner, "", source, dest); err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
	if gotName != transcribe.FFmpegCommand {
		t.Fatalf("expected default ffmpeg binary, got %q", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-i " + source, "-ac 1", "-ar 16000", "pcm_s16le"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
}

func TestExtractAudioFailures(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "in.mp4")
	if err := transcribe.ExtractAudio(context.Background(), nil, "ffmpeg", source, filepath.Join(dir, "x.wav")); err == nil {
		t.Fatal("expected error for missing source")
	}
	if err := os.WriteFile(source, []byte("media"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	boom := errors.New("boom")
	err := transcribe.ExtractAudio(context.Background(), func(context.Context, string, ...string) error { return boom }, "ffmpeg", source, filepath.Join(dir, "x.wav"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected runner error, got %v", err)
	}
	err = transcribe.ExtractAudio(context.Background(), func(context.Context, string, ...string) error { return nil }, "ffmpeg", source, filepath.Join(dir, "x.wav"))
	if err == nil {
		t.Fatal("expected error when ffmpeg leaves no output")
	}
}

func TestExecRunnerHonoursContext(t *testing.T) {
	if _, err := os.Stat("/bin/sleep"); err != nil {
		t.Skip("sleep binary not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := transcribe.ExecRunner()(ctx, "/bin/sleep", "5")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("child process was not killed on cancellation")
	}
}

func TestScratch(t *testing.T) {
	base := filepath.Join(t.TempDir(), "work")
	dir, cleanup, err := transcribe.Scratch(base, "job")
	if err != nil {
		t.Fatalf("Scratch failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(dir), "job-") {
		t.Fatalf("unexpected scratch name %q", dir)
	}
	entries, _ := os.ReadDir(base)
	if !slices.ContainsFunc(entries, func(e os.DirEntry) bool { return e.Name() == filepath.Base(dir) }) {
		t.Fatal("scratch dir not created under base")
	}
	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected scratch dir removed, got %v", err)
	}
}
