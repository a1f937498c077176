package subtitles

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/transcribe"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{3.25, "00:00:03,250"},
		{59.9996, "00:01:00,000"},
		{3661.999, "01:01:01,999"},
		{3662.0, "01:01:02,000"},
		{36000.001, "10:00:00,001"},
		{-2, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("01:01:01,999")
	if err != nil {
		t.Fatalf("ParseTimestamp failed: %v", err)
	}
	if got < 3661.998 || got > 3662 {
		t.Fatalf("unexpected seconds %v", got)
	}
	if got, err := ParseTimestamp("00:00:01.500"); err != nil || got != 1.5 {
		t.Fatalf("expected period separator to parse, got %v %v", got, err)
	}
	for _, bad := range []string{"", "00:00:01", "00:61:00,000", "aa:00:00,000"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestWriteRendersCues(t *testing.T) {
	segments := []transcribe.Segment{
		{Start: 1.5, End: 3.25, Text: " Hello there. "},
		{Start: 3661.999, End: 3662.0, Text: "line one\n\n  line two"},
	}
	var buf bytes.Buffer
	if err := Write(&buf, segments); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := "1\n00:00:01,500 --> 00:00:03,250\nHello there.\n\n" +
		"2\n01:01:01,999 --> 01:01:02,000\nline one\nline two\n\n"
	if buf.String() != want {
		t.Fatalf("unexpected SRT:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "talk.srt")
	segments := []transcribe.Segment{
		{Start: 0, End: 1, Text: "a"},
		{Start: 1, End: 2.5, Text: "b"},
	}
	if err := WriteFile(path, segments); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if issues := Validate(path); len(issues) != 0 {
		t.Fatalf("unexpected validation issues: %v", issues)
	}
	cues, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(cues) != 2 || cues[1].End != 2.5 || cues[1].Text != "b" {
		t.Fatalf("unexpected cues: %+v", cues)
	}
}

func TestWriteFileEmptyTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silent.srt")
	if err := WriteFile(path, nil); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty file, got %q", data)
	}
	if issues := Validate(path); len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestValidateFlagsBadCues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.srt")
	content := "1\n00:00:02,000 --> 00:00:01,000\nbackwards\n\n3\n00:00:03,000 --> 00:00:04,000\nskip\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	issues := Validate(path)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %v", issues)
	}
	if !strings.Contains(issues[0], "ends before") || !strings.Contains(issues[1], "out of sequence") {
		t.Fatalf("unexpected issues: %v", issues)
	}
}
