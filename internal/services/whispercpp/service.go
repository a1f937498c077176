package whispercpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	langpkg "scribe/internal/language"
	"scribe/internal/services"
	"scribe/internal/transcribe"
)

const (
	stageName     = "transcribe"
	DefaultBinary = "whisper-cli"
)

// Config captures whisper.cpp settings.
type Config struct {
	Binary       string
	ModelPath    string
	Task         string
	Language     string
	Threads      int
	WorkDir      string
	FFmpegBinary string
}

// Service transcribes through whisper-cli.
type Service struct {
	cfg    Config
	runner transcribe.CommandRunner
}

// NewService builds a whisper.cpp backend.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Threads <= 0 {
		cfg.Threads = max(1, min(runtime.NumCPU(), 8))
	}
	return &Service{cfg: cfg, runner: transcribe.ExecRunner()}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner transcribe.CommandRunner) {
	s.runner = runner
}

// Name implements transcribe.Transcriber.
func (s *Service) Name() string {
	return "whispercpp"
}

// Transcribe extracts audio from inputPath and runs whisper-cli over it.
func (s *Service) Transcribe(ctx context.Context, inputPath string) (transcribe.Transcript, error) {
	var out transcribe.Transcript
	if strings.TrimSpace(inputPath) == "" {
		return out, services.Wrap(services.ErrValidation, stageName, "whispercpp", "input path required", nil)
	}
	if s.cfg.ModelPath == "" {
		return out, services.Wrap(services.ErrConfiguration, stageName, "whispercpp", "model path not configured", nil)
	}
	if _, err := os.Stat(s.cfg.ModelPath); err != nil {
		return out, services.Wrap(services.ErrConfiguration, stageName, "whispercpp", "model file unavailable", err)
	}

	workDir, cleanup, err := transcribe.Scratch(s.cfg.WorkDir, "whispercpp")
	if err != nil {
		return out, services.Wrap(services.ErrConfiguration, stageName, "whispercpp", "prepare work dir", err)
	}
	defer cleanup()

	audioPath := filepath.Join(workDir, "audio.wav")
	if err := transcribe.ExtractAudio(ctx, s.runner, s.cfg.FFmpegBinary, inputPath, audioPath); err != nil {
		return out, wrapToolError(ctx, "ffmpeg", err)
	}

	prefix := filepath.Join(workDir, "audio")
	if err := s.runner(ctx, s.cfg.Binary, s.buildArgs(audioPath, prefix)...); err != nil {
		return out, wrapToolError(ctx, "whisper-cli", err)
	}

	payload, err := LoadPayload(prefix + ".json")
	if err != nil {
		return out, services.Wrap(services.ErrExternalTool, stageName, "whispercpp", "read transcript", err)
	}
	return payload.Transcript(s.cfg.Language), nil
}

func wrapToolError(ctx context.Context, tool string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, tool, "timed out", err)
	}
	return services.Wrap(services.ErrExternalTool, stageName, tool, "command failed", err)
}

func (s *Service) buildArgs(audioPath, outputPrefix string) []string {
	lang := langpkg.Hint(s.cfg.Language)
	if lang == "" {
		lang = langpkg.Auto
	}
	args := []string{
		"-m", s.cfg.ModelPath,
		"-f", audioPath,
		"-t", strconv.Itoa(s.cfg.Threads),
		"-l", lang,
		"-oj",
		"-of", outputPrefix,
		"-np",
	}
	if s.cfg.Task == "translate" {
		args = append(args, "-tr")
	}
	return args
}

// Payload is the subset of whisper-cli's -oj output scribe reads.
type Payload struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// LoadPayload reads a whisper-cli JSON file.
func LoadPayload(path string) (Payload, error) {
	var payload Payload
	data, err := os.ReadFile(path)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse whisper.cpp json: %w", err)
	}
	return payload, nil
}

// Transcript converts millisecond offsets into seconds. whisper.cpp reports
// no usable confidence, so Confidence stays nil.
func (p Payload) Transcript(hint string) transcribe.Transcript {
	out := transcribe.Transcript{
		Segments: make([]transcribe.Segment, 0, len(p.Transcription)),
		Language: langpkg.ToISO2(p.Result.Language),
	}
	if out.Language == "" {
		out.Language = langpkg.Hint(hint)
	}
	for _, item := range p.Transcription {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		out.Segments = append(out.Segments, transcribe.Segment{
			Start: float64(item.Offsets.From) / 1000,
			End:   float64(item.Offsets.To) / 1000,
			Text:  text,
		})
	}
	return out
}
