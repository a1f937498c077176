package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	langpkg "scribe/internal/language"
	"scribe/internal/services"
	"scribe/internal/transcribe"
)

const stageName = "transcribe"

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg    Config
	runner transcribe.CommandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	env := []string{}
	// Torch 2.6 changed torch.load to weights_only=true, which breaks the
	// pyannote checkpoints WhisperX ships with.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		env = append(env, "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	return &Service{cfg: cfg, runner: transcribe.ExecRunner(env...)}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner transcribe.CommandRunner) {
	s.runner = runner
}

// Name implements transcribe.Transcriber.
func (s *Service) Name() string {
	return "whisperx"
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Transcribe extracts audio from inputPath and runs WhisperX over it.
func (s *Service) Transcribe(ctx context.Context, inputPath string) (transcribe.Transcript, error) {
	var out transcribe.Transcript
	if strings.TrimSpace(inputPath) == "" {
		return out, services.Wrap(services.ErrValidation, stageName, "whisperx", "input path required", nil)
	}

	workDir, cleanup, err := transcribe.Scratch(s.cfg.WorkDir, "whisperx")
	if err != nil {
		return out, services.Wrap(services.ErrConfiguration, stageName, "whisperx", "prepare work dir", err)
	}
	defer cleanup()

	audioPath := filepath.Join(workDir, "audio.wav")
	if err := transcribe.ExtractAudio(ctx, s.runner, s.cfg.FFmpegBinary, inputPath, audioPath); err != nil {
		return out, wrapToolError(ctx, "ffmpeg", err)
	}

	if err := s.runner(ctx, UVXCommand, s.buildArgs(audioPath, workDir)...); err != nil {
		return out, wrapToolError(ctx, "whisperx", err)
	}

	payload, err := LoadPayload(filepath.Join(workDir, "audio.json"))
	if err != nil {
		return out, services.Wrap(services.ErrExternalTool, stageName, "whisperx", "read transcript", err)
	}
	return payload.Transcript(s.cfg.Language), nil
}

func wrapToolError(ctx context.Context, tool string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, tool, "timed out", err)
	}
	return services.Wrap(services.ErrExternalTool, stageName, tool, "command failed", err)
}

func (s *Service) device() string {
	switch strings.ToLower(s.cfg.Device) {
	case CUDADevice:
		return CUDADevice
	case AutoDevice:
		if strings.TrimSpace(os.Getenv("CUDA_VISIBLE_DEVICES")) != "" {
			return CUDADevice
		}
	}
	return CPUDevice
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 40)
	device := s.device()

	if device == CUDADevice {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	task := s.cfg.Task
	if task != TaskTranslate {
		task = TaskTranscribe
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--task", task,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if lang := langpkg.Hint(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	computeType := s.cfg.ComputeType
	if computeType == "" {
		computeType = CPUComputeType
		if device == CUDADevice {
			computeType = CUDAComputeType
		}
	}
	args = append(args, "--device", device, "--compute_type", computeType)
	return args
}

// Word represents a single word with timing from WhisperX output.
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Score *float64 `json:"score"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

// Payload is the JSON structure WhisperX writes.
type Payload struct {
	Segments            []Segment `json:"segments"`
	Language            string    `json:"language"`
	LanguageProbability *float64  `json:"language_probability"`
}

// LoadPayload reads a WhisperX JSON file.
func LoadPayload(jsonPath string) (Payload, error) {
	var payload Payload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, nil
}

// Transcript converts the payload. hint is used when WhisperX did not
// report a language.
func (p Payload) Transcript(hint string) transcribe.Transcript {
	out := transcribe.Transcript{
		Segments: make([]transcribe.Segment, 0, len(p.Segments)),
		Language: langpkg.ToISO2(p.Language),
	}
	if out.Language == "" {
		out.Language = langpkg.Hint(hint)
	}

	var (
		scoreSum   float64
		scoreCount int
	)
	for _, seg := range p.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		out.Segments = append(out.Segments, transcribe.Segment{Start: seg.Start, End: seg.End, Text: text})
		for _, word := range seg.Words {
			if word.Score != nil {
				scoreSum += *word.Score
				scoreCount++
			}
		}
	}

	switch {
	case p.LanguageProbability != nil:
		v := *p.LanguageProbability
		out.Confidence = &v
	case scoreCount > 0:
		v := scoreSum / float64(scoreCount)
		out.Confidence = &v
	}
	return out
}
