package daemonrun

import (
	"fmt"

	"scribe/internal/config"
	"scribe/internal/services/whispercpp"
	"scribe/internal/services/whisperx"
	"scribe/internal/transcribe"
)

// NewTranscriber builds the backend selected by transcriber.backend.
func NewTranscriber(cfg *config.Config) (transcribe.Transcriber, error) {
	t := cfg.Transcriber
	switch t.Backend {
	case config.BackendWhisperX, "":
		return whisperx.NewService(whisperx.Config{
			Model:        t.Model,
			Device:       t.Device,
			ComputeType:  t.ComputeType,
			Task:         t.Task,
			Language:     t.Language,
			VADMethod:    t.VADMethod,
			HFToken:      t.HFToken,
			WorkDir:      t.WorkDir,
			FFmpegBinary: t.FFmpegBinary,
		}), nil
	case config.BackendWhisperCpp:
		return whispercpp.NewService(whispercpp.Config{
			Binary:       t.WhisperCppBinary,
			ModelPath:    t.WhisperCppModelPath,
			Task:         t.Task,
			Language:     t.Language,
			WorkDir:      t.WorkDir,
			FFmpegBinary: t.FFmpegBinary,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported transcriber backend %q", t.Backend)
	}
}
