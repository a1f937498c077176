package preflight

import (
	"context"
	"strings"

	"scribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Work directory", cfg.Transcriber.WorkDir),
	}

	// Output directory is optional; jobs default to a sibling of the input.
	if dir := strings.TrimSpace(cfg.Paths.OutputDir); dir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", dir))
	}

	if cfg.Transcriber.Backend == config.BackendWhisperCpp {
		results = append(results, CheckReadableFile("whisper.cpp model", cfg.Transcriber.WhisperCppModelPath))
	}

	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		results = append(results, CheckNtfy(ctx, topic))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
