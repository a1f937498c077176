package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"scribe/internal/config"
)

// Requirement defines an external dependency scribe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the tools the configured backend needs.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Transcriber.FFmpegBinary,
			Description: "Extracts 16 kHz mono audio for transcription",
		},
	}
	switch cfg.Transcriber.Backend {
	case config.BackendWhisperCpp:
		reqs = append(reqs, Requirement{
			Name:        "whisper.cpp",
			Command:     cfg.Transcriber.WhisperCppBinary,
			Description: "Runs the whisper.cpp backend",
		})
	default:
		reqs = append(reqs, Requirement{
			Name:        "uvx",
			Command:     "uvx",
			Description: "Launches WhisperX in an isolated environment",
		})
	}
	return reqs
}

// Check reports binary availability plus any backend model files.
func Check(cfg *config.Config) []Status {
	results := CheckBinaries(Requirements(cfg))
	if cfg.Transcriber.Backend == config.BackendWhisperCpp {
		results = append(results, checkFile("whisper.cpp model", cfg.Transcriber.WhisperCppModelPath, "GGML model weights"))
	}
	return results
}

// MissingRequired returns the non-optional entries that are unavailable.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

func checkFile(name, path, description string) Status {
	status := Status{Name: name, Command: path, Description: description}
	if strings.TrimSpace(path) == "" {
		status.Detail = "path not configured"
		return status
	}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		status.Detail = fmt.Sprintf("file %q not found", path)
	case info.IsDir():
		status.Detail = fmt.Sprintf("%q is a directory", path)
	default:
		status.Available = true
	}
	return status
}
