package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"scribe/internal/api"
	"scribe/internal/daemonctl"
	"scribe/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func statusKindFromSeverity(severity string) statusKind {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "ok":
		return statusOK
	case "warn", "warning":
		return statusWarn
	case "error":
		return statusError
	default:
		return statusInfo
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func daemonLines(snap *daemonctl.StatusSnapshot, colorize bool) []string {
	status := snap.Daemon
	if !status.Running {
		lines := []string{renderStatusLine("Scribe", statusWarn, "Not running (run `scribe start`)", colorize)}
		if snap.StalePID != 0 {
			lines = append(lines, renderStatusLine("Stale process", statusError,
				fmt.Sprintf("pid %d is alive but not answering; run `scribe stop`", snap.StalePID), colorize))
		}
		return lines
	}

	wf := status.Workflow
	lines := []string{
		renderStatusLine("Scribe", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize),
	}
	switch {
	case wf.LastError != "":
		lines = append(lines, renderStatusLine("Worker", statusError, "Crashed: "+wf.LastError, colorize))
	case wf.Draining:
		lines = append(lines, renderStatusLine("Worker", statusWarn, "Draining (stop requested)", colorize))
	case wf.Running:
		lines = append(lines, renderStatusLine("Worker", statusOK, "Accepting jobs", colorize))
	default:
		lines = append(lines, renderStatusLine("Worker", statusInfo, "Idle", colorize))
	}
	lines = append(lines, renderStatusLine("Backend", statusInfo, wf.Backend, colorize))
	lines = append(lines, renderStatusLine("Queue", statusInfo, queueDetail(wf), colorize))
	if status.HistoryPath != "" {
		lines = append(lines, renderStatusLine("History", statusInfo, status.HistoryPath, colorize))
	}
	if status.LogPath != "" {
		lines = append(lines, renderStatusLine("Log", statusInfo, status.LogPath, colorize))
	}
	return lines
}

func queueDetail(wf api.WorkflowStatus) string {
	if wf.QueueCapacity <= 0 {
		return "unbounded"
	}
	return fmt.Sprintf("capacity %d (%s when full)", wf.QueueCapacity, wf.QueuePolicy)
}

func progressLines(p api.Progress, colorize bool) []string {
	lines := []string{
		renderStatusLine("Queued", statusInfo, fmt.Sprintf("%d", p.Queued), colorize),
		renderStatusLine("Completed", statusInfo, fmt.Sprintf("%d", p.Completed), colorize),
	}
	if p.Busy() {
		lines = append(lines, renderStatusLine("Current", statusOK, p.CurrentTask, colorize))
	} else {
		lines = append(lines, renderStatusLine("Current", statusInfo, "idle", colorize))
	}
	if r := p.LastResult; r != nil {
		kind := statusOK
		detail := fmt.Sprintf("%s -> %s", api.ShortPath(r.InputPath), api.ShortPath(r.OutputPath))
		if r.Status != "success" {
			kind = statusError
			detail = fmt.Sprintf("%s: %s", api.ShortPath(r.InputPath), r.Error)
		}
		lines = append(lines, renderStatusLine("Last result", kind, detail, colorize))
	}
	return lines
}

func checkLines(checks []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return lines
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	summary := daemonctl.BuildDependencySummary(deps)
	lines := make([]string, 0, len(deps)+2)
	lines = append(lines, renderStatusLine("Summary", statusKindFromSeverity(summary.Severity), summary.Detail, colorize))
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(dep.Name, statusKindFromSeverity(daemonctl.DependencySeverity(dep)), detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", ")), colorize))
	}
	return lines
}

func writeSection(w io.Writer, title string, lines []string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(w, line)
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}
