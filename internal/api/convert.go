package api

import (
	"time"

	"scribe/internal/deps"
	"scribe/internal/history"
	"scribe/internal/language"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/workflow"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime reverses the payload timestamp format. Empty or malformed input
// yields the zero time.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FromJob converts a queued job.
func FromJob(job queue.Job) Job {
	return Job{
		ID:          job.ID,
		InputPath:   job.InputPath,
		OutputPath:  job.OutputPath,
		SubmittedAt: formatTime(job.SubmittedAt),
	}
}

// FromResult converts a published result.
func FromResult(result progress.Result) Result {
	dto := Result{
		JobID:      result.JobID,
		Status:     string(result.Status),
		InputPath:  result.InputPath,
		OutputPath: result.OutputPath,
		Language:   result.Language,
		Segments:   result.Segments,
		Error:      result.Error,
		ErrorKind:  result.ErrorKind,
		FinishedAt: formatTime(result.FinishedAt),
	}
	if result.Language != "" {
		dto.LanguageName = language.DisplayName(result.Language)
	}
	if result.Confidence != nil {
		dto.Confidence = progress.Float(*result.Confidence)
	}
	if result.ElapsedSeconds != nil {
		dto.ElapsedSeconds = progress.Float(*result.ElapsedSeconds)
	}
	return dto
}

// FromState converts a progress snapshot.
func FromState(state progress.State) Progress {
	dto := Progress{
		Queued:       state.Queued,
		Completed:    state.Completed,
		CurrentTask:  state.CurrentTask,
		CurrentJobID: state.CurrentJobID,
		StartedAt:    formatTime(state.StartedAt),
	}
	if state.LastResult != nil {
		last := FromResult(*state.LastResult)
		dto.LastResult = &last
	}
	return dto
}

// FromStatusSummary converts the worker summary.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	return WorkflowStatus{
		Running:       summary.Running,
		Draining:      summary.Draining,
		StartedAt:     formatTime(summary.StartedAt),
		Backend:       summary.Backend,
		QueueCapacity: summary.QueueCapacity,
		QueuePolicy:   summary.QueuePolicy,
		LastError:     summary.LastError,
		Progress:      FromState(summary.Progress),
	}
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// FromHistory converts journal entries, preserving order.
func FromHistory(entries []history.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, HistoryEntry{ID: entry.ID, Result: FromResult(entry.Result)})
	}
	return out
}

// FromStopResult converts a worker stop report.
func FromStopResult(res workflow.StopResult) StopSummary {
	dto := StopSummary{
		Drained:   res.Drained,
		Forced:    res.Forced,
		Discarded: res.Discarded,
	}
	if res.Abandoned != nil {
		job := FromJob(*res.Abandoned)
		dto.Abandoned = &job
	}
	return dto
}
