package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/history"
	"scribe/internal/ipc"
	"scribe/internal/preflight"
)

// DependencySummary aggregates dependency readiness for display.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// StatusSnapshot is everything "scribe status" renders. When the daemon is
// unreachable, dependencies and history counts are resolved locally.
type StatusSnapshot struct {
	Daemon            api.DaemonStatus   `json:"daemon"`
	StalePID          int                `json:"stalePid,omitempty"`
	Checks            []preflight.Result `json:"checks"`
	DependencySummary DependencySummary  `json:"dependencySummary"`
	HistoryCounts     map[string]int     `json:"historyCounts,omitempty"`
}

// BuildStatusSnapshot collects daemon status and applies offline fallbacks.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*StatusSnapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &StatusSnapshot{}

	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			snap.Daemon = resp.Status
		}
	}

	if !snap.Daemon.Running {
		if pid, _ := ReadPIDFile(cfg.PIDPath()); pid != 0 && ProcessAlive(pid) {
			snap.StalePID = pid
		}
	}
	if len(snap.Daemon.Dependencies) == 0 {
		snap.Daemon.Dependencies = api.FromDependencies(deps.Check(cfg))
	}
	snap.DependencySummary = BuildDependencySummary(snap.Daemon.Dependencies)
	snap.Checks = preflight.RunAll(ctx, cfg)

	if cfg.History.Enabled {
		snap.HistoryCounts = historyCounts(ctx, cfg)
	}
	return snap, nil
}

// historyCounts reads the journal directly. SQLite tolerates the daemon
// holding the same file open, so this works whether or not it is running.
func historyCounts(ctx context.Context, cfg *config.Config) map[string]int {
	path := cfg.HistoryPath()
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	store, err := history.Open(path, cfg.History.MaxEntries)
	if err != nil {
		return nil
	}
	defer store.Close()
	counts, err := store.Counts(queryCtx)
	if err != nil {
		return nil
	}
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	return out
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(statuses []api.DependencyStatus) DependencySummary {
	if len(statuses) == 0 {
		return DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	missingRequired := 0
	missingOptional := 0
	for _, dep := range statuses {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}

	missingCount := missingRequired + missingOptional
	available := len(statuses) - missingCount
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(statuses), missingRequired, missingOptional)
	if missingCount == 0 {
		detail = fmt.Sprintf("%d/%d available", available, len(statuses))
	}

	return DependencySummary{
		Total:           len(statuses),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}

// DependencySeverity maps one dependency to ok, warn or error.
func DependencySeverity(dep api.DependencyStatus) string {
	switch {
	case dep.Available:
		return "ok"
	case dep.Optional:
		return "warn"
	default:
		return "error"
	}
}
