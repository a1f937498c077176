package logging

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RetentionTarget is one directory of per-run daemon logs. Pattern selects
// the run logs (scribe-*.log); Exclude names files that must survive, such
// as the log the current run is writing.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs deletes run logs last modified more than retentionDays ago
// and returns how many were removed. Symlinks are never touched, so the
// scribe.log pointer survives even when its target is pruned. Zero or
// negative retentionDays keeps everything.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, target := range targets {
		removed += pruneTarget(logger, target, cutoff)
	}
	if removed > 0 && logger != nil {
		logger.Info("old run logs pruned",
			Int("removed", removed),
			Int("retention_days", retentionDays),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, cutoff time.Time) int {
	if target.Dir == "" || target.Pattern == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(target.Dir, target.Pattern))
	if err != nil {
		return 0
	}
	keep := make(map[string]struct{}, len(target.Exclude))
	for _, path := range target.Exclude {
		keep[filepath.Clean(path)] = struct{}{}
	}

	removed := 0
	for _, path := range matches {
		if _, ok := keep[filepath.Clean(path)]; ok {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || info.Mode()&fs.ModeType != 0 || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "unable to prune run log", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of paths.log_dir"),
				String(FieldImpact, "old run log stays on disk"),
			)
			continue
		}
		removed++
	}
	return removed
}
