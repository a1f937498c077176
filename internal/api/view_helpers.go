package api

import (
	"fmt"
	"path/filepath"
	"time"
)

// ElapsedLabel renders elapsed seconds for humans, or "-" when unknown.
func ElapsedLabel(seconds *float64) string {
	if seconds == nil {
		return "-"
	}
	d := time.Duration(*seconds * float64(time.Second))
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// ConfidenceLabel renders a 0..1 confidence as a percentage.
func ConfidenceLabel(confidence *float64) string {
	if confidence == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", *confidence*100)
}

// LanguageLabel prefers the display name, falling back to the code.
func LanguageLabel(r Result) string {
	switch {
	case r.LanguageName != "" && r.Language != "":
		return fmt.Sprintf("%s (%s)", r.LanguageName, r.Language)
	case r.Language != "":
		return r.Language
	default:
		return "-"
	}
}

// ShortPath trims a path to its last two elements for table cells.
func ShortPath(path string) string {
	if path == "" {
		return "-"
	}
	dir := filepath.Base(filepath.Dir(path))
	if dir == "." || dir == string(filepath.Separator) {
		return filepath.Base(path)
	}
	return filepath.Join(dir, filepath.Base(path))
}

// Since reports how long ago a payload timestamp was, relative to now.
func Since(value string, now time.Time) string {
	t := ParseTime(value)
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}
