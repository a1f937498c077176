package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the configuration value meaning "let the backend detect".
const Auto = "auto"

// IsAuto reports whether value asks for language detection.
func IsAuto(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "" || value == Auto
}

// ToISO2 converts a language code to ISO 639-1 when one exists. Codes
// without a two-letter form keep their canonical three-letter spelling.
// Returns empty string for unrecognized input.
func ToISO2(code string) string {
	base, ok := parseBase(code)
	if !ok {
		return ""
	}
	return base.String()
}

// DisplayName returns the English name for code, "Unknown" for empty input,
// or the uppercased code when x/text has no name for it.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if base, ok := parseBase(trimmed); ok {
		if name := display.English.Languages().Name(base); name != "" {
			return name
		}
	}
	return strings.ToUpper(trimmed)
}

// Hint normalizes a configured language hint. Auto-detect and unknown
// values return "", meaning no hint should be passed to the backend.
func Hint(value string) string {
	if IsAuto(value) {
		return ""
	}
	return ToISO2(value)
}

func parseBase(code string) (language.Base, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == Auto {
		return language.Base{}, false
	}
	if idx := strings.IndexAny(code, "-_"); idx > 0 {
		code = code[:idx]
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return language.Base{}, false
	}
	return base, true
}
