package subtitles

import "fmt"

// Validate reports format problems in an SRT file. An empty slice means the
// file passed.
func Validate(path string) []string {
	cues, err := ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("parse_error: %v", err)}
	}
	if len(cues) == 0 {
		return []string{"empty_subtitle_file"}
	}
	var issues []string
	for i, cue := range cues {
		if cue.Index != i+1 {
			issues = append(issues, fmt.Sprintf("cue %d: index %d out of sequence", i+1, cue.Index))
		}
		if cue.End < cue.Start {
			issues = append(issues, fmt.Sprintf("cue %d: ends before it starts", cue.Index))
		}
	}
	return issues
}
