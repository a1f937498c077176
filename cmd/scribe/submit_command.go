package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/ipc"
)

const waitPollInterval = time.Second

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var wait bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit <media-file>...",
		Short: "Queue media files for transcription",
		Long: "Submit queues each file for transcription in order. Output defaults to\n" +
			"<input>.srt next to the input, or under paths.output_dir when configured.\n" +
			"Relative paths are resolved against the current directory.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputPath != "" && len(args) > 1 {
				return errors.New("--output can only be used with a single input")
			}
			output, err := absPath(outputPath)
			if err != nil {
				return err
			}

			return ctx.withClient(func(client *ipc.Client) error {
				baseline, err := client.Progress()
				if err != nil {
					return err
				}

				jobs := make([]api.Job, 0, len(args))
				var rejected error
				for _, arg := range args {
					input, err := absPath(arg)
					if err != nil {
						return err
					}
					resp, err := client.Submit(input, output)
					if err != nil {
						return err
					}
					if !resp.Accepted {
						rejected = fmt.Errorf("submit %s: %s (%s)", arg, resp.Message, resp.Code)
						if !asJSON {
							fmt.Fprintln(cmd.ErrOrStderr(), rejected)
						}
						if resp.Code == ipc.CodeShuttingDown {
							break
						}
						continue
					}
					jobs = append(jobs, resp.Job)
					if !asJSON {
						fmt.Fprintf(cmd.OutOrStdout(), "Queued %s -> %s (job %s)\n", resp.Job.InputPath, resp.Job.OutputPath, resp.Job.ID)
					}
				}

				if wait && len(jobs) > 0 {
					final, err := waitForIdle(cmd, client, baseline.Progress.Completed+len(jobs))
					if err != nil {
						return err
					}
					if !asJSON && final.LastResult != nil {
						fmt.Fprintln(cmd.OutOrStdout(), resultSummary(*final.LastResult))
					}
				}
				if asJSON {
					if err := writeJSON(cmd, jobs); err != nil {
						return err
					}
				}
				return rejected
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Subtitle output path (single input only)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait until the daemon has finished the submitted jobs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output admitted jobs as JSON")
	return cmd
}

// waitForIdle polls until at least target jobs have completed and nothing is
// queued or running.
func waitForIdle(cmd *cobra.Command, client *ipc.Client, target int) (api.Progress, error) {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()
	for {
		resp, err := client.Progress()
		if err != nil {
			return api.Progress{}, err
		}
		p := resp.Progress
		if p.Completed >= target && p.Queued == 0 && !p.Busy() {
			return p, nil
		}
		select {
		case <-cmd.Context().Done():
			return p, cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

func resultSummary(r api.Result) string {
	if r.Status != "success" {
		kind := ""
		if r.ErrorKind != "" {
			kind = " [" + r.ErrorKind + "]"
		}
		return fmt.Sprintf("Failed %s: %s%s", r.InputPath, r.Error, kind)
	}
	return fmt.Sprintf("Wrote %s (%d segments, %s, %s, confidence %s)",
		r.OutputPath, r.Segments, api.LanguageLabel(r), api.ElapsedLabel(r.ElapsedSeconds), api.ConfidenceLabel(r.Confidence))
}

func absPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return abs, nil
}
