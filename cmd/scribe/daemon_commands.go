package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/daemonctl"
	"scribe/internal/ipc"
)

const (
	startWaitTimeout = 10 * time.Second
	stopKillGrace    = 5 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startDiagnostic bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the scribe daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx, startDiagnostic),
				startWaitTimeout,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startDiagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")

	var stopTimeout time.Duration
	var stopForce bool
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Drain queued jobs and stop the scribe daemon",
		Long: "Stop closes the queue to new submissions, lets the worker finish every job\n" +
			"already queued, then terminates the daemon. If the worker has not drained\n" +
			"within the timeout the in-flight job is abandoned and the remaining queue\n" +
			"is discarded. --force skips the drain entirely.",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			req := ipc.StopRequest{Force: stopForce}
			if stopTimeout > 0 {
				req.TimeoutSeconds = max(1, int(stopTimeout.Round(time.Second)/time.Second))
			}
			fmt.Fprintln(stdout, "Stopping daemon; waiting for queued jobs to drain...")
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), req, stopKillGrace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			printStopSummary(cmd, result)
			return nil
		},
	}
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 0, "How long to wait for the queue to drain (default workflow.stop_timeout_seconds)")
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "Abandon the in-flight job and discard the queue immediately")

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, worker, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, snap)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			writeSection(stdout, "Daemon", daemonLines(snap, colorize), colorize)
			if snap.Daemon.Running {
				writeSection(stdout, "Progress", progressLines(snap.Daemon.Workflow.Progress, colorize), colorize)
			}
			writeSection(stdout, "Checks", checkLines(snap.Checks, colorize), colorize)
			writeSection(stdout, "Dependencies", dependencyLines(snap.Daemon.Dependencies, colorize), colorize)

			for _, line := range renderSectionHeader("History", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := historyCountRows(snap.HistoryCounts)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No finished jobs recorded")
				return nil
			}
			fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	var restartDiagnostic bool
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the scribe daemon (drains the queue first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, restartDiagnostic),
				stopKillGrace,
				startWaitTimeout,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				printStopSummary(cmd, result.Stop)
			}
			fmt.Fprintf(stdout, "Daemon restarted (pid %d)\n", result.Start.PID)
			return nil
		},
	}
	restartCmd.Flags().BoolVar(&restartDiagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func printStopSummary(cmd *cobra.Command, result daemonctl.StopResult) {
	stdout := cmd.OutOrStdout()
	summary := result.Summary
	switch {
	case summary.Drained:
		fmt.Fprintln(stdout, "Queue drained")
	case summary.Forced:
		if summary.Abandoned != nil {
			fmt.Fprintf(stdout, "Abandoned in-flight job %s (%s)\n", summary.Abandoned.ID, summary.Abandoned.InputPath)
		}
		if summary.Discarded > 0 {
			fmt.Fprintf(stdout, "Discarded %d queued job(s)\n", summary.Discarded)
		}
	}
	if result.ForcedKill && result.PID > 0 {
		fmt.Fprintf(stdout, "Killed unresponsive daemon process (pid %d)\n", result.PID)
	}
	fmt.Fprintln(stdout, "Daemon stopped")
}

func historyCountRows(counts map[string]int) [][]string {
	order := []string{"success", "error"}
	rows := make([][]string, 0, len(order))
	for _, status := range order {
		if n, ok := counts[status]; ok && n > 0 {
			rows = append(rows, []string{status, fmt.Sprintf("%d", n)})
		}
	}
	return rows
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, diagnostic bool) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{Diagnostic: diagnostic}
	if path := ctx.configFlagValue(); path != "" {
		opts.ConfigPath = path
	}
	return opts
}
