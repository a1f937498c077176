package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/deps"
	"scribe/internal/fileutil"
	"scribe/internal/history"
	"scribe/internal/ipc"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/preflight"
	"scribe/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Diagnostic tees a debug-level JSON log into log_dir/debug.
	Diagnostic bool
}

// Run starts the scribe daemon and blocks until it is stopped by a signal,
// an IPC Stop request, cancellation of cmdCtx or a worker crash.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("scribe-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
	if opts.Diagnostic {
		logger = withDiagnosticLog(logger, debugDir, runID)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update scribe.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "scribe-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: debugDir, Pattern: "scribe-*.log", Exclude: []string{filepath.Join(debugDir, fmt.Sprintf("scribe-%s.log", runID))}},
	)

	statuses := deps.Check(cfg)
	logDependencySnapshot(logger, cfg, statuses)
	logPreflight(cmdCtx, logger, cfg)

	transcriber, err := NewTranscriber(cfg)
	if err != nil {
		return err
	}

	var journal *history.Store
	if cfg.History.Enabled {
		journal, err = history.Open(cfg.HistoryPath(), cfg.History.MaxEntries)
		if err != nil {
			logging.WarnWithContext(logger, "history journal unavailable; results will not be recorded", "history_open_failed",
				logging.Error(err),
				logging.String("path", cfg.HistoryPath()),
				logging.String(logging.FieldErrorHint, "check permissions on paths.log_dir or set history.enabled = false"),
			)
		} else {
			defer journal.Close()
		}
	}

	notifier := notifications.NewService(cfg)
	managerOpts := []workflow.Option{workflow.WithNotifier(notifier)}
	if journal != nil {
		managerOpts = append(managerOpts, workflow.WithHistory(journal))
	}
	manager, err := workflow.NewManager(cfg, transcriber, logger, managerOpts...)
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg, logger, manager, logPath, notifier)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	d.SetDependencies(statuses)

	runCtx, cancel := context.WithCancel(cmdCtx)
	defer cancel()

	// The lock must be held before the socket is replaced, or a second
	// instance would hijack the first one's IPC endpoint.
	if err := d.Start(runCtx); err != nil {
		return err
	}
	defer d.Close()

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ipcServer, err := ipc.NewServer(runCtx, cfg.SocketPath(), d, cfg.StopTimeout(), logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	outcomes := manager.ForwardSignals(runCtx, cfg.StopTimeout())
	return waitForShutdown(cmdCtx, logger, cfg.StopTimeout(), d, ipcServer.StopRequested(), outcomes)
}

func waitForShutdown(
	cmdCtx context.Context,
	logger *slog.Logger,
	stopTimeout time.Duration,
	d *daemon.Daemon,
	ipcStop <-chan struct{},
	outcomes <-chan workflow.StopOutcome,
) error {
	select {
	case outcome := <-outcomes:
		logger.Info("scribe daemon shutting down",
			logging.String("signal", outcome.Signal.String()),
			logging.Bool("forced", outcome.Result.Forced),
			logging.String(logging.FieldEventType, "daemon_shutdown"),
		)
		_, _ = d.Stop(0)
		return outcome.Err
	case <-ipcStop:
		logger.Info("scribe daemon shutting down",
			logging.String("reason", "ipc_stop"),
			logging.String(logging.FieldEventType, "daemon_shutdown"),
		)
		return nil
	case <-cmdCtx.Done():
		_, err := d.Stop(stopTimeout)
		return err
	case <-d.Done():
		status := d.Status()
		if status.Workflow.LastError == "" {
			// Orderly drain; wait for whichever stop path initiated it.
			select {
			case outcome := <-outcomes:
				_, _ = d.Stop(0)
				return outcome.Err
			case <-ipcStop:
				return nil
			case <-cmdCtx.Done():
				_, err := d.Stop(stopTimeout)
				return err
			}
		}
		logging.ErrorWithContext(logger, "worker exited unexpectedly", "worker_crashed",
			logging.String("error", status.Workflow.LastError),
			logging.String(logging.FieldImpact, "queued jobs were discarded"),
		)
		_, _ = d.Stop(0)
		return errors.New("worker exited: " + status.Workflow.LastError)
	}
}

func withDiagnosticLog(logger *slog.Logger, debugDir, runID string) *slog.Logger {
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to create debug log directory: %v\n", err)
		return logger
	}
	debugLogPath := filepath.Join(debugDir, fmt.Sprintf("scribe-%s.log", runID))
	debugLogger, err := logging.New(logging.Options{
		Level:            "debug",
		Format:           "json",
		OutputPaths:      []string{debugLogPath},
		ErrorOutputPaths: []string{debugLogPath},
		Development:      true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", err)
		return logger
	}
	logger = logging.TeeLogger(logger, debugLogger.Handler())
	if err := ensureCurrentLogPointer(debugDir, debugLogPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update debug/scribe.log link: %v\n", err)
	}
	logger.Info("diagnostic mode enabled",
		logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
		logging.String("debug_log_path", debugLogPath),
	)
	return logger
}

// ensureCurrentLogPointer points logDir/scribe.log at target, falling back to
// a hard link where symlinks are unavailable.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "scribe.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return fileutil.WriteFileAtomic(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config, statuses []deps.Status) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("backend", cfg.Transcriber.Backend),
		logging.String("model", cfg.Transcriber.Model),
		logging.String("device", cfg.Transcriber.Device),
		logging.Bool("hf_token_present", cfg.Transcriber.HFToken != ""),
		logging.Bool("ntfy_enabled", cfg.Notifications.NtfyTopic != ""),
		logging.Bool("api_enabled", cfg.API.Bind != ""),
	}
	for _, status := range statuses {
		attrs = append(attrs, logging.Bool(status.Command+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	for _, missing := range deps.MissingRequired(statuses) {
		logging.WarnWithContext(logger, "required dependency missing", "dependency_missing",
			logging.String("dependency", missing.Name),
			logging.String("command", missing.Command),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldImpact, "jobs will fail until the dependency is installed"),
			logging.String(logging.FieldErrorHint, "install "+missing.Name+" or fix transcriber settings"),
		)
	}
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run scribe config validate for details"),
		)
	}
}
