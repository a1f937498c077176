package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/history"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/workflow"
)

// ErrAlreadyRunning reports that another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another scribe daemon instance is already running")

// Daemon coordinates the worker, the HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	workflow *workflow.Manager
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	api *apiServer

	depsMu       sync.RWMutex
	dependencies []deps.Status

	running  atomic.Bool
	stopping atomic.Bool
	cancel   context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	LockFilePath string
	LogPath      string
	HistoryPath  string
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies. notifier may be nil.
func New(cfg *config.Config, logger *slog.Logger, wf *workflow.Manager, logPath string, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || wf == nil {
		return nil, errors.New("daemon requires config and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		workflow: wf,
		notifier: notifier,
		logPath:  logPath,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, launches the worker and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		_, _ = d.workflow.Stop(0)
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("scribe daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop drains the worker within timeout, then releases the lock. Concurrent
// calls each apply their own timeout; teardown happens once.
func (d *Daemon) Stop(timeout time.Duration) (workflow.StopResult, error) {
	d.stopping.Store(true)
	res, err := d.workflow.Stop(timeout)
	if !d.running.CompareAndSwap(true, false) {
		return res, err
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
	}
	if unlockErr := d.lock.Unlock(); unlockErr != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(unlockErr),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if the next start reports a running instance"),
		)
	}

	completed := d.workflow.Progress().Completed
	d.logger.Info("scribe daemon stopped",
		logging.Bool("drained", res.Drained),
		logging.Bool("forced", res.Forced),
		logging.Int("completed", completed),
		logging.Int("discarded", res.Discarded),
		logging.String(logging.FieldEventType, "daemon_stopped"),
	)
	if d.notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if notifyErr := d.notifier.Publish(ctx, notifications.EventDaemonStopped, notifications.Payload{
			"completed": strconv.Itoa(completed),
		}); notifyErr != nil {
			d.logger.Debug("daemon stopped notification failed", logging.Error(notifyErr))
		}
	}
	return res, err
}

// Close stops the daemon without waiting for the backlog.
func (d *Daemon) Close() error {
	_, err := d.Stop(0)
	if errors.Is(err, workflow.ErrForcedTermination) {
		return nil
	}
	return err
}

// Done is closed when the worker exits for any reason.
func (d *Daemon) Done() <-chan struct{} {
	return d.workflow.Done()
}

// Stopping reports whether a stop has been requested.
func (d *Daemon) Stopping() bool {
	return d.stopping.Load()
}

// Submit enqueues a transcription job.
func (d *Daemon) Submit(ctx context.Context, inputPath, outputPath string) (queue.Job, error) {
	return d.workflow.Submit(ctx, inputPath, outputPath)
}

// Progress returns a progress snapshot.
func (d *Daemon) Progress() progress.State {
	return d.workflow.Progress()
}

// History returns recent journaled results and whether the journal is on.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Entry, bool, error) {
	if !d.workflow.HistoryEnabled() {
		return nil, false, nil
	}
	entries, err := d.workflow.History(ctx, limit)
	return entries, true, err
}

// SetDependencies records the startup dependency snapshot.
func (d *Daemon) SetDependencies(statuses []deps.Status) {
	d.depsMu.Lock()
	d.dependencies = append([]deps.Status(nil), statuses...)
	d.depsMu.Unlock()
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := d.notifier
	if notifier == nil {
		notifier = notifications.NewService(d.cfg)
	}
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// APIAddr returns the HTTP API address, or "" when the API is disabled.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.depsMu.RLock()
	dependencies := append([]deps.Status(nil), d.dependencies...)
	d.depsMu.RUnlock()

	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		Dependencies: dependencies,
	}
	if d.workflow.HistoryEnabled() {
		status.HistoryPath = d.cfg.HistoryPath()
	}
	return status
}
