package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/history"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/subtitles"
	"scribe/internal/transcribe"
)

// Manager is the in-process API: submission, progress and lifecycle.
type Manager struct {
	cfg         *config.Config
	logger      *slog.Logger
	queue       *queue.Queue
	progress    *progress.Store
	supervisor  *Supervisor
	transcriber transcribe.Transcriber
	history     *history.Store
	notifier    notifications.Service
	capacity    int
	policy      queue.FullPolicy
}

// Option customizes a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	notifier  notifications.Service
	history   *history.Store
	sinks     []ResultSink
	killGrace time.Duration
}

// WithNotifier publishes job and shutdown events through n.
func WithNotifier(n notifications.Service) Option {
	return func(o *managerOptions) { o.notifier = n }
}

// WithHistory journals every Result into store.
func WithHistory(store *history.Store) Option {
	return func(o *managerOptions) { o.history = store }
}

// WithSinks appends extra result sinks.
func WithSinks(sinks ...ResultSink) Option {
	return func(o *managerOptions) { o.sinks = append(o.sinks, sinks...) }
}

// WithKillGrace overrides how long a forced stop waits for the worker.
func WithKillGrace(d time.Duration) Option {
	return func(o *managerOptions) { o.killGrace = d }
}

// NewManager wires the queue, progress store and supervised worker.
func NewManager(cfg *config.Config, transcriber transcribe.Transcriber, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "new manager", "config is required", nil)
	}
	if transcriber == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "new manager", "transcriber is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	options := managerOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	policy, err := queue.ParseFullPolicy(cfg.Queue.FullPolicy)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "new manager", "invalid queue policy", err)
	}

	store := progress.New()
	q := queue.New(queue.Options{
		Capacity: cfg.Queue.Capacity,
		Policy:   policy,
		OnAdmit:  func(queue.Job) { store.Enqueued() },
	})

	sinks := make([]ResultSink, 0, len(options.sinks)+2)
	if options.history != nil {
		sinks = append(sinks, options.history)
	}
	if options.notifier != nil {
		sinks = append(sinks, NotifierSink(options.notifier))
	}
	sinks = append(sinks, options.sinks...)

	workerLogger := logging.NewComponentLogger(logger, "worker")
	w := &worker{
		queue:       q,
		progress:    store,
		transcriber: transcriber,
		sinks:       sinks,
		logger:      workerLogger,
		write:       subtitles.WriteFile,
	}

	m := &Manager{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		queue:       q,
		progress:    store,
		transcriber: transcriber,
		history:     options.history,
		notifier:    options.notifier,
		capacity:    max(cfg.Queue.Capacity, 0),
		policy:      policy,
	}
	m.supervisor = newSupervisor(q, store, w, logging.NewComponentLogger(logger, "supervisor"), options.killGrace)
	m.supervisor.onForced = m.notifyForced
	return m, nil
}

// Submit enqueues a job and returns as soon as it is admitted. An empty
// output path falls back to the configured default location.
func (m *Manager) Submit(ctx context.Context, inputPath, outputPath string) (queue.Job, error) {
	inputPath = strings.TrimSpace(inputPath)
	if inputPath == "" {
		return queue.Job{}, services.Wrap(services.ErrValidation, "submit", "validate input", "input path is required", nil)
	}
	outputPath = strings.TrimSpace(outputPath)
	if outputPath == "" {
		outputPath = m.cfg.DefaultOutputPath(inputPath)
	}

	job := queue.NewJob(inputPath, outputPath)
	if err := m.queue.Submit(ctx, job); err != nil {
		m.logger.Warn("job rejected",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("input", inputPath),
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_rejected"),
			logging.String(logging.FieldErrorHint, "the daemon is stopping or the queue is full"),
		)
		return queue.Job{}, err
	}
	m.logger.Info("job queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("input", job.InputPath),
		logging.String("output", job.OutputPath),
		logging.Int("backlog", m.queue.Len()),
		logging.String(logging.FieldEventType, "job_queued"),
	)
	return job, nil
}

// Progress returns a snapshot of the progress state.
func (m *Manager) Progress() progress.State {
	return m.progress.Snapshot()
}

// Start launches the worker.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.supervisor.Start(ctx); err != nil {
		return err
	}
	m.logger.Info("worker started",
		logging.String("backend", m.transcriber.Name()),
		logging.Int("queue_capacity", m.capacity),
		logging.String("queue_policy", string(m.policy)),
		logging.String(logging.FieldEventType, "worker_started"),
	)
	return nil
}

// Stop drains the queue and waits up to timeout; see Supervisor.Stop.
func (m *Manager) Stop(timeout time.Duration) (StopResult, error) {
	return m.supervisor.Stop(timeout)
}

// Done is closed once the worker has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.supervisor.Done()
}

// ForwardSignals routes SIGINT and SIGTERM into Stop; see
// Supervisor.ForwardSignals.
func (m *Manager) ForwardSignals(ctx context.Context, timeout time.Duration) <-chan StopOutcome {
	return m.supervisor.ForwardSignals(ctx, timeout)
}

// StatusSummary describes the worker for status surfaces.
type StatusSummary struct {
	Running       bool           `json:"running"`
	Draining      bool           `json:"draining"`
	StartedAt     time.Time      `json:"started_at,omitzero"`
	Backend       string         `json:"backend"`
	QueueCapacity int            `json:"queue_capacity"`
	QueuePolicy   string         `json:"queue_policy"`
	Progress      progress.State `json:"progress"`
	LastError     string         `json:"last_error,omitempty"`
}

// Status reports worker liveness alongside a progress snapshot.
func (m *Manager) Status() StatusSummary {
	summary := StatusSummary{
		Running:       m.supervisor.Running(),
		Draining:      m.queue.Closed(),
		StartedAt:     m.supervisor.StartedAt(),
		Backend:       m.transcriber.Name(),
		QueueCapacity: m.capacity,
		QueuePolicy:   string(m.policy),
		Progress:      m.progress.Snapshot(),
	}
	if err := m.supervisor.LastError(); err != nil {
		summary.LastError = err.Error()
	}
	return summary
}

// History returns up to limit journaled results, newest first. It returns
// nothing when the journal is disabled.
func (m *Manager) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if m.history == nil {
		return nil, nil
	}
	return m.history.Recent(ctx, limit)
}

// HistoryEnabled reports whether results are journaled.
func (m *Manager) HistoryEnabled() bool {
	return m.history != nil
}

func (m *Manager) notifyForced(res StopResult) {
	if m.notifier == nil {
		return
	}
	payload := notifications.Payload{"discarded": strconv.Itoa(res.Discarded)}
	if res.Abandoned != nil {
		payload["input"] = res.Abandoned.InputPath
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout(m.cfg))
	defer cancel()
	if err := m.notifier.Publish(ctx, notifications.EventForcedShutdown, payload); err != nil {
		logging.WarnWithContext(m.logger, "forced shutdown notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, fmt.Sprintf("check ntfy topic %q", m.cfg.Notifications.NtfyTopic)),
		)
	}
}

func notifyTimeout(cfg *config.Config) time.Duration {
	if cfg.Notifications.RequestTimeout > 0 {
		return time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	}
	return 10 * time.Second
}
