package workflow

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/queue"
)

// defaultKillGrace bounds how long Stop waits for the worker after
// cancelling it. A transcriber that ignores cancellation is left behind.
const defaultKillGrace = 5 * time.Second

type supervisorState int

const (
	stateIdle supervisorState = iota
	stateRunning
	stateExited
)

// StopResult describes how the worker ended.
type StopResult struct {
	// Drained is true when the worker consumed everything up to the sentinel.
	Drained bool `json:"drained"`
	// Forced is true when the timeout expired and the worker was cancelled.
	Forced bool `json:"forced"`
	// Abandoned is the job that was in flight when the worker was cancelled.
	Abandoned *queue.Job `json:"abandoned,omitempty"`
	// Discarded counts jobs left in the queue that will never run.
	Discarded int `json:"discarded"`
}

// Supervisor owns the worker goroutine and its lifecycle.
type Supervisor struct {
	queue     *queue.Queue
	progress  *progress.Store
	worker    *worker
	logger    *slog.Logger
	killGrace time.Duration

	// onForced runs once after a forced stop finishes waiting.
	onForced   func(StopResult)
	forcedOnce sync.Once

	mu        sync.Mutex
	state     supervisorState
	cancel    context.CancelFunc
	done      chan struct{}
	exit      workerExit
	forced    bool
	abandoned *queue.Job
	discarded int
	startedAt time.Time
}

func newSupervisor(q *queue.Queue, store *progress.Store, w *worker, logger *slog.Logger, killGrace time.Duration) *Supervisor {
	if killGrace <= 0 {
		killGrace = defaultKillGrace
	}
	return &Supervisor{
		queue:     q,
		progress:  store,
		worker:    w,
		logger:    logger,
		killGrace: killGrace,
		done:      make(chan struct{}),
	}
}

// Start launches the worker with a private cancellable context.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateRunning:
		return ErrAlreadyStarted
	case stateExited:
		return ErrStopped
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = stateRunning
	s.startedAt = time.Now()
	go s.run(runCtx)
	return nil
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)
	exit := s.worker.loop(ctx)
	// Nothing will consume jobs any more.
	s.queue.Close()
	if exit.reason != exitSentinel {
		s.abandon()
	}

	s.mu.Lock()
	s.exit = exit
	s.state = stateExited
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done is closed once the worker has exited.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Running reports whether the worker goroutine is alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

// StartedAt returns when Start was called, or the zero time.
func (s *Supervisor) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// LastError returns the fault that killed the worker, if any.
func (s *Supervisor) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exit.err
}

// Stop enqueues the sentinel behind every submitted job and waits up to
// timeout for the worker to drain. On expiry the worker is cancelled, its
// in-flight job is abandoned without a Result, and ErrForcedTermination is
// returned. Concurrent calls are allowed; each applies its own timeout.
func (s *Supervisor) Stop(timeout time.Duration) (StopResult, error) {
	if s.queue.Close() {
		s.logger.Info("stop requested; draining queue",
			logging.Int("pending", s.queue.Len()),
			logging.Bool("busy", s.progress.Snapshot().Busy()),
			logging.Duration("timeout", timeout),
			logging.String(logging.FieldEventType, "stop_requested"),
		)
	}

	s.mu.Lock()
	if s.state == stateIdle {
		// Never started: the backlog is dropped and the supervisor can no
		// longer be started.
		s.state = stateExited
		s.exit = workerExit{reason: exitCancelled}
		s.discarded = s.discardPending()
		close(s.done)
		res := StopResult{Discarded: s.discarded}
		s.mu.Unlock()
		return res, nil
	}
	s.mu.Unlock()

	timer := time.NewTimer(max(timeout, 0))
	defer timer.Stop()
	select {
	case <-s.done:
		res := s.result()
		if res.Forced {
			// A concurrent Stop with a shorter timeout got there first.
			return res, ErrForcedTermination
		}
		return res, nil
	case <-timer.C:
	}

	s.mu.Lock()
	s.forced = true
	cancel := s.cancel
	s.mu.Unlock()

	logging.WarnWithContext(s.logger, "stop timed out; terminating worker", "worker_forced_stop",
		logging.Duration("timeout", timeout),
		logging.String(logging.FieldErrorHint, "raise workflow.stop_timeout_seconds for long media"),
		logging.String(logging.FieldImpact, "in-flight job is abandoned without a result"),
		logging.Alert("forced_termination"),
	)
	s.abandon()
	cancel()

	select {
	case <-s.done:
	case <-time.After(s.killGrace):
		s.logger.Error("worker ignored cancellation",
			logging.Duration("grace", s.killGrace),
			logging.String(logging.FieldEventType, "worker_unresponsive"),
			logging.String(logging.FieldErrorHint, "the transcriber did not exit; the daemon process must be killed"),
			logging.Alert("worker_unresponsive"),
		)
	}
	res := s.result()
	if s.onForced != nil {
		s.forcedOnce.Do(func() { s.onForced(res) })
	}
	return res, ErrForcedTermination
}

// abandon seals the worker and clears the in-flight marker. Only the first
// call has any effect.
func (s *Supervisor) abandon() {
	job, first := s.worker.seal()
	if !first {
		return
	}
	discarded := s.discardPending()

	s.mu.Lock()
	s.abandoned = job
	s.discarded = discarded
	s.mu.Unlock()

	if job != nil {
		s.logger.Warn("in-flight job abandoned",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("input", job.InputPath),
			logging.Int("discarded", discarded),
			logging.String(logging.FieldEventType, "job_abandoned"),
			logging.String(logging.FieldErrorHint, "resubmit the job after restarting the daemon"),
			logging.String(logging.FieldImpact, "job has no result"),
		)
	}
}

// discardPending logs every job still waiting behind the sentinel and drops
// them from the backlog count.
func (s *Supervisor) discardPending() int {
	pending := s.queue.Pending()
	for _, job := range pending {
		s.logger.Warn("queued job discarded",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("input", job.InputPath),
			logging.String(logging.FieldEventType, "job_discarded"),
			logging.String(logging.FieldErrorHint, "resubmit the job after restarting the daemon"),
		)
	}
	s.progress.Abandon(len(pending))
	return len(pending)
}

func (s *Supervisor) result() StopResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := StopResult{
		Drained:   s.state == stateExited && s.exit.reason == exitSentinel && !s.forced,
		Forced:    s.forced,
		Discarded: s.discarded,
	}
	if s.abandoned != nil {
		job := *s.abandoned
		res.Abandoned = &job
	}
	return res
}

// StopOutcome is delivered by ForwardSignals once a signal-driven stop ends.
type StopOutcome struct {
	Signal os.Signal
	Result StopResult
	Err    error
}

// ForwardSignals routes SIGINT and SIGTERM into Stop(timeout). A second
// signal while draining forces termination immediately. The returned
// channel receives one outcome; forwarding ends when ctx is done.
func (s *Supervisor) ForwardSignals(ctx context.Context, timeout time.Duration) <-chan StopOutcome {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	out := make(chan StopOutcome, 1)

	go func() {
		defer signal.Stop(sigs)
		var (
			once      sync.Once
			delivered = make(chan struct{})
			received  int
		)
		deliver := func(outcome StopOutcome) {
			once.Do(func() {
				out <- outcome
				close(delivered)
			})
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-delivered:
				return
			case sig := <-sigs:
				received++
				wait := timeout
				if received > 1 {
					wait = 0
				}
				s.logger.Info("signal received; stopping worker",
					logging.String("signal", sig.String()),
					logging.Duration("timeout", wait),
					logging.String(logging.FieldEventType, "signal_stop"),
				)
				go func() {
					res, err := s.Stop(wait)
					deliver(StopOutcome{Signal: sig, Result: res, Err: err})
				}()
			}
		}
	}()
	return out
}
