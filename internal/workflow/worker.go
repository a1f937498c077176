package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/subtitles"
	"scribe/internal/transcribe"
)

const (
	stageTranscribe = "transcribe"
	stageWrite      = "write_srt"
)

type exitReason int

const (
	exitSentinel exitReason = iota
	exitCancelled
	exitCrashed
)

type workerExit struct {
	reason exitReason
	err    error
}

// worker is the single consumer of the job queue. The gate serializes
// progress transitions against sealing, so once a forced stop seals the
// worker no further Begin or Publish can land.
type worker struct {
	queue       *queue.Queue
	progress    *progress.Store
	transcriber transcribe.Transcriber
	sinks       []ResultSink
	logger      *slog.Logger
	write       func(path string, segments []transcribe.Segment) error

	gate    sync.Mutex
	sealed  bool
	current *queue.Job
}

func (w *worker) loop(ctx context.Context) (exit workerExit) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("worker crashed: %v", r)
			w.logger.Error("worker loop crashed; no further jobs will run",
				logging.Error(err),
				logging.String(logging.FieldEventType, "worker_crashed"),
				logging.String(logging.FieldErrorHint, "restart the daemon; pending jobs were not processed"),
				logging.Alert("worker_crashed"),
				logging.String("stack", string(debug.Stack())),
			)
			exit = workerExit{reason: exitCrashed, err: err}
		}
	}()

	for {
		job, ok, err := w.queue.Next(ctx)
		if err != nil {
			return workerExit{reason: exitCancelled}
		}
		if !ok {
			w.logger.Info("stop sentinel reached; worker exiting",
				logging.String(logging.FieldEventType, "worker_drained"),
			)
			return workerExit{reason: exitSentinel}
		}
		if !w.begin(job) {
			return workerExit{reason: exitCancelled}
		}

		jobCtx := services.WithStage(services.WithJobID(ctx, job.ID), stageTranscribe)
		result, completed := w.process(jobCtx, job)
		if !completed || !w.publish(result) {
			return workerExit{reason: exitCancelled}
		}
		w.fanOut(jobCtx, result)
	}
}

// process runs one job. completed is false when ctx ended mid-job, in which
// case no Result may be published.
func (w *worker) process(ctx context.Context, job queue.Job) (result progress.Result, completed bool) {
	logger := logging.WithContext(ctx, w.logger)
	started := time.Now()
	logger.Info("job started",
		logging.String("input", job.InputPath),
		logging.String("output", job.OutputPath),
		logging.Duration("waited", started.Sub(job.SubmittedAt)),
		logging.String(logging.FieldEventType, "job_started"),
	)

	transcript, err := w.transcribe(ctx, job)
	if err == nil {
		err = transcript.Validate()
		if err != nil {
			err = services.Wrap(services.ErrValidation, stageTranscribe, w.transcriber.Name(), "transcriber returned invalid segments", err)
		}
	}
	if err == nil {
		err = w.writeArtifact(job, transcript.Segments)
	}
	if ctx.Err() != nil {
		logger.Warn("job interrupted by shutdown; no result will be published",
			logging.String("input", job.InputPath),
			logging.String(logging.FieldEventType, "job_abandoned"),
			logging.String(logging.FieldErrorHint, "resubmit the job after restarting the daemon"),
			logging.String(logging.FieldImpact, "job has no result"),
		)
		return progress.Result{}, false
	}
	elapsed := time.Since(started).Seconds()

	result = progress.Result{
		JobID:      job.ID,
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
		FinishedAt: time.Now().UTC(),
	}
	if err != nil {
		result.Status = progress.StatusError
		result.Error = err.Error()
		result.ErrorKind = services.FailureKind(err)
		logger.Error("job failed",
			logging.String("input", job.InputPath),
			logging.Error(err),
			logging.String("error_kind", result.ErrorKind),
			logging.String(logging.FieldEventType, "job_failed"),
			logging.String(logging.FieldErrorHint, "check the input file and transcriber dependencies"),
		)
		return result, true
	}

	result.Status = progress.StatusSuccess
	result.Language = transcript.Language
	result.Confidence = transcript.Confidence
	result.ElapsedSeconds = progress.Float(elapsed)
	result.Segments = len(transcript.Segments)
	attrs := []logging.Attr{
		logging.String("output", job.OutputPath),
		logging.String("language", transcript.Language),
		logging.Int("segments", result.Segments),
		logging.Duration("elapsed", time.Duration(elapsed*float64(time.Second))),
		logging.String(logging.FieldEventType, "job_completed"),
	}
	if transcript.Confidence != nil {
		attrs = append(attrs, logging.Float64("confidence", *transcript.Confidence))
	}
	logger.Info("job completed", logging.Args(attrs...)...)
	if result.Segments > 0 {
		w.checkArtifact(logger, job.OutputPath)
	}
	return result, true
}

// writeArtifact renders the SRT, converting a panic into an error.
func (w *worker) writeArtifact(job queue.Job, segments []transcribe.Segment) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrValidation, stageWrite, job.OutputPath, fmt.Sprintf("subtitle writer panicked: %v", r), nil)
		}
	}()
	return w.write(job.OutputPath, segments)
}

// checkArtifact re-reads a written SRT and warns about format problems. The
// job result is never affected.
func (w *worker) checkArtifact(logger *slog.Logger, path string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("subtitle format check panicked",
				logging.String("output", path),
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldEventType, "srt_validation_failed"),
			)
		}
	}()
	if issues := subtitles.Validate(path); len(issues) > 0 {
		logging.WarnWithContext(logger, "subtitle output failed format check", "srt_validation_failed",
			logging.String("output", path),
			logging.String("issues", strings.Join(issues, "; ")),
			logging.String(logging.FieldErrorHint, "inspect the transcriber segments for this input"),
		)
	}
}

// transcribe converts a panic inside the backend into an error.
func (w *worker) transcribe(ctx context.Context, job queue.Job) (tr transcribe.Transcript, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrExternalTool, stageTranscribe, w.transcriber.Name(), fmt.Sprintf("transcriber panicked: %v", r), nil)
		}
	}()
	return w.transcriber.Transcribe(ctx, job.InputPath)
}

func (w *worker) fanOut(ctx context.Context, result progress.Result) {
	logger := logging.WithContext(ctx, w.logger)
	for _, sink := range w.sinks {
		if err := recordSafely(ctx, sink, result); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Debug("shutdown interrupted result sink", logging.Error(err))
				continue
			}
			logging.WarnWithContext(logger, "result sink failed", "result_sink_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check history database and notification settings"),
				logging.String(logging.FieldImpact, "job result is unaffected"),
			)
		}
	}
}

func recordSafely(ctx context.Context, sink ResultSink, result progress.Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("result sink panicked: %v", r)
		}
	}()
	return sink.Record(ctx, result)
}

func (w *worker) begin(job queue.Job) bool {
	w.gate.Lock()
	defer w.gate.Unlock()
	if w.sealed {
		return false
	}
	w.current = &job
	w.progress.Begin(job.ID, job.InputPath)
	return true
}

func (w *worker) publish(result progress.Result) bool {
	w.gate.Lock()
	defer w.gate.Unlock()
	if w.sealed {
		return false
	}
	w.progress.Publish(result)
	w.current = nil
	return true
}

// seal stops the worker from touching progress again and returns the job
// that was in flight. first is false when the worker was already sealed.
func (w *worker) seal() (inFlight *queue.Job, first bool) {
	w.gate.Lock()
	defer w.gate.Unlock()
	if w.sealed {
		return nil, false
	}
	w.sealed = true
	inFlight = w.current
	w.current = nil
	return inFlight, true
}
