package workflow

import (
	"context"
	"fmt"
	"time"

	"scribe/internal/language"
	"scribe/internal/notifications"
	"scribe/internal/progress"
)

// ResultSink receives every published Result. Failures are logged and never
// change the job outcome.
type ResultSink interface {
	Record(ctx context.Context, result progress.Result) error
}

// SinkFunc adapts a function to ResultSink.
type SinkFunc func(ctx context.Context, result progress.Result) error

// Record implements ResultSink.
func (f SinkFunc) Record(ctx context.Context, result progress.Result) error {
	return f(ctx, result)
}

// NotifierSink publishes job outcomes through notifier.
func NotifierSink(notifier notifications.Service) ResultSink {
	return SinkFunc(func(ctx context.Context, result progress.Result) error {
		if notifier == nil {
			return nil
		}
		if result.Succeeded() {
			payload := notifications.Payload{
				"input":  result.InputPath,
				"output": result.OutputPath,
			}
			if result.Language != "" {
				payload["language"] = language.DisplayName(result.Language)
			}
			if result.ElapsedSeconds != nil {
				payload["elapsed"] = (time.Duration(*result.ElapsedSeconds * float64(time.Second))).Round(time.Second).String()
			}
			return notifier.Publish(ctx, notifications.EventJobCompleted, payload)
		}
		reason := result.Error
		if result.ErrorKind != "" {
			reason = fmt.Sprintf("%s (%s)", reason, result.ErrorKind)
		}
		return notifier.Publish(ctx, notifications.EventJobFailed, notifications.Payload{
			"input": result.InputPath,
			"error": reason,
		})
	})
}
