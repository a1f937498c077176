package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scribe/internal/config"
)

const userAgent = "scribe/0.1"

// Event names a notification type.
type Event string

const (
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventForcedShutdown Event = "forced_shutdown"
	EventDaemonStopped  Event = "daemon_stopped"
	EventTest           Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]string

// Service defines the notification surface exposed to the daemon.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCompleted:   cfg.Notifications.JobCompleted,
			EventJobFailed:      cfg.Notifications.JobFailed,
			EventForcedShutdown: cfg.Notifications.Shutdown,
			EventDaemonStopped:  cfg.Notifications.Shutdown,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	get := func(key string) string { return strings.TrimSpace(payload[key]) }
	switch event {
	case EventJobCompleted:
		body := fmt.Sprintf("📝 Subtitles ready: %s", get("output"))
		if lang := get("language"); lang != "" {
			body += fmt.Sprintf("\nLanguage: %s", lang)
		}
		if elapsed := get("elapsed"); elapsed != "" {
			body += fmt.Sprintf("\nTook %s", elapsed)
		}
		return message{
			title: "Scribe - Transcribed",
			body:  body,
			tags:  []string{"scribe", "job", "completed"},
		}, true
	case EventJobFailed:
		body := fmt.Sprintf("❌ Transcription failed: %s", get("input"))
		if reason := get("error"); reason != "" {
			body += "\n" + reason
		}
		return message{
			title:    "Scribe - Job Failed",
			body:     body,
			tags:     []string{"scribe", "job", "failed"},
			priority: "high",
		}, true
	case EventForcedShutdown:
		body := "⚠️ Stop timed out; worker terminated"
		if input := get("input"); input != "" {
			body += fmt.Sprintf("\nAbandoned: %s", input)
		}
		if discarded := get("discarded"); discarded != "" && discarded != "0" {
			body += fmt.Sprintf("\nNever started: %s", discarded)
		}
		return message{
			title:    "Scribe - Forced Shutdown",
			body:     body,
			tags:     []string{"scribe", "shutdown", "alert"},
			priority: "high",
		}, true
	case EventDaemonStopped:
		return message{
			title: "Scribe - Stopped",
			body:  fmt.Sprintf("Daemon stopped after %s jobs", valueOr(get("completed"), "0")),
			tags:  []string{"scribe", "shutdown"},
		}, true
	case EventTest:
		return message{
			title:    "Scribe - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"scribe", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
