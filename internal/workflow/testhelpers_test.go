package workflow_test

import (
	"context"
	"sync"

	"scribe/internal/notifications"
)

type notifierCall struct {
	event   notifications.Event
	payload notifications.Payload
}

type stubNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, notifierCall{event: event, payload: payload})
	return nil
}

func (s *stubNotifier) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, call := range s.calls {
		out = append(out, string(call.event))
	}
	return out
}

func (s *stubNotifier) last() notifierCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return notifierCall{}
	}
	return s.calls[len(s.calls)-1]
}
