// Package notifications pushes job outcomes and daemon lifecycle events to
// ntfy.
//
// NewService returns a no-op notifier when no topic is configured. Events
// switched off in [notifications] are dropped silently, so callers publish
// unconditionally and never branch on configuration.
package notifications
