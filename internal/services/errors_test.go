package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"scribe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcribe", "whisperx", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestFailureKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: services.Wrap(services.ErrValidation, "artifact", "write", "bad path", nil), want: "validation"},
		{name: "external", err: services.Wrap(services.ErrExternalTool, "transcribe", "run", "exit 1", nil), want: "external_tool"},
		{name: "timeout wrapped twice", err: fmt.Errorf("outer: %w", services.Wrap(services.ErrTimeout, "", "", "slow", nil)), want: "timeout"},
		{name: "plain", err: errors.New("io"), want: "transient"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.FailureKind(tt.err); got != tt.want {
				t.Fatalf("FailureKind = %q, want %q", got, tt.want)
			}
		})
	}
}
