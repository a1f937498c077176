package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"scribe/internal/testsupport"
	"scribe/internal/workflow"
)

func TestForwardSignalsEscalatesOnSecondSignal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gate := make(chan struct{})
	t.Cleanup(func() { close(gate) })
	stub := testsupport.NewStubTranscriber().On("/media/long.mkv", testsupport.Behavior{Gate: gate})
	mgr := newManager(t, cfg, stub)

	mustSubmit(t, mgr, "/media/long.mkv", filepath.Join(t.TempDir(), "long.srt"))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStarted(t, stub, "/media/long.mkv")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	outcomes := mgr.ForwardSignals(ctx, time.Hour)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("send SIGTERM: %v", err)
	}
	waitFor(t, "sentinel after first signal", func() bool { return mgr.Status().Draining })
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("send SIGINT: %v", err)
	}

	select {
	case outcome := <-outcomes:
		if !errors.Is(outcome.Err, workflow.ErrForcedTermination) {
			t.Fatalf("expected forced termination, got %v", outcome.Err)
		}
		if outcome.Result.Abandoned == nil || outcome.Result.Abandoned.InputPath != "/media/long.mkv" {
			t.Fatalf("expected long.mkv abandoned, got %+v", outcome.Result)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stop outcome")
	}
}

func TestStopIsIdempotentAfterDrain(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr := newManager(t, cfg, testsupport.NewStubTranscriber())
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first, err := mgr.Stop(time.Second)
	if err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	second, err := mgr.Stop(time.Second)
	if err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if !first.Drained || !second.Drained {
		t.Fatalf("expected both stops to report a drain, got %+v / %+v", first, second)
	}
}

func TestStatusReportsLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr := newManager(t, cfg, testsupport.NewStubTranscriber())

	status := mgr.Status()
	if status.Running || status.Draining || !status.StartedAt.IsZero() {
		t.Fatalf("unexpected idle status %+v", status)
	}
	if status.Backend != "stub" {
		t.Fatalf("expected stub backend, got %q", status.Backend)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status = mgr.Status()
	if !status.Running || status.StartedAt.IsZero() {
		t.Fatalf("expected running status, got %+v", status)
	}

	if _, err := mgr.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	status = mgr.Status()
	if status.Running || !status.Draining || status.LastError != "" {
		t.Fatalf("unexpected stopped status %+v", status)
	}
}
