package workflow

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/testsupport"
	"scribe/internal/transcribe"
)

func TestWriterPanicBecomesErrorResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var (
		mu      sync.Mutex
		results []progress.Result
	)
	record := SinkFunc(func(_ context.Context, r progress.Result) error {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
		return nil
	})
	mgr, err := NewManager(cfg, testsupport.NewStubTranscriber(), logging.NewNop(), WithSinks(record))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	mgr.supervisor.worker.write = func(path string, _ []transcribe.Segment) error {
		if strings.HasSuffix(path, "a.srt") {
			panic("disk on fire")
		}
		return nil
	}

	dir := t.TempDir()
	for _, name := range []string{"a", "b"} {
		if _, err := mgr.Submit(context.Background(), "/media/"+name+".mkv", filepath.Join(dir, name+".srt")); err != nil {
			t.Fatalf("Submit %s: %v", name, err)
		}
	}
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := mgr.Stop(5 * time.Second)
	if err != nil || !res.Drained {
		t.Fatalf("expected the worker to survive and drain, got %+v, %v", res, err)
	}
	if err := mgr.supervisor.LastError(); err != nil {
		t.Fatalf("worker must not crash, got %v", err)
	}

	if snap := mgr.Progress(); snap.Completed != 2 {
		t.Fatalf("expected both jobs published, got %+v", snap)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	if results[0].Status != progress.StatusError || !strings.Contains(results[0].Error, "disk on fire") {
		t.Fatalf("expected a.mkv to fail with the panic, got %+v", results[0])
	}
	if results[1].Status != progress.StatusSuccess {
		t.Fatalf("expected b.mkv to succeed, got %+v", results[1])
	}
}

func TestWriteArtifactRecoversPanic(t *testing.T) {
	w := &worker{write: func(string, []transcribe.Segment) error { panic("boom") }}
	err := w.writeArtifact(queue.NewJob("/media/a.mkv", "/out/a.srt"), nil)
	if err == nil || !strings.Contains(err.Error(), "subtitle writer panicked: boom") {
		t.Fatalf("expected panic converted to error, got %v", err)
	}
}
