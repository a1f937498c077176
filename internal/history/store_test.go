package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/history"
	"scribe/internal/progress"
)

func openStore(t *testing.T, maxEntries int) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"), maxEntries)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openStore(t, 0)
	ctx := context.Background()
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ok := progress.Result{
		Status:         progress.StatusSuccess,
		JobID:          "job-1",
		InputPath:      "/media/a.mp4",
		OutputPath:     "/media/a.srt",
		Language:       "en",
		Confidence:     progress.Float(0.93),
		ElapsedSeconds: progress.Float(12.5),
		Segments:       42,
		FinishedAt:     finished,
	}
	failed := progress.Result{
		Status:     progress.StatusError,
		JobID:      "job-2",
		InputPath:  "/media/b.mp4",
		OutputPath: "/media/b.srt",
		Error:      "ffmpeg exited 1",
		ErrorKind:  "external_tool",
		FinishedAt: finished.Add(time.Minute),
	}
	for _, result := range []progress.Result{ok, failed} {
		if err := store.Record(ctx, result); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].JobID != "job-2" || entries[1].JobID != "job-1" {
		t.Fatalf("expected newest first, got %s then %s", entries[0].JobID, entries[1].JobID)
	}
	if entries[0].Confidence != nil || entries[0].Error != "ffmpeg exited 1" || entries[0].ErrorKind != "external_tool" {
		t.Fatalf("unexpected failure entry: %+v", entries[0])
	}
	got := entries[1]
	if got.Language != "en" || got.Confidence == nil || *got.Confidence != 0.93 || got.Segments != 42 {
		t.Fatalf("unexpected success entry: %+v", got)
	}
	if !got.FinishedAt.Equal(finished) {
		t.Fatalf("unexpected finished at: %s", got.FinishedAt)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts[progress.StatusSuccess] != 1 || counts[progress.StatusError] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestRecordTrimsToMaxEntries(t *testing.T) {
	store := openStore(t, 3)
	ctx := context.Background()
	for i := range 5 {
		result := progress.Result{
			Status:    progress.StatusSuccess,
			JobID:     string(rune('a' + i)),
			InputPath: "/media/in.mp4",
		}
		if err := store.Record(ctx, result); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	entries, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries after trim, got %d", len(entries))
	}
	if entries[0].JobID != "e" || entries[2].JobID != "c" {
		t.Fatalf("trim kept the wrong rows: %s..%s", entries[0].JobID, entries[2].JobID)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path, 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Record(context.Background(), progress.Result{Status: progress.StatusSuccess, JobID: "keep"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := history.Open(path, 0)
	if err != nil {
		if errors.Is(err, history.ErrSchemaMismatch) {
			t.Fatalf("unexpected schema mismatch: %v", err)
		}
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 || entries[0].JobID != "keep" {
		t.Fatalf("unexpected entries after reopen: %+v", entries)
	}
}
