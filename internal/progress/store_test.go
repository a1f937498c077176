package progress_test

import (
	"sync"
	"testing"

	"scribe/internal/progress"
)

func TestTransitions(t *testing.T) {
	store := progress.New()
	store.Enqueued()
	store.Enqueued()

	snap := store.Snapshot()
	if snap.Queued != 2 || snap.Completed != 0 || snap.Busy() {
		t.Fatalf("unexpected state after enqueue: %+v", snap)
	}

	store.Begin("job-1", "/media/a.mp4")
	snap = store.Snapshot()
	if snap.Queued != 1 || snap.CurrentTask != "/media/a.mp4" || snap.CurrentJobID != "job-1" {
		t.Fatalf("unexpected state after begin: %+v", snap)
	}
	if snap.StartedAt.IsZero() {
		t.Fatal("expected StartedAt to be set while busy")
	}

	store.Publish(progress.Result{Status: progress.StatusSuccess, JobID: "job-1", Confidence: progress.Float(0.9)})
	snap = store.Snapshot()
	if snap.Completed != 1 || snap.Busy() || snap.LastResult == nil {
		t.Fatalf("unexpected state after publish: %+v", snap)
	}
	if snap.LastResult.JobID != "job-1" || *snap.LastResult.Confidence != 0.9 {
		t.Fatalf("unexpected last result: %+v", snap.LastResult)
	}
}

func TestBeginFloorsQueuedAtZero(t *testing.T) {
	store := progress.New()
	store.Begin("job-1", "/media/a.mp4")
	if got := store.Snapshot().Queued; got != 0 {
		t.Fatalf("expected queued floor of zero, got %d", got)
	}
	store.Abandon(3)
	snap := store.Snapshot()
	if snap.Queued != 0 || snap.Busy() {
		t.Fatalf("unexpected state after abandon: %+v", snap)
	}
}

func TestAbandonDropsDiscardedJobs(t *testing.T) {
	store := progress.New()
	for range 4 {
		store.Enqueued()
	}
	store.Begin("job-1", "/media/a.mp4")
	store.Abandon(2)
	snap := store.Snapshot()
	if snap.Queued != 1 || snap.Completed != 0 || snap.Busy() {
		t.Fatalf("unexpected state after abandon: %+v", snap)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	store := progress.New()
	store.Publish(progress.Result{Status: progress.StatusSuccess, JobID: "job-1", Confidence: progress.Float(0.5)})

	snap := store.Snapshot()
	*snap.LastResult.Confidence = 0.1
	snap.LastResult.JobID = "mutated"
	snap.Completed = 99

	again := store.Snapshot()
	if again.Completed != 1 || again.LastResult.JobID != "job-1" || *again.LastResult.Confidence != 0.5 {
		t.Fatalf("snapshot mutation leaked into store: %+v", again.LastResult)
	}
}

func TestConcurrentReadersSeeConsistentState(t *testing.T) {
	store := progress.New()
	const jobs = 200

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 16)

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lastCompleted := 0
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Snapshot()
				if snap.Queued < 0 {
					errs <- "negative queued"
					return
				}
				if snap.Completed < lastCompleted {
					errs <- "completed decreased"
					return
				}
				if snap.Busy() && snap.CurrentJobID == "" {
					errs <- "current task without job id"
					return
				}
				lastCompleted = snap.Completed
			}
		}()
	}

	for i := range jobs {
		store.Enqueued()
		store.Begin("job", "/media/file.mp4")
		if i%2 == 0 {
			store.Publish(progress.Result{Status: progress.StatusSuccess, JobID: "job"})
		} else {
			store.Publish(progress.Result{Status: progress.StatusError, JobID: "job", Error: "boom"})
		}
	}
	close(stop)
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Fatal(msg)
	}

	snap := store.Snapshot()
	if snap.Completed != jobs || snap.Queued != 0 || snap.Busy() {
		t.Fatalf("unexpected final state: %+v", snap)
	}
}
