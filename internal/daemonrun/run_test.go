package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/ipc"
	"scribe/internal/testsupport"
)

func TestNewTranscriberSelectsBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	cfg.Transcriber.Backend = config.BackendWhisperX
	tr, err := NewTranscriber(cfg)
	if err != nil {
		t.Fatalf("whisperx: %v", err)
	}
	if tr.Name() != "whisperx" {
		t.Fatalf("expected whisperx backend, got %q", tr.Name())
	}

	cfg.Transcriber.Backend = config.BackendWhisperCpp
	cfg.Transcriber.WhisperCppModelPath = "/models/ggml-large-v3.bin"
	tr, err = NewTranscriber(cfg)
	if err != nil {
		t.Fatalf("whispercpp: %v", err)
	}
	if tr.Name() != "whispercpp" {
		t.Fatalf("expected whispercpp backend, got %q", tr.Name())
	}

	cfg.Transcriber.Backend = "vosk"
	if _, err := NewTranscriber(cfg); err == nil {
		t.Fatal("expected unknown backend to fail")
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid != os.Getpid() {
		t.Fatalf("expected pid %d, got %q", os.Getpid(), data)
	}
	if err := writePIDFile(""); err != nil {
		t.Fatalf("empty path should be a no-op, got %v", err)
	}
}

func TestEnsureCurrentLogPointerReplacesPrevious(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "scribe-1.log")
	second := filepath.Join(dir, "scribe-2.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "scribe.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "scribe-2.log" {
		t.Fatalf("expected pointer to newest log, got %q", data)
	}
}

func TestRunStopsOnIPCRequest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""

	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(context.Background(), cfg, Options{LogLevel: "error"})
	}()

	client := dialWhenReady(t, cfg.SocketPath(), errCh)
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Status.Running || status.Status.PID != os.Getpid() {
		t.Fatalf("unexpected status %+v", status)
	}
	if _, err := os.Stat(cfg.PIDPath()); err != nil {
		t.Fatalf("expected pid file while running: %v", err)
	}

	resp, err := client.Stop(ipc.StopRequest{TimeoutSeconds: 2})
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !resp.Stopped || !resp.Summary.Drained {
		t.Fatalf("expected drained stop, got %+v", resp)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after IPC stop")
	}
	if _, err := os.Stat(cfg.PIDPath()); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
}

func TestRunRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg, Options{LogLevel: "error"})
	}()
	client := dialWhenReady(t, cfg.SocketPath(), errCh)
	client.Close()

	if err := Run(context.Background(), cfg, Options{LogLevel: "error"}); err == nil {
		t.Fatal("expected second instance to fail")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("first instance returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first instance did not stop on cancellation")
	}
}

func dialWhenReady(t *testing.T, socket string, errCh <-chan error) *ipc.Client {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			t.Fatalf("Run exited early: %v", err)
		default:
		}
		client, err := ipc.Dial(socket)
		if err == nil {
			return client
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("socket %s never became ready", socket)
	return nil
}
