package daemonctl

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/ipc"
	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/testsupport"
	"scribe/internal/workflow"
)

func TestReadPIDFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scribe.pid")

	if pid, err := ReadPIDFile(path); err != nil || pid != 0 {
		t.Fatalf("missing file: pid=%d err=%v", pid, err)
	}
	if err := os.WriteFile(path, []byte("garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, err := ReadPIDFile(path); err != nil || pid != 0 {
		t.Fatalf("garbage file: pid=%d err=%v", pid, err)
	}
	if err := os.WriteFile(path, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, err := ReadPIDFile(path); err != nil || pid != 4242 {
		t.Fatalf("expected 4242, got pid=%d err=%v", pid, err)
	}
}

func TestProcessAlive(t *testing.T) {
	if !ProcessAlive(os.Getpid()) {
		t.Fatal("expected current process to be alive")
	}
	if ProcessAlive(0) || ProcessAlive(-1) {
		t.Fatal("expected non-positive pids to be dead")
	}

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("true unavailable: %v", err)
	}
	if ProcessAlive(cmd.Process.Pid) {
		t.Fatalf("expected reaped pid %d to be dead", cmd.Process.Pid)
	}
}

func TestForceKillProcessKillsAndCleansUp(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep unavailable: %v", err)
	}
	waited := make(chan error, 1)
	go func() { waited <- cmd.Wait() }()

	dir := t.TempDir()
	pidPath := filepath.Join(dir, "scribe.pid")
	lockPath := filepath.Join(dir, "scribe.lock")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(lockPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	pid, err := ForceKillProcess(pidPath, lockPath, 0)
	if err != nil {
		t.Fatalf("ForceKillProcess: %v", err)
	}
	if pid != cmd.Process.Pid {
		t.Fatalf("expected pid %d, got %d", cmd.Process.Pid, pid)
	}
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("child was not killed")
	}
	for _, p := range []string{pidPath, lockPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed, stat err=%v", p, err)
		}
	}
}

func TestForceKillProcessRefusesSelf(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "scribe.pid")
	if _, err := ForceKillProcess(pidPath, "", os.Getpid()); err == nil {
		t.Fatal("expected refusal to kill current process")
	}
	if _, err := ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected error when pid is unknown")
	}
}

func TestStopAndTerminateWhenNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := StopAndTerminate(cfg.SocketPath(), cfg, ipc.StopRequest{}, time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	if running, pid, err := ProcessInfo(cfg.SocketPath()); running || pid != 0 || err != nil {
		t.Fatalf("expected offline process info, got running=%v pid=%d err=%v", running, pid, err)
	}
}

func TestEnsureStartedAndWaitForShutdownAgainstLiveDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)

	result, err := EnsureStarted(cfg.SocketPath(), "/nonexistent/scribe", LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != StartStateAlreadyRunning || result.Launched || result.PID != os.Getpid() {
		t.Fatalf("unexpected start result %+v", result)
	}

	if err := WaitForShutdown(cfg.SocketPath(), 300*time.Millisecond); err == nil {
		t.Fatal("expected running daemon to fail shutdown wait")
	}
	if _, err := d.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := WaitForShutdown(cfg.SocketPath(), 2*time.Second); err != nil {
		t.Fatalf("WaitForShutdown after stop: %v", err)
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected empty executable to fail")
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg", "uvx"))
	cfg.History.Enabled = true
	store := testsupport.MustOpenHistory(t, cfg)
	for _, status := range []progress.Status{progress.StatusSuccess, progress.StatusSuccess, progress.StatusError} {
		if err := store.Record(context.Background(), progress.Result{Status: status, InputPath: "/media/x.mkv"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	snap, err := BuildStatusSnapshot(context.Background(), cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snap.Daemon.Running {
		t.Fatal("expected offline daemon")
	}
	if len(snap.Daemon.Dependencies) == 0 {
		t.Fatal("expected dependencies resolved locally")
	}
	if snap.HistoryCounts["success"] != 2 || snap.HistoryCounts["error"] != 1 {
		t.Fatalf("unexpected history counts %+v", snap.HistoryCounts)
	}
	if len(snap.Checks) == 0 {
		t.Fatal("expected preflight checks")
	}
}

func TestBuildDependencySummary(t *testing.T) {
	summary := BuildDependencySummary(nil)
	if summary.Severity != "info" {
		t.Fatalf("expected info for empty deps, got %+v", summary)
	}

	summary = BuildDependencySummary([]api.DependencyStatus{
		{Name: "FFmpeg", Available: true},
		{Name: "uvx", Available: false},
		{Name: "nvidia-smi", Available: false, Optional: true},
	})
	if summary.Severity != "error" || summary.MissingRequired != 1 || summary.MissingOptional != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !strings.Contains(summary.Detail, "1/3 available") {
		t.Fatalf("unexpected detail %q", summary.Detail)
	}
	if got := DependencySeverity(api.DependencyStatus{Optional: true}); got != "warn" {
		t.Fatalf("expected warn for optional dep, got %s", got)
	}
}

func startDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	logger := logging.NewNop()
	mgr, err := workflow.NewManager(cfg, testsupport.NewStubTranscriber(), logger)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	d, err := daemon.New(cfg, logger, mgr, "", nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, cfg.StopTimeout(), logger)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return d
}
