package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"scribe/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HF_TOKEN", "")
	t.Setenv("HUGGING_FACE_HUB_TOKEN", "")
	t.Setenv("SCRIBE_NTFY_TOPIC", "")
	t.Setenv("SCRIBE_API_TOKEN", "")
	t.Setenv("SCRIBE_ENV_FILE", "")
	return tempHome
}

// unsetForTest removes key for the duration of the test so godotenv can set it.
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv %s: %v", key, err)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := isolateEnv(t)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogDir := filepath.Join(tempHome, ".local", "share", "scribe", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	wantWorkDir := filepath.Join(tempHome, ".cache", "scribe", "work")
	if cfg.Transcriber.WorkDir != wantWorkDir {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Transcriber.WorkDir, wantWorkDir)
	}
	if cfg.Paths.OutputDir != "" {
		t.Fatalf("expected empty output dir, got %q", cfg.Paths.OutputDir)
	}
	if cfg.API.Bind != "" {
		t.Fatalf("expected HTTP API disabled by default, got %q", cfg.API.Bind)
	}
	if cfg.Transcriber.Backend != config.BackendWhisperX {
		t.Fatalf("unexpected backend: %q", cfg.Transcriber.Backend)
	}
	if cfg.Transcriber.Task != config.TaskTranscribe {
		t.Fatalf("unexpected task: %q", cfg.Transcriber.Task)
	}
	if cfg.Queue.Capacity != 0 || cfg.Queue.FullPolicy != config.FullPolicyReject {
		t.Fatalf("unexpected queue defaults: %+v", cfg.Queue)
	}
	if cfg.StopTimeout() != 30*time.Second {
		t.Fatalf("unexpected stop timeout: %s", cfg.StopTimeout())
	}
	if cfg.SocketPath() != filepath.Join(wantLogDir, "scribe.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.SocketPath())
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	contents := `
[paths]
log_dir = "` + filepath.Join(dir, "logs") + `"
output_dir = "` + filepath.Join(dir, "subs") + `"

[transcriber]
backend = "WhisperCPP"
whispercpp_model_path = "` + filepath.Join(dir, "ggml-small.bin") + `"
task = "translate"
language = "JA"

[queue]
capacity = 4
full_policy = "block"

[workflow]
stop_timeout_seconds = 5
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Transcriber.Backend != config.BackendWhisperCpp {
		t.Fatalf("expected normalized backend, got %q", cfg.Transcriber.Backend)
	}
	if cfg.Transcriber.Language != "ja" {
		t.Fatalf("expected lowercased language, got %q", cfg.Transcriber.Language)
	}
	if cfg.Transcriber.Task != config.TaskTranslate {
		t.Fatalf("unexpected task: %q", cfg.Transcriber.Task)
	}
	if cfg.Queue.Capacity != 4 || cfg.Queue.FullPolicy != config.FullPolicyBlock {
		t.Fatalf("unexpected queue config: %+v", cfg.Queue)
	}
	if cfg.StopTimeout() != 5*time.Second {
		t.Fatalf("unexpected stop timeout: %s", cfg.StopTimeout())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.OutputDir, cfg.Transcriber.WorkDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestEnvFallbacksAndDotEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("HF_TOKEN", "env-hf")
	unsetForTest(t, "SCRIBE_NTFY_TOPIC")

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, []byte("[transcriber]\nvad_method = \"pyannote\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SCRIBE_NTFY_TOPIC=https://ntfy.sh/from-dotenv\nHF_TOKEN=dotenv-hf\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/from-dotenv" {
		t.Fatalf("expected ntfy topic from .env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Transcriber.HFToken != "env-hf" {
		t.Fatalf("expected process env to win over .env, got %q", cfg.Transcriber.HFToken)
	}
}

func TestExplicitEnvFileMustExist(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SCRIBE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "config.toml")); err == nil {
		t.Fatal("expected error for missing SCRIBE_ENV_FILE")
	}
}

func TestDefaultOutputPath(t *testing.T) {
	cfg := config.Default()
	if got := cfg.DefaultOutputPath("/media/in/talk.mp4"); got != "/media/in/talk.srt" {
		t.Fatalf("unexpected default output: %q", got)
	}
	cfg.Paths.OutputDir = "/srv/subs"
	if got := cfg.DefaultOutputPath("/media/in/talk.final.mkv"); got != "/srv/subs/talk.final.srt" {
		t.Fatalf("unexpected default output with output dir: %q", got)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[transcriber]") {
		t.Fatalf("sample config missing transcriber section: %s", contents)
	}

	cfg := config.Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.LogDir, "scribe") {
		t.Fatalf("expected log dir to contain scribe, got %q", cfg.Paths.LogDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config does not validate: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown backend", func(c *config.Config) { c.Transcriber.Backend = "vosk" }},
		{"unknown task", func(c *config.Config) { c.Transcriber.Task = "summarize" }},
		{"unknown device", func(c *config.Config) { c.Transcriber.Device = "tpu" }},
		{"pyannote without token", func(c *config.Config) { c.Transcriber.VADMethod = "pyannote" }},
		{"whispercpp without model", func(c *config.Config) { c.Transcriber.Backend = config.BackendWhisperCpp }},
		{"negative capacity", func(c *config.Config) { c.Queue.Capacity = -1 }},
		{"unknown full policy", func(c *config.Config) { c.Queue.FullPolicy = "drop" }},
		{"zero stop timeout", func(c *config.Config) { c.Workflow.StopTimeoutSeconds = 0 }},
		{"zero notify timeout", func(c *config.Config) { c.Notifications.RequestTimeout = 0 }},
		{"negative history", func(c *config.Config) { c.History.MaxEntries = -5 }},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"api bind without port", func(c *config.Config) { c.API.Bind = "localhost" }},
		{"public api bind without token", func(c *config.Config) { c.API.Bind = "0.0.0.0:7489" }},
		{"wildcard api bind without token", func(c *config.Config) { c.API.Bind = ":7489" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tt.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateAPIBindToken(t *testing.T) {
	tests := []struct {
		bind  string
		token string
	}{
		{"127.0.0.1:7489", ""},
		{"localhost:7489", ""},
		{"[::1]:7489", ""},
		{"0.0.0.0:7489", "s3cret"},
	}
	for _, tt := range tests {
		t.Run(tt.bind, func(t *testing.T) {
			cfg := config.Default()
			cfg.API.Bind = tt.bind
			cfg.API.Token = tt.token
			if err := cfg.Validate(); err != nil {
				t.Fatalf("expected %s to validate, got %v", tt.bind, err)
			}
		})
	}
}
