package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
}

// API contains configuration for the optional HTTP surface.
type API struct {
	Bind                string  `toml:"bind"`
	Token               string  `toml:"token"`
	SubmitRatePerSecond float64 `toml:"submit_rate_per_second"`
	SubmitBurst         int     `toml:"submit_burst"`
}

// Transcriber selects and tunes the speech-to-text backend.
type Transcriber struct {
	Backend             string `toml:"backend"`
	Model               string `toml:"model"`
	Device              string `toml:"device"`
	ComputeType         string `toml:"compute_type"`
	Task                string `toml:"task"`
	Language            string `toml:"language"`
	VADMethod           string `toml:"vad_method"`
	HFToken             string `toml:"hf_token"`
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	WhisperCppBinary    string `toml:"whispercpp_binary"`
	WhisperCppModelPath string `toml:"whispercpp_model_path"`
	WorkDir             string `toml:"work_dir"`
}

// Queue bounds the in-memory job backlog. A zero capacity means unbounded.
type Queue struct {
	Capacity   int    `toml:"capacity"`
	FullPolicy string `toml:"full_policy"`
}

// Workflow contains worker lifecycle settings.
type Workflow struct {
	StopTimeoutSeconds int `toml:"stop_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobCompleted   bool   `toml:"job_completed"`
	JobFailed      bool   `toml:"job_failed"`
	Shutdown       bool   `toml:"shutdown"`
}

// History configures the finished-job journal.
type History struct {
	Enabled    bool `toml:"enabled"`
	MaxEntries int  `toml:"max_entries"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for scribe.
//
// Configuration sections by subsystem:
//   - Paths: log/state directory and default artifact directory
//   - API: HTTP bind address, bearer token and submission rate limit
//   - Transcriber: backend selection, model and device tuning
//   - Queue: optional backlog bound and what to do when it is full
//   - Workflow: graceful stop timeout
//   - Notifications: ntfy push notification settings
//   - History: SQLite journal of finished jobs
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Transcriber   Transcriber   `toml:"transcriber"`
	Queue         Queue         `toml:"queue"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadEnvFiles(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadEnvFiles reads SCRIBE_ENV_FILE and a .env file beside the config into
// the process environment. Variables already set in the environment win.
func loadEnvFiles(configPath string) error {
	candidates := make([]string, 0, 2)
	if explicit := strings.TrimSpace(os.Getenv(envFileVar)); explicit != "" {
		expanded, err := expandPath(explicit)
		if err != nil {
			return fmt.Errorf("%s: %w", envFileVar, err)
		}
		if _, err := os.Stat(expanded); err != nil {
			return fmt.Errorf("%s: %w", envFileVar, err)
		}
		candidates = append(candidates, expanded)
	}
	if configPath != "" {
		sibling := filepath.Join(filepath.Dir(configPath), ".env")
		if info, err := os.Stat(sibling); err == nil && !info.IsDir() {
			candidates = append(candidates, sibling)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	if err := godotenv.Load(candidates...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Transcriber.WorkDir}
	if c.Paths.OutputDir != "" {
		dirs = append(dirs, c.Paths.OutputDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the daemon's JSON-RPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "scribe.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "scribe.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.LogDir, "scribe.pid")
}

// HistoryPath returns the SQLite history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// StopTimeout returns the graceful drain window used by stop requests and signals.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.Workflow.StopTimeoutSeconds) * time.Second
}

// DefaultOutputPath derives the artifact path for an input when the caller did
// not supply one: <output_dir or input dir>/<input basename>.srt.
func (c *Config) DefaultOutputPath(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + ".srt"
	dir := c.Paths.OutputDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	return filepath.Join(dir, base)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultWorkDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "scribe", "work")
	}
	return "~/.cache/scribe/work"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
