package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateTranscriber(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.SubmitRatePerSecond < 0 {
		return errors.New("api.submit_rate_per_second must be >= 0")
	}
	if c.API.SubmitBurst < 0 {
		return errors.New("api.submit_burst must be >= 0")
	}
	if c.API.Bind == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(c.API.Bind)
	if err != nil {
		return fmt.Errorf("api.bind %q must be host:port", c.API.Bind)
	}
	if c.API.Token == "" && !isLoopbackHost(host) {
		return fmt.Errorf("api.token is required when api.bind %q is not a loopback address. Set SCRIBE_API_TOKEN or edit the config", c.API.Bind)
	}
	return nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (c *Config) validateTranscriber() error {
	t := c.Transcriber
	switch t.Backend {
	case BackendWhisperX, BackendWhisperCpp:
	default:
		return fmt.Errorf("transcriber.backend must be %q or %q, got %q", BackendWhisperX, BackendWhisperCpp, t.Backend)
	}
	switch t.Task {
	case TaskTranscribe, TaskTranslate:
	default:
		return fmt.Errorf("transcriber.task must be %q or %q, got %q", TaskTranscribe, TaskTranslate, t.Task)
	}
	switch t.Device {
	case "cpu", "cuda", "auto":
	default:
		return fmt.Errorf("transcriber.device must be cpu, cuda, or auto, got %q", t.Device)
	}
	switch t.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcriber.vad_method must be silero or pyannote, got %q", t.VADMethod)
	}
	if t.Backend == BackendWhisperX && t.VADMethod == "pyannote" && t.HFToken == "" {
		return errors.New("transcriber.hf_token is required for pyannote VAD. Set HF_TOKEN or edit the config")
	}
	if t.Backend == BackendWhisperCpp && t.WhisperCppModelPath == "" {
		return errors.New("transcriber.whispercpp_model_path must be set when backend is whispercpp")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.Capacity < 0 {
		return errors.New("queue.capacity must be >= 0")
	}
	switch c.Queue.FullPolicy {
	case FullPolicyReject, FullPolicyBlock:
	default:
		return fmt.Errorf("queue.full_policy must be %q or %q, got %q", FullPolicyReject, FullPolicyBlock, c.Queue.FullPolicy)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.StopTimeoutSeconds <= 0 {
		return errors.New("workflow.stop_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.MaxEntries < 0 {
		return errors.New("history.max_entries must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
