package config

const (
	defaultConfigPath           = "~/.config/scribe/config.toml"
	defaultLogDir               = "~/.local/share/scribe/logs"
	envFileVar                  = "SCRIBE_ENV_FILE"
	defaultSubmitRatePerSecond  = 5
	defaultSubmitBurst          = 10
	defaultBackend              = BackendWhisperX
	defaultModel                = "small"
	defaultDevice               = "cpu"
	defaultComputeType          = "int8"
	defaultTask                 = TaskTranscribe
	defaultLanguage             = "auto"
	defaultVADMethod            = "silero"
	defaultFFmpegBinary         = "ffmpeg"
	defaultWhisperCppBinary     = "whisper-cli"
	defaultFullPolicy           = FullPolicyReject
	defaultStopTimeoutSeconds   = 30
	defaultNotifyRequestTimeout = 10
	defaultHistoryMaxEntries    = 1000
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Transcriber backends.
const (
	BackendWhisperX   = "whisperx"
	BackendWhisperCpp = "whispercpp"
)

// Transcriber tasks. Translate produces English text regardless of the spoken language.
const (
	TaskTranscribe = "transcribe"
	TaskTranslate  = "translate"
)

// Queue full policies, used only when queue.capacity is positive.
const (
	FullPolicyReject = "reject"
	FullPolicyBlock  = "block"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		API: API{
			SubmitRatePerSecond: defaultSubmitRatePerSecond,
			SubmitBurst:         defaultSubmitBurst,
		},
		Transcriber: Transcriber{
			Backend:          defaultBackend,
			Model:            defaultModel,
			Device:           defaultDevice,
			ComputeType:      defaultComputeType,
			Task:             defaultTask,
			Language:         defaultLanguage,
			VADMethod:        defaultVADMethod,
			FFmpegBinary:     defaultFFmpegBinary,
			WhisperCppBinary: defaultWhisperCppBinary,
			WorkDir:          defaultWorkDir(),
		},
		Queue: Queue{
			FullPolicy: defaultFullPolicy,
		},
		Workflow: Workflow{
			StopTimeoutSeconds: defaultStopTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobCompleted:   true,
			JobFailed:      true,
			Shutdown:       true,
		},
		History: History{
			Enabled:    true,
			MaxEntries: defaultHistoryMaxEntries,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
