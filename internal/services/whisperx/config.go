package whisperx

// Config captures runtime settings for WhisperX operations.
type Config struct {
	// Model is the WhisperX model to use (e.g., "large-v3-turbo").
	Model string
	// Device is cpu, cuda or auto.
	Device string
	// ComputeType is passed through to faster-whisper (int8, float16, float32).
	ComputeType string
	// Task is transcribe or translate.
	Task string
	// Language is a hint; empty lets WhisperX detect.
	Language string
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD.
	HFToken string
	// WorkDir holds per-job scratch directories.
	WorkDir string
	// FFmpegBinary extracts audio ahead of transcription.
	FFmpegBinary string
}

// WhisperX configuration constants.
const (
	DefaultModel      = "small"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "5"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	AutoDevice        = "auto"
	CPUComputeType    = "int8"
	CUDAComputeType   = "float16"
	TaskTranscribe    = "transcribe"
	TaskTranslate     = "translate"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// UVXCommand launches WhisperX in an isolated Python environment.
const UVXCommand = "uvx"
