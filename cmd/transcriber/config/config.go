package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	// defaults
	ModelSizeDefault       = ModelSizeBase
	TranscribeAPIDefault   = TranscribeAPIWhisperCPP
	SegmentDurationDefault = 5 * time.Minute
	OutputDirDefault       = "transcriptions"
	ModelsDirDefault       = "./models"
	DiarizerURLDefault     = "http://localhost:8000"
)

// ErrMissingAuthToken is returned when diarization is enabled without
// an access token. The caller is expected to print setup instructions.
var ErrMissingAuthToken = errors.New("HFToken cannot be empty when diarization is enabled")

type ModelSize string

const (
	ModelSizeTiny   ModelSize = "tiny"
	ModelSizeBase             = "base"
	ModelSizeSmall            = "small"
	ModelSizeMedium           = "medium"
	ModelSizeLarge            = "large"
)

type TranscribeAPI string

const (
	TranscribeAPIWhisperCPP  = "whisper.cpp"
	TranscribeAPIAzureSpeech = "azure"
)

type AzureConfig struct {
	SpeechKey    string
	SpeechRegion string
}

type SessionConfig struct {
	// SessionID identifies one recording session in logs and file
	// metadata. Generated when left empty.
	SessionID string

	// capture config
	SegmentDuration time.Duration
	OutputDir       string

	// engine config
	TranscribeAPI TranscribeAPI
	ModelSize     ModelSize
	ModelsDir     string
	Language      string
	NumThreads    int
	EnableVAD     bool
	Azure         AzureConfig

	// diarization config
	EnableDiarization bool
	DiarizerURL       string
	HFToken           string
}

func (p ModelSize) IsValid() bool {
	switch p {
	case ModelSizeTiny, ModelSizeBase, ModelSizeSmall, ModelSizeMedium, ModelSizeLarge:
		return true
	default:
		return false
	}
}

func (a TranscribeAPI) IsValid() bool {
	switch a {
	case TranscribeAPIWhisperCPP, TranscribeAPIAzureSpeech:
		return true
	default:
		return false
	}
}

func (cfg SessionConfig) IsValid() error {
	if cfg == (SessionConfig{}) {
		return fmt.Errorf("config cannot be empty")
	}

	if cfg.SessionID == "" {
		return fmt.Errorf("SessionID cannot be empty")
	}

	if cfg.SegmentDuration <= 0 {
		return fmt.Errorf("SegmentDuration should be a positive duration")
	}

	if cfg.OutputDir == "" {
		return fmt.Errorf("OutputDir cannot be empty")
	}

	if !cfg.TranscribeAPI.IsValid() {
		return fmt.Errorf("TranscribeAPI value is not valid")
	}

	if !cfg.ModelSize.IsValid() {
		return fmt.Errorf("ModelSize value is not valid")
	}

	if numCPU := runtime.NumCPU(); cfg.NumThreads < 1 || cfg.NumThreads > numCPU {
		return fmt.Errorf("NumThreads should be in the range [1, %d]", numCPU)
	}

	if cfg.TranscribeAPI == TranscribeAPIAzureSpeech {
		if cfg.Azure.SpeechKey == "" {
			return fmt.Errorf("Azure.SpeechKey cannot be empty")
		}
		if cfg.Azure.SpeechRegion == "" {
			return fmt.Errorf("Azure.SpeechRegion cannot be empty")
		}
	}

	if cfg.EnableDiarization {
		if cfg.HFToken == "" {
			return ErrMissingAuthToken
		}
		u, err := url.Parse(cfg.DiarizerURL)
		if err != nil {
			return fmt.Errorf("DiarizerURL parsing failed: %w", err)
		} else if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("DiarizerURL parsing failed: invalid scheme %q", u.Scheme)
		}
	}

	return nil
}

func (cfg *SessionConfig) SetDefaults() {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}

	if cfg.SegmentDuration == 0 {
		cfg.SegmentDuration = SegmentDurationDefault
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = OutputDirDefault
	}

	if cfg.TranscribeAPI == "" {
		cfg.TranscribeAPI = TranscribeAPIDefault
	}

	if cfg.ModelSize == "" {
		cfg.ModelSize = ModelSizeDefault
	}

	if cfg.ModelsDir == "" {
		cfg.ModelsDir = ModelsDirDefault
	}

	if cfg.NumThreads == 0 {
		cfg.NumThreads = max(1, runtime.NumCPU()/2)
	}

	if cfg.DiarizerURL == "" {
		cfg.DiarizerURL = DiarizerURLDefault
	}
}

func FromEnv() (SessionConfig, error) {
	var cfg SessionConfig

	cfg.OutputDir = os.Getenv("OUTPUT_DIR")
	cfg.ModelsDir = os.Getenv("MODELS_DIR")
	cfg.Language = os.Getenv("LANGUAGE")
	cfg.NumThreads, _ = strconv.Atoi(os.Getenv("NUM_THREADS"))
	cfg.EnableVAD, _ = strconv.ParseBool(os.Getenv("ENABLE_VAD"))
	cfg.EnableDiarization, _ = strconv.ParseBool(os.Getenv("ENABLE_DIARIZATION"))
	cfg.DiarizerURL = os.Getenv("DIARIZER_URL")
	cfg.HFToken = os.Getenv("HF_TOKEN")
	cfg.Azure.SpeechKey = os.Getenv("AZURE_SPEECH_KEY")
	cfg.Azure.SpeechRegion = os.Getenv("AZURE_SPEECH_REGION")

	if val := os.Getenv("SEGMENT_DURATION"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("failed to parse SEGMENT_DURATION: %w", err)
		}
		cfg.SegmentDuration = d
	}

	if val := os.Getenv("TRANSCRIBE_API"); val != "" {
		cfg.TranscribeAPI = TranscribeAPI(val)
	}

	if val := os.Getenv("MODEL_SIZE"); val != "" {
		cfg.ModelSize = ModelSize(val)
	}

	return cfg, nil
}
