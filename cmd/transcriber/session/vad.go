package session

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/sonoscribe/session-transcriber/cmd/transcriber/audio"
)

const (
	vadModelFileName        = "silero_vad.onnx"
	vadWindowSize           = 512
	vadThreshold            = 0.5
	vadMinSilenceDurationMs = 150
	vadMinSpeechDurationMs  = 200
	vadSilencePadMs         = 32
)

// hasSpeech runs the samples through the VAD and reports whether any
// speech was detected. A fresh detector per segment keeps segment tasks
// independent of each other.
func hasSpeech(modelsDir string, samples []float32) (bool, error) {
	sd, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            filepath.Join(modelsDir, vadModelFileName),
		SampleRate:           audio.SampleRate,
		WindowSize:           vadWindowSize,
		Threshold:            vadThreshold,
		MinSilenceDurationMs: vadMinSilenceDurationMs,
		MinSpeechDurationMs:  vadMinSpeechDurationMs,
		SilencePadMs:         vadSilencePadMs,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create speech detector: %w", err)
	}
	defer func() {
		if err := sd.Destroy(); err != nil {
			slog.Error("failed to destroy speech detector", slog.String("err", err.Error()))
		}
	}()

	segments, err := sd.Detect(samples)
	if err != nil {
		return false, fmt.Errorf("failed to detect speech: %w", err)
	}

	return len(segments) > 0, nil
}
