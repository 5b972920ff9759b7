package azure

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sonoscribe/session-transcriber/cmd/transcriber/transcribe"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"
)

const (
	audioSampleRate = 16000
	audioBitDepth   = 16
	audioChannels   = 1

	recognizeTimeout = 60 * time.Second
)

type SpeechRecognizerConfig struct {
	SpeechKey    string
	SpeechRegion string
	Language     string
}

func (c SpeechRecognizerConfig) IsValid() error {
	if c.SpeechKey == "" {
		return fmt.Errorf("invalid SpeechKey: should not be empty")
	}

	if c.SpeechRegion == "" {
		return fmt.Errorf("invalid SpeechRegion: should not be empty")
	}

	return nil
}

type SpeechRecognizer struct {
	cfg SpeechRecognizerConfig
}

func NewSpeechRecognizer(cfg SpeechRecognizerConfig) (*SpeechRecognizer, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &SpeechRecognizer{
		cfg: cfg,
	}, nil
}

// Transcribe runs the whole audio segment through continuous
// recognition and returns one transcript segment per recognized phrase,
// with offsets relative to the start of the input samples.
func (s *SpeechRecognizer) Transcribe(samples []float32) ([]transcribe.Segment, string, error) {
	cfg, err := speech.NewSpeechConfigFromSubscription(s.cfg.SpeechKey, s.cfg.SpeechRegion)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create speech config: %w", err)
	}
	defer cfg.Close()

	if s.cfg.Language != "" {
		if err := cfg.SetSpeechRecognitionLanguage(s.cfg.Language); err != nil {
			return nil, "", fmt.Errorf("failed to set language: %w", err)
		}
	}

	stream, err := audio.CreatePushAudioInputStream()
	if err != nil {
		return nil, "", fmt.Errorf("failed to create audio stream: %w", err)
	}
	defer stream.Close()

	audioConfig, err := audio.NewAudioConfigFromStreamInput(stream)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create audio config: %w", err)
	}

	speechRecognizer, err := speech.NewSpeechRecognizerFromConfig(cfg, audioConfig)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create speech recognizer: %w", err)
	}
	defer speechRecognizer.Close()

	var segments []transcribe.Segment
	doneCh := make(chan error, 1)

	speechRecognizer.Recognized(func(event speech.SpeechRecognitionEventArgs) {
		defer event.Close()

		if event.Result.Reason == common.NoMatch {
			// Silence or noise, nothing to keep.
			return
		}

		startTS := event.Result.Offset.Milliseconds()
		segments = append(segments, transcribe.Segment{
			Text:    event.Result.Text,
			StartTS: startTS,
			EndTS:   startTS + event.Result.Duration.Milliseconds(),
		})
	})

	speechRecognizer.SessionStopped(func(event speech.SessionEventArgs) {
		defer event.Close()
		slog.Debug("session stopped", slog.String("sessionID", event.SessionID))
		doneCh <- nil
	})

	speechRecognizer.Canceled(func(event speech.SpeechRecognitionCanceledEventArgs) {
		defer event.Close()
		if event.Reason == common.EndOfStream {
			doneCh <- nil
			return
		}
		doneCh <- fmt.Errorf("recognition canceled: %s", event.ErrorDetails)
	})

	if err := stream.Write(f32PCMToWAV(samples)); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	if err := <-speechRecognizer.StartContinuousRecognitionAsync(); err != nil {
		return nil, "", fmt.Errorf("failed to start recognizer: %w", err)
	}
	defer func() {
		if err := <-speechRecognizer.StopContinuousRecognitionAsync(); err != nil {
			slog.Error("failed to stop recognizer", slog.String("err", err.Error()))
		}
	}()

	// This is important as it flushes out any remaining audio data.
	stream.CloseStream()

	select {
	case err := <-doneCh:
		if err != nil {
			return nil, "", err
		}
		return segments, s.cfg.Language, nil
	case <-time.After(recognizeTimeout):
		return nil, "", fmt.Errorf("timed out waiting for transcription")
	}
}

func (s *SpeechRecognizer) Destroy() error {
	return nil
}
