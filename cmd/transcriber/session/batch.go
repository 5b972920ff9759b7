package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sonoscribe/session-transcriber/cmd/transcriber/audio"
	"github.com/sonoscribe/session-transcriber/cmd/transcriber/config"
	"github.com/sonoscribe/session-transcriber/cmd/transcriber/transcribe"
)

// TranscribeFile transcribes an existing WAV file in one shot and
// writes a timestamped transcript (plus WebVTT cues) under
// cfg.OutputDir. It returns the transcript path.
func TranscribeFile(cfg config.SessionConfig, path string) (string, error) {
	if err := cfg.IsValid(); err != nil {
		return "", fmt.Errorf("failed to validate config: %w", err)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("audio file not found: %w", err)
		}
		return "", fmt.Errorf("failed to stat audio file: %w", err)
	}

	samples, err := audio.DecodeFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to decode audio file: %w", err)
	}

	slog.Info("transcribing file",
		slog.String("path", path),
		slog.Duration("audio", sampleDuration(len(samples))))

	transcriber, err := newSegmentTranscriber(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to create transcriber: %w", err)
	}

	segments, lang, err := transcriber.Transcribe(samples)
	if derr := transcriber.Destroy(); derr != nil {
		slog.Error("failed to destroy transcriber", slog.String("err", derr.Error()))
	}
	if err != nil {
		return "", fmt.Errorf("failed to transcribe: %w", err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outPath := filepath.Join(cfg.OutputDir,
		fmt.Sprintf("transcription_%s.txt", time.Now().Format("20060102_150405")))

	if err := writeBatchTranscript(outPath, path, lang, segments); err != nil {
		return "", err
	}

	vttPath := strings.TrimSuffix(outPath, ".txt") + ".vtt"
	if err := writeBatchWebVTT(vttPath, segments); err != nil {
		slog.Error("failed to write WebVTT cues", slog.String("err", err.Error()))
	}

	slog.Info("transcription completed",
		slog.String("path", outPath),
		slog.String("lang", lang),
		slog.Int("numSegments", len(segments)))

	return outPath, nil
}

func writeBatchTranscript(outPath, srcPath, lang string, segments []transcribe.Segment) error {
	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer f.Close()

	sep := strings.Repeat("=", 70)
	if _, err := fmt.Fprintf(f, "%s\nTRANSCRIPTION\n%s\nSource: %s\nLanguage: %s\n%s\n\n",
		sep, time.Now().Format("2006-01-02 15:04:05"), srcPath, lang, sep); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			if _, err := fmt.Fprintf(f, "%s\n", text); err != nil {
				return fmt.Errorf("failed to write transcript: %w", err)
			}
		}
	}

	if _, err := fmt.Fprintf(f, "\n%s\nDETAILS WITH TIMESTAMPS\n%s\n\n", sep, sep); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	for _, seg := range segments {
		if _, err := fmt.Fprintf(f, "[%.2fs - %.2fs] %s\n",
			float64(seg.StartTS)/1000, float64(seg.EndTS)/1000, strings.TrimSpace(seg.Text)); err != nil {
			return fmt.Errorf("failed to write transcript: %w", err)
		}
	}

	return nil
}

func writeBatchWebVTT(path string, segments []transcribe.Segment) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	tr := transcribe.Attribute(segments, nil)
	return tr.WebVTT(f, transcribe.WebVTTOptions{OmitSpeaker: true})
}
