package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/sonoscribe/session-transcriber/cmd/transcriber/config"
	"github.com/sonoscribe/session-transcriber/cmd/transcriber/session"
)

const (
	// Stopping waits for in-flight segments to finish transcribing.
	stopTimeout = 5 * time.Minute
)

func slogReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		if source.File == "" {
			// Log from a dependency (e.g. speech SDK).
			if pc, file, line, ok := runtime.Caller(7); ok {
				if f := runtime.FuncForPC(pc); f != nil {
					source.File = filepath.Base(filepath.Dir(file)) + "/" + filepath.Base(file)
					source.Line = line
				}
			}
		} else {
			source.File = filepath.Base(source.File)
		}
	}
	return a
}

func printTokenInstructions() {
	fmt.Fprintln(os.Stderr, `
Speaker diarization requires a Hugging Face access token:

  1. Visit https://huggingface.co/pyannote/speaker-diarization-3.1
     and accept the model's user conditions.
  2. Create a read token at https://huggingface.co/settings/tokens.
  3. Export it before starting a session:

       export HF_TOKEN=hf_...

Alternatively, disable diarization with ENABLE_DIARIZATION=false.`)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelDebug,
		ReplaceAttr: slogReplaceAttr,
	}))
	slog.SetDefault(logger)

	filePath := flag.String("file", "", "transcribe an existing WAV file instead of recording")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load config", slog.String("err", err.Error()))
		os.Exit(1)
	}
	cfg.SetDefaults()

	if err := cfg.IsValid(); err != nil {
		if errors.Is(err, config.ErrMissingAuthToken) {
			printTokenInstructions()
		}
		slog.Error("failed to validate config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	if *filePath != "" {
		outPath, err := session.TranscribeFile(cfg, *filePath)
		if err != nil {
			slog.Error("failed to transcribe file", slog.String("err", err.Error()))
			os.Exit(1)
		}
		slog.Info("transcript written", slog.String("path", outPath))
		return
	}

	s, err := session.NewSession(cfg)
	if err != nil {
		slog.Error("failed to create session", slog.String("err", err.Error()))
		os.Exit(1)
	}

	slog.Info("starting session", slog.String("sessionID", cfg.SessionID))

	if err := s.Start(); err != nil {
		slog.Error("failed to start session", slog.String("err", err.Error()))
		os.Exit(1)
	}

	slog.Info("recording, press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-s.Done():
		if err := s.Err(); err != nil {
			slog.Error("session failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	case <-sig:
		slog.Info("received signal, stopping session")
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			slog.Error("failed to stop session", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}

	slog.Info("session has finished", slog.String("path", s.MasterPath()))
}
