// Package session drives one recording session: capture audio in
// fixed-duration segments, persist each segment to a WAV file, process
// segments in background tasks and append the results to a master
// transcript in capture order.
package session

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sonoscribe/session-transcriber/cmd/transcriber/apis/azure"
	"github.com/sonoscribe/session-transcriber/cmd/transcriber/apis/pyannote"
	whisper "github.com/sonoscribe/session-transcriber/cmd/transcriber/apis/whisper.cpp"
	"github.com/sonoscribe/session-transcriber/cmd/transcriber/audio"
	"github.com/sonoscribe/session-transcriber/cmd/transcriber/config"
	"github.com/sonoscribe/session-transcriber/cmd/transcriber/transcribe"
)

const masterFileName = "transcription_complete.txt"

// AudioSource produces PCM chunks. Read blocks until the next chunk is
// available and is called from a single goroutine.
type AudioSource interface {
	Read() ([]float32, error)
	Close() error
}

// Diarizer returns the speaker turns detected in a WAV payload.
type Diarizer interface {
	Diarize(ctx context.Context, wavData []byte) ([]transcribe.Turn, error)
}

// TranscriberFactory creates a fresh engine instance. Each segment task
// gets its own so tasks stay independent.
type TranscriberFactory func() (transcribe.Transcriber, error)

type Session struct {
	cfg config.SessionConfig

	source         AudioSource
	newTranscriber TranscriberFactory
	diarizer       Diarizer
	detectSpeech   func(samples []float32) (bool, error)

	dir    string
	master *os.File
	out    *orderedWriter

	segmentsWg sync.WaitGroup
	stopCh     chan struct{}
	stopOnce   sync.Once
	sourceOnce sync.Once
	doneCh     chan struct{}
	errCh      chan error
	startTime  time.Time
}

func NewSession(cfg config.SessionConfig) (*Session, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	s := &Session{
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		errCh:  make(chan error, 1),
	}

	s.newTranscriber = func() (transcribe.Transcriber, error) {
		return newSegmentTranscriber(cfg)
	}

	if cfg.EnableDiarization {
		dcfg := pyannote.Config{
			URL:       cfg.DiarizerURL,
			AuthToken: cfg.HFToken,
		}
		dcfg.SetDefaults()
		diarizer, err := pyannote.NewDiarizer(dcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create diarizer: %w", err)
		}
		s.diarizer = diarizer
	}

	if cfg.EnableVAD {
		s.detectSpeech = func(samples []float32) (bool, error) {
			return hasSpeech(cfg.ModelsDir, samples)
		}
	}

	return s, nil
}

// Dir returns the session directory. Valid after Start.
func (s *Session) Dir() string {
	return s.dir
}

// MasterPath returns the path of the master transcript file. Valid
// after Start.
func (s *Session) MasterPath() string {
	return filepath.Join(s.dir, masterFileName)
}

// Start creates the session directory, initializes the master
// transcript and launches the capture loop. It returns as soon as
// recording has started.
func (s *Session) Start() error {
	s.dir = filepath.Join(s.cfg.OutputDir, "session_"+time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	master, err := os.OpenFile(s.MasterPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create master transcript: %w", err)
	}
	s.master = master
	s.out = newOrderedWriter(master, 1)

	if err := s.writeHeader(); err != nil {
		master.Close()
		return err
	}

	if s.source == nil {
		capture, err := audio.NewCapture()
		if err != nil {
			master.Close()
			return fmt.Errorf("failed to open capture device: %w", err)
		}
		s.source = capture
	}

	s.startTime = time.Now()

	slog.Info("recording started",
		slog.String("sessionID", s.cfg.SessionID),
		slog.String("dir", s.dir),
		slog.Duration("segmentDuration", s.cfg.SegmentDuration))

	go s.captureLoop()

	return nil
}

// Stop interrupts the capture loop and waits for the session to drain:
// the partial in-flight segment is persisted and every dispatched
// background task is joined before Stop returns.
func (s *Session) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		// Closing the source unblocks a capture loop waiting on Read.
		s.closeSource()
	})

	select {
	case <-s.doneCh:
		return <-s.errCh
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Session) Err() error {
	select {
	case err := <-s.errCh:
		return err
	default:
		return nil
	}
}

func (s *Session) writeHeader() error {
	sep := strings.Repeat("=", 70)
	_, err := fmt.Fprintf(s.master, "%s\nTRANSCRIPTION SESSION\n%s\nSession: %s\nModel: %s (%s)\nDiarization: %t\n%s\n\n",
		sep,
		time.Now().Format("2006-01-02 15:04:05"),
		s.cfg.SessionID,
		s.cfg.ModelSize,
		s.cfg.TranscribeAPI,
		s.cfg.EnableDiarization,
		sep)
	if err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// captureLoop buffers chunks from the source into fixed-duration
// segments. Each completed segment is persisted to disk first, then
// handed to a background task, so an interrupt loses at most the
// not-yet-persisted tail of the current segment.
func (s *Session) captureLoop() {
	segmentSamples := int(s.cfg.SegmentDuration.Milliseconds()) * audio.SampleRate / 1000

	var frames []float32
	var readErr error
	num := 1

loop:
	for {
		select {
		case <-s.stopCh:
			break loop
		default:
		}

		chunk, err := s.source.Read()
		if err != nil {
			select {
			case <-s.stopCh:
				// The device was torn down by a concurrent stop.
			default:
				readErr = fmt.Errorf("failed to read audio chunk: %w", err)
			}
			break loop
		}

		frames = append(frames, chunk...)

		if len(frames) >= segmentSamples {
			s.dispatchSegment(num, frames)
			num++
			frames = nil
		}
	}

	if len(frames) > 0 {
		s.dispatchSegment(num, frames)
	}

	s.closeSource()

	// Drain: every dispatched task must complete before the session is
	// done, otherwise the tail of the recording would be lost.
	s.segmentsWg.Wait()

	if n := s.out.buffered(); n > 0 {
		slog.Error("master transcript has stranded segments", slog.Int("count", n))
	}

	if err := s.master.Close(); err != nil {
		slog.Error("failed to close master transcript", slog.String("err", err.Error()))
	}

	slog.Info("session drained",
		slog.String("sessionID", s.cfg.SessionID),
		slog.Duration("recorded", time.Since(s.startTime)))

	s.errCh <- readErr
	close(s.doneCh)
}

// dispatchSegment persists the segment audio and hands processing off
// to a background task so capture of the next segment isn't blocked.
func (s *Session) dispatchSegment(num int, samples []float32) {
	wavPath := filepath.Join(s.dir, fmt.Sprintf("segment_%03d.wav", num))

	if err := audio.WriteFile(wavPath, samples); err != nil {
		slog.Error("failed to persist segment audio",
			slog.Int("segment", num), slog.String("err", err.Error()))
		s.release(num)
		return
	}

	s.segmentsWg.Add(1)
	go func() {
		defer s.segmentsWg.Done()
		s.processSegment(num, wavPath, samples)
	}()
}

func (s *Session) closeSource() {
	s.sourceOnce.Do(func() {
		if s.source == nil {
			return
		}
		if err := s.source.Close(); err != nil {
			slog.Error("failed to close audio source", slog.String("err", err.Error()))
		}
	})
}

// release gives up the segment's slot in the ordered master output so
// later segments can flush.
func (s *Session) release(num int) {
	if err := s.out.put(num, nil); err != nil {
		slog.Error("failed to release segment slot",
			slog.Int("segment", num), slog.String("err", err.Error()))
	}
}

// processSegment transcribes (and optionally diarizes) one persisted
// segment. Failures are logged and isolated: they never affect the
// capture loop or other segments.
func (s *Session) processSegment(num int, wavPath string, samples []float32) {
	log := slog.With(slog.Int("segment", num), slog.String("sessionID", s.cfg.SessionID))
	log.Info("processing segment", slog.Duration("audio", sampleDuration(len(samples))))

	if s.detectSpeech != nil {
		ok, err := s.detectSpeech(samples)
		if err != nil {
			// The VAD is an optimization, transcribe anyway.
			log.Error("speech detection failed", slog.String("err", err.Error()))
		} else if !ok {
			log.Info("no speech detected, skipping segment")
			s.release(num)
			return
		}
	}

	transcriber, err := s.newTranscriber()
	if err != nil {
		log.Error("failed to create transcriber", slog.String("err", err.Error()))
		s.release(num)
		return
	}

	segments, lang, err := transcriber.Transcribe(samples)
	if derr := transcriber.Destroy(); derr != nil {
		log.Error("failed to destroy transcriber", slog.String("err", derr.Error()))
	}
	if err != nil {
		log.Error("failed to transcribe segment", slog.String("err", err.Error()))
		s.release(num)
		return
	}

	var turns []transcribe.Turn
	if s.diarizer != nil {
		turns, err = s.diarizeSegment(wavPath)
		if err != nil {
			// Keep the text, just without speaker attribution.
			log.Error("diarization failed", slog.String("err", err.Error()))
			turns = nil
		}
	}

	tr := transcribe.Attribute(segments, turns)

	if s.diarizer != nil {
		jsonPath := strings.TrimSuffix(wavPath, ".wav") + ".json"
		if err := writeSegmentJSON(jsonPath, tr); err != nil {
			log.Error("failed to write segment JSON", slog.String("err", err.Error()))
		}
	}

	block, err := s.formatBlock(num, tr)
	if err != nil {
		log.Error("failed to format segment block", slog.String("err", err.Error()))
		s.release(num)
		return
	}

	if err := s.out.put(num, block); err != nil {
		log.Error("failed to append segment block", slog.String("err", err.Error()))
		return
	}

	log.Info("segment completed", slog.String("lang", lang), slog.Int("numSegments", len(segments)))
}

func (s *Session) diarizeSegment(wavPath string) ([]transcribe.Turn, error) {
	wavData, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment audio: %w", err)
	}

	turns, err := s.diarizer.Diarize(context.Background(), wavData)
	if err != nil {
		return nil, fmt.Errorf("failed to diarize: %w", err)
	}

	return turns, nil
}

// formatBlock renders one segment's contribution to the master
// transcript: a segment banner followed by either speaker-labeled
// blocks (diarization on) or plain text lines.
func (s *Session) formatBlock(num int, tr transcribe.Transcription) ([]byte, error) {
	if len(tr) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- SEGMENT %d ---\n", num)

	if s.diarizer != nil {
		if err := tr.Text(&buf); err != nil {
			return nil, err
		}
	} else {
		for _, seg := range tr {
			fmt.Fprintf(&buf, "%s\n", seg.Text)
		}
	}

	buf.WriteString("\n")

	return buf.Bytes(), nil
}

func writeSegmentJSON(path string, tr transcribe.Transcription) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return tr.JSON(f)
}

func sampleDuration(numSamples int) time.Duration {
	return time.Duration(numSamples) * time.Second / audio.SampleRate
}

func newSegmentTranscriber(cfg config.SessionConfig) (transcribe.Transcriber, error) {
	switch cfg.TranscribeAPI {
	case config.TranscribeAPIWhisperCPP:
		return whisper.NewContext(whisper.Config{
			ModelFile:      filepath.Join(cfg.ModelsDir, fmt.Sprintf("ggml-%s.bin", string(cfg.ModelSize))),
			NumThreads:     cfg.NumThreads,
			Language:       cfg.Language,
			WordTimestamps: cfg.EnableDiarization,
		})
	case config.TranscribeAPIAzureSpeech:
		return azure.NewSpeechRecognizer(azure.SpeechRecognizerConfig{
			SpeechKey:    cfg.Azure.SpeechKey,
			SpeechRegion: cfg.Azure.SpeechRegion,
			Language:     cfg.Language,
		})
	default:
		return nil, fmt.Errorf("transcribe API %q not implemented", cfg.TranscribeAPI)
	}
}
