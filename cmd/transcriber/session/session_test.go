package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sonoscribe/session-transcriber/cmd/transcriber/audio"
	"github.com/sonoscribe/session-transcriber/cmd/transcriber/config"
	"github.com/sonoscribe/session-transcriber/cmd/transcriber/transcribe"
)

type fakeSource struct {
	chunks    chan []float32
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		chunks: make(chan []float32),
		closed: make(chan struct{}),
	}
}

func (s *fakeSource) Read() ([]float32, error) {
	select {
	case chunk := <-s.chunks:
		return chunk, nil
	case <-s.closed:
		return nil, io.EOF
	}
}

func (s *fakeSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}

type fakeTranscriber struct {
	transcribeFn func(samples []float32) ([]transcribe.Segment, string, error)
}

func (t *fakeTranscriber) Transcribe(samples []float32) ([]transcribe.Segment, string, error) {
	return t.transcribeFn(samples)
}

func (t *fakeTranscriber) Destroy() error {
	return nil
}

type fakeDiarizer struct {
	turns []transcribe.Turn
	err   error
}

func (d *fakeDiarizer) Diarize(_ context.Context, _ []byte) ([]transcribe.Turn, error) {
	return d.turns, d.err
}

func testConfig(t *testing.T) config.SessionConfig {
	t.Helper()
	return config.SessionConfig{
		SessionID:       "8b68e286-be2c-4b6b-858d-fa27b0d21db1",
		SegmentDuration: time.Second,
		OutputDir:       t.TempDir(),
		TranscribeAPI:   config.TranscribeAPIWhisperCPP,
		ModelSize:       config.ModelSizeBase,
		NumThreads:      1,
	}
}

// sizedTranscriber yields one text segment whose content encodes the
// sample count, so tests can tell which capture segment produced it.
func sizedTranscriber(delays map[int]time.Duration) TranscriberFactory {
	return func() (transcribe.Transcriber, error) {
		return &fakeTranscriber{
			transcribeFn: func(samples []float32) ([]transcribe.Segment, string, error) {
				if d, ok := delays[len(samples)]; ok {
					time.Sleep(d)
				}
				return []transcribe.Segment{
					{
						Text:    fmt.Sprintf("%d samples", len(samples)),
						StartTS: 0,
						EndTS:   int64(len(samples)) * 1000 / audio.SampleRate,
					},
				}, "en", nil
			},
		}, nil
	}
}

func TestSessionLifecycle(t *testing.T) {
	cfg := testConfig(t)

	s, err := NewSession(cfg)
	require.NoError(t, err)

	src := newFakeSource()
	s.source = src
	s.newTranscriber = sizedTranscriber(nil)

	require.NoError(t, s.Start())

	// One full segment (1s at 16kHz) plus a partial tail.
	src.chunks <- make([]float32, audio.SampleRate)
	src.chunks <- make([]float32, audio.SampleRate/2)

	require.NoError(t, s.Stop(context.Background()))

	select {
	case <-s.Done():
	default:
		require.FailNow(t, "expected session to be done")
	}
	require.NoError(t, s.Err())

	data, err := os.ReadFile(s.MasterPath())
	require.NoError(t, err)

	content := string(data)
	require.Contains(t, content, "TRANSCRIPTION SESSION")
	require.Contains(t, content, "--- SEGMENT 1 ---\n16000 samples\n")
	require.Contains(t, content, "--- SEGMENT 2 ---\n8000 samples\n")
	require.Less(t,
		indexOf(t, content, "--- SEGMENT 1 ---"),
		indexOf(t, content, "--- SEGMENT 2 ---"))

	// Both segments were persisted to disk.
	for _, name := range []string{"segment_001.wav", "segment_002.wav"} {
		_, err := os.Stat(filepath.Join(s.Dir(), name))
		require.NoError(t, err)
	}
}

func TestSessionOrderedOutput(t *testing.T) {
	cfg := testConfig(t)

	s, err := NewSession(cfg)
	require.NoError(t, err)

	src := newFakeSource()
	s.source = src
	// The first segment finishes well after the second.
	s.newTranscriber = sizedTranscriber(map[int]time.Duration{
		audio.SampleRate: 200 * time.Millisecond,
	})

	require.NoError(t, s.Start())

	src.chunks <- make([]float32, audio.SampleRate)
	src.chunks <- make([]float32, audio.SampleRate/2)

	require.NoError(t, s.Stop(context.Background()))

	data, err := os.ReadFile(s.MasterPath())
	require.NoError(t, err)

	content := string(data)
	require.Less(t,
		indexOf(t, content, "16000 samples"),
		indexOf(t, content, "8000 samples"))
}

func TestSessionSegmentFailureIsolation(t *testing.T) {
	cfg := testConfig(t)

	s, err := NewSession(cfg)
	require.NoError(t, err)

	src := newFakeSource()
	s.source = src
	s.newTranscriber = func() (transcribe.Transcriber, error) {
		return &fakeTranscriber{
			transcribeFn: func(samples []float32) ([]transcribe.Segment, string, error) {
				if len(samples) == audio.SampleRate {
					return nil, "", fmt.Errorf("engine crashed")
				}
				return []transcribe.Segment{{Text: "still here", EndTS: 500}}, "en", nil
			},
		}, nil
	}

	require.NoError(t, s.Start())

	src.chunks <- make([]float32, audio.SampleRate)
	src.chunks <- make([]float32, audio.SampleRate/2)

	require.NoError(t, s.Stop(context.Background()))

	data, err := os.ReadFile(s.MasterPath())
	require.NoError(t, err)

	// The failed segment is skipped, the next one still lands.
	content := string(data)
	require.NotContains(t, content, "SEGMENT 1 ---")
	require.Contains(t, content, "--- SEGMENT 2 ---\nstill here\n")
}

func TestSessionDiarization(t *testing.T) {
	cfg := testConfig(t)

	s, err := NewSession(cfg)
	require.NoError(t, err)

	src := newFakeSource()
	s.source = src
	s.newTranscriber = sizedTranscriber(nil)
	s.diarizer = &fakeDiarizer{
		turns: []transcribe.Turn{
			{StartTS: 0, EndTS: 2000, Speaker: "SPEAKER_00"},
		},
	}

	require.NoError(t, s.Start())

	src.chunks <- make([]float32, audio.SampleRate)

	require.NoError(t, s.Stop(context.Background()))

	data, err := os.ReadFile(s.MasterPath())
	require.NoError(t, err)

	content := string(data)
	require.Contains(t, content, "[00:00:00] SPEAKER_00:\n  16000 samples\n")

	jsonData, err := os.ReadFile(filepath.Join(s.Dir(), "segment_001.json"))
	require.NoError(t, err)
	require.Contains(t, string(jsonData), `"speaker": "SPEAKER_00"`)
}

func TestSessionDiarizationFailureKeepsText(t *testing.T) {
	cfg := testConfig(t)

	s, err := NewSession(cfg)
	require.NoError(t, err)

	src := newFakeSource()
	s.source = src
	s.newTranscriber = sizedTranscriber(nil)
	s.diarizer = &fakeDiarizer{err: fmt.Errorf("server unavailable")}

	require.NoError(t, s.Start())

	src.chunks <- make([]float32, audio.SampleRate)

	require.NoError(t, s.Stop(context.Background()))

	data, err := os.ReadFile(s.MasterPath())
	require.NoError(t, err)

	content := string(data)
	require.Contains(t, content, transcribe.UnknownSpeaker+":\n  16000 samples\n")
}

func indexOf(t *testing.T, s, substr string) int {
	t.Helper()
	idx := strings.Index(s, substr)
	require.GreaterOrEqual(t, idx, 0, "substring %q not found", substr)
	return idx
}
