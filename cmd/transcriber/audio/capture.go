// Package audio provides microphone capture and WAV container support
// for the session transcriber.
package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const (
	// SampleRate is fixed at 16KHz, which is what Whisper requires.
	SampleRate = 16000
	// Channels is fixed to mono.
	Channels = 1
	// FramesPerBuffer is the capture chunk size in samples.
	FramesPerBuffer = 1024
)

// Capture reads mono float32 PCM chunks from the default input device.
// It's meant to be driven by a single goroutine: Read blocks until the
// next chunk of FramesPerBuffer samples is available.
type Capture struct {
	stream *portaudio.Stream
	buf    []float32
}

func NewCapture() (*Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	c := &Capture{
		buf: make([]float32, FramesPerBuffer),
	}

	stream, err := portaudio.OpenDefaultStream(Channels, 0, float64(SampleRate), FramesPerBuffer, c.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	c.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}

	return c, nil
}

// Read blocks until the next chunk has been captured and returns a copy
// of it, so callers are free to retain or append it.
func (c *Capture) Read() ([]float32, error) {
	if err := c.stream.Read(); err != nil {
		return nil, fmt.Errorf("failed to read from input stream: %w", err)
	}

	chunk := make([]float32, len(c.buf))
	copy(chunk, c.buf)

	return chunk, nil
}

func (c *Capture) Close() error {
	if c.stream != nil {
		if err := c.stream.Stop(); err != nil {
			c.stream.Close()
			portaudio.Terminate()
			return fmt.Errorf("failed to stop input stream: %w", err)
		}
		if err := c.stream.Close(); err != nil {
			portaudio.Terminate()
			return fmt.Errorf("failed to close input stream: %w", err)
		}
		c.stream = nil
	}

	return portaudio.Terminate()
}
