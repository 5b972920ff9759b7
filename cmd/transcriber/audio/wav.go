package audio

import (
	"fmt"
	"io"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavBitDepth = 16

// Encode writes samples as a standard uncompressed WAV file (16-bit
// PCM, mono, 16KHz). Samples are expected in the [-1, 1] range.
func Encode(w io.WriteSeeker, samples []float32) error {
	enc := wav.NewEncoder(w, SampleRate, wavBitDepth, Channels, 1)

	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: Channels,
			SampleRate:  SampleRate,
		},
		SourceBitDepth: wavBitDepth,
		Data:           make([]int, len(samples)),
	}

	for i, s := range samples {
		v := int(s * 32768)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		buf.Data[i] = v
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize encoder: %w", err)
	}

	return nil
}

// WriteFile persists samples to path as a WAV file.
func WriteFile(path string, samples []float32) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := Encode(f, samples); err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}

	return nil
}

// Decode reads a WAV file and returns its PCM data as normalized
// float32 samples in the [-1, 1] range.
func Decode(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	div := float32(int(1) << (buf.SourceBitDepth - 1))
	if buf.SourceBitDepth == 0 {
		div = 1 << (wavBitDepth - 1)
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / div
	}

	return samples, nil
}

// DecodeFile reads the WAV file at path. A missing file is reported
// with a distinct wrapped os.ErrNotExist so callers can tell it apart
// from decoding failures.
func DecodeFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	samples, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}

	return samples, nil
}
