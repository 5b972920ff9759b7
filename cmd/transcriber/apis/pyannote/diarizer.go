// Package pyannote implements a client for a pyannote-compatible
// speaker diarization HTTP service. The service takes a WAV upload and
// returns the speaker turns it detected.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sonoscribe/session-transcriber/cmd/transcriber/transcribe"
)

const DefaultURL = "http://localhost:8000"

type Config struct {
	// Base URL of the diarization service.
	URL string
	// The access token used to authenticate against the service. The
	// service needs it to pull the gated segmentation/embedding models.
	AuthToken string
	// Per-request timeout. Diarization of a multi-minute segment can
	// take a while, so this should be generous.
	Timeout time.Duration
}

func (c Config) IsValid() error {
	if c.URL == "" {
		return fmt.Errorf("invalid URL: should not be empty")
	}

	if c.AuthToken == "" {
		return fmt.Errorf("invalid AuthToken: should not be empty")
	}

	return nil
}

func (c *Config) SetDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}

	if c.Timeout == 0 {
		c.Timeout = 5 * time.Minute
	}
}

type Diarizer struct {
	cfg    Config
	client *http.Client
}

func NewDiarizer(cfg Config) (*Diarizer, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &Diarizer{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// turn is the wire format of a single diarization turn, times in
// seconds from the start of the uploaded audio.
type turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Diarize uploads the given WAV data and returns the detected speaker
// turns, converted to millisecond offsets.
func (d *Diarizer) Diarize(ctx context.Context, wavData []byte) ([]transcribe.Turn, error) {
	if len(wavData) == 0 {
		return nil, fmt.Errorf("wavData should not be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.URL+"/diarize", bytes.NewReader(wavData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Authorization", "Bearer "+d.cfg.AuthToken)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %s", resp.Status)
	}

	var wireTurns []turn
	if err := json.NewDecoder(resp.Body).Decode(&wireTurns); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	turns := make([]transcribe.Turn, len(wireTurns))
	for i, wt := range wireTurns {
		turns[i] = transcribe.Turn{
			StartTS: int64(wt.Start * 1000),
			EndTS:   int64(wt.End * 1000),
			Speaker: wt.Speaker,
		}
	}

	return turns, nil
}
