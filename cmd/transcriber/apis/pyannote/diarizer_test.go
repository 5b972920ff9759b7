package pyannote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sonoscribe/session-transcriber/cmd/transcriber/transcribe"

	"github.com/stretchr/testify/require"
)

func TestConfigIsValid(t *testing.T) {
	tcs := []struct {
		name string
		cfg  Config
		err  string
	}{
		{
			name: "empty config",
			err:  "invalid URL: should not be empty",
		},
		{
			name: "missing AuthToken",
			cfg: Config{
				URL: DefaultURL,
			},
			err: "invalid AuthToken: should not be empty",
		},
		{
			name: "valid",
			cfg: Config{
				URL:       DefaultURL,
				AuthToken: "hf_token",
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.IsValid()
			if tc.err != "" {
				require.EqualError(t, err, tc.err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDiarize(t *testing.T) {
	t.Run("empty data", func(t *testing.T) {
		d, err := NewDiarizer(Config{URL: DefaultURL, AuthToken: "hf_token"})
		require.NoError(t, err)

		_, err = d.Diarize(context.Background(), nil)
		require.EqualError(t, err, "wavData should not be empty")
	})

	t.Run("success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/diarize", r.URL.Path)
			require.Equal(t, "Bearer hf_token", r.Header.Get("Authorization"))
			require.Equal(t, "audio/wav", r.Header.Get("Content-Type"))

			fmt.Fprintln(w, `[
				{"start": 0.5, "end": 10.25, "speaker": "SPEAKER_00"},
				{"start": 10.25, "end": 12, "speaker": "SPEAKER_01"}
			]`)
		}))
		defer ts.Close()

		d, err := NewDiarizer(Config{URL: ts.URL, AuthToken: "hf_token"})
		require.NoError(t, err)

		turns, err := d.Diarize(context.Background(), []byte("RIFFdata"))
		require.NoError(t, err)
		require.Equal(t, []transcribe.Turn{
			{StartTS: 500, EndTS: 10250, Speaker: "SPEAKER_00"},
			{StartTS: 10250, EndTS: 12000, Speaker: "SPEAKER_01"},
		}, turns)
	})

	t.Run("unauthorized", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "missing model access", http.StatusUnauthorized)
		}))
		defer ts.Close()

		d, err := NewDiarizer(Config{URL: ts.URL, AuthToken: "bad"})
		require.NoError(t, err)

		_, err = d.Diarize(context.Background(), []byte("RIFFdata"))
		require.ErrorContains(t, err, "401")
	})
}
