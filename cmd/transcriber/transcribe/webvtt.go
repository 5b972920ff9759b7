package transcribe

import (
	"fmt"
	"html"
	"io"
)

type WebVTTOptions struct {
	OmitSpeaker bool
}

func (t Transcription) WebVTT(w io.Writer, opts WebVTTOptions) error {
	_, err := fmt.Fprintf(w, "WEBVTT\n")
	if err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	for _, s := range t {
		_, err = fmt.Fprintf(w, "\n%s --> %s\n", vttTS(int64(s.Start*1000)), vttTS(int64(s.End*1000)))
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
		tmpl := "<v %[1]s>%[2]s\n"
		if opts.OmitSpeaker {
			tmpl = "%[2]s\n"
		}
		_, err = fmt.Fprintf(w, tmpl, s.Speaker, html.EscapeString(s.Text))
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	return nil
}
