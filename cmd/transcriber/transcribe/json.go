package transcribe

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSON writes the attributed segments as an indented JSON array, one
// object per segment with speaker, start, end (seconds) and text.
func (t Transcription) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("failed to encode transcription: %w", err)
	}

	return nil
}
