package transcribe

import (
	"fmt"
	"io"
)

// Text writes the transcription as speaker-labeled blocks:
//
//	[00:01:30] Speaker A:
//	  some text
//	  some more text
//
//	[00:01:42] Speaker B:
//	  a reply
//
// Blocks are separated by a blank line. The output is a pure function
// of the input: re-running it on the same transcription yields
// byte-identical bytes.
func (t Transcription) Text(w io.Writer) error {
	for i, block := range t.Blocks() {
		nl := "\n"
		if i == 0 {
			nl = ""
		}
		if _, err := fmt.Fprintf(w, "%s[%s] %s:\n", nl, block.StartTS, block.Speaker); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
		for _, line := range block.Lines {
			if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
				return fmt.Errorf("failed to write: %w", err)
			}
		}
	}

	return nil
}
