package transcribe

import (
	"fmt"
)

// LabeledBlock is a maximal run of consecutive segments sharing the
// same speaker, ready for display. Transient: built for output only.
type LabeledBlock struct {
	Speaker string
	StartTS string
	Lines   []string
}

// formatTS converts seconds in the 00:00:00 format, truncating
// sub-second precision. Hours overflow naturally past 99.
func formatTS(seconds float64) string {
	ts := int64(seconds)

	h := ts / 3600
	m := (ts % 3600) / 60
	s := ts % 60

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// vttTS converts ts milliseconds in the 00:00:00.000 format.
func vttTS(ts int64) string {
	sMs := int64(1000)
	mMs := 60 * sMs
	hMs := 60 * mMs

	h := ts / hMs
	m := (ts - (h * hMs)) / mMs
	s := ((ts - (h * hMs)) - m*mMs) / sMs
	ms := ((ts - (h * hMs)) - m*mMs) - s*sMs

	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// Blocks groups segments into labeled blocks, starting a new block
// whenever the speaker changes from the previous segment. Grouping is
// driven purely by adjacency in the given sequence: the input is
// expected to be ordered by start time already and is not re-sorted.
func (t Transcription) Blocks() []LabeledBlock {
	var blocks []LabeledBlock

	for _, s := range t {
		if len(blocks) == 0 || blocks[len(blocks)-1].Speaker != s.Speaker {
			blocks = append(blocks, LabeledBlock{
				Speaker: s.Speaker,
				StartTS: formatTS(s.Start),
			})
		}
		last := &blocks[len(blocks)-1]
		last.Lines = append(last.Lines, s.Text)
	}

	return blocks
}
