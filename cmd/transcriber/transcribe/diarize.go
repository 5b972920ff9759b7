package transcribe

import (
	"strings"
)

// UnknownSpeaker is returned when no diarization turn overlaps a
// transcript segment. It's a valid outcome (e.g. music, noise), not an
// error.
const UnknownSpeaker = "Unknown Speaker"

// AssignSpeaker returns the speaker whose turns cover the biggest share
// of the [startTS, endTS] window. Overlaps are accumulated per speaker
// across all turns, so interleaved turns of the same speaker count
// together. A turn exactly abutting the window (turn.EndTS == startTS)
// contributes nothing.
//
// Ties are broken in favor of the lexicographically smallest label so
// the result doesn't depend on turn order.
func AssignSpeaker(turns []Turn, startTS, endTS int64) string {
	overlaps := make(map[string]int64, len(turns))

	for _, turn := range turns {
		start := max(turn.StartTS, startTS)
		end := min(turn.EndTS, endTS)
		if end > start {
			overlaps[turn.Speaker] += end - start
		}
	}

	speaker := UnknownSpeaker
	var best int64
	for label, dur := range overlaps {
		if dur > best || (dur == best && label < speaker) {
			speaker = label
			best = dur
		}
	}

	return speaker
}

// Attribute merges a transcription with the diarization turns covering
// the same time axis, assigning each segment its dominant speaker.
// Segments keep their input order.
func Attribute(segments []Segment, turns []Turn) Transcription {
	tr := make(Transcription, 0, len(segments))
	for _, s := range segments {
		tr = append(tr, AttributedSegment{
			Speaker: AssignSpeaker(turns, s.StartTS, s.EndTS),
			Start:   float64(s.StartTS) / 1000,
			End:     float64(s.EndTS) / 1000,
			Text:    strings.TrimSpace(s.Text),
		})
	}
	return tr
}
