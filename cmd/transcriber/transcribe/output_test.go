package transcribe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatTS(t *testing.T) {
	require.Equal(t, "00:00:00", formatTS(0))

	require.Equal(t, "00:00:59", formatTS(59))

	// Truncation, not rounding.
	require.Equal(t, "00:00:59", formatTS(59.9))

	require.Equal(t, "00:01:00", formatTS(60))

	require.Equal(t, "01:01:01", formatTS(3661))

	require.Equal(t, "27:46:39", formatTS(99999))
}

func TestVTTTS(t *testing.T) {
	require.Equal(t, "00:00:00.000", vttTS(0))

	require.Equal(t, "00:01:10.000", vttTS(70000))

	require.Equal(t, "00:00:00.999", vttTS(999))

	require.Equal(t, "01:45:45.045", vttTS(6345045))
}

func TestBlocks(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var tr Transcription
		require.Empty(t, tr.Blocks())
	})

	t.Run("speaker runs", func(t *testing.T) {
		tr := Transcription{
			{Speaker: "SPEAKER_00", Start: 0, End: 1.5, Text: "hi"},
			{Speaker: "SPEAKER_00", Start: 2, End: 4, Text: "there"},
			{Speaker: "SPEAKER_01", Start: 5, End: 6, Text: "hello"},
		}
		blocks := tr.Blocks()
		require.Len(t, blocks, 2)
		require.Equal(t, LabeledBlock{
			Speaker: "SPEAKER_00",
			StartTS: "00:00:00",
			Lines:   []string{"hi", "there"},
		}, blocks[0])
		require.Equal(t, LabeledBlock{
			Speaker: "SPEAKER_01",
			StartTS: "00:00:05",
			Lines:   []string{"hello"},
		}, blocks[1])
	})

	t.Run("speaker returning starts a new block", func(t *testing.T) {
		tr := Transcription{
			{Speaker: "SPEAKER_00", Start: 0, Text: "a"},
			{Speaker: "SPEAKER_01", Start: 1, Text: "b"},
			{Speaker: "SPEAKER_00", Start: 2, Text: "c"},
		}
		blocks := tr.Blocks()
		require.Len(t, blocks, 3)
	})

	t.Run("adjacency only, no re-sorting", func(t *testing.T) {
		tr := Transcription{
			{Speaker: "SPEAKER_00", Start: 10, Text: "later"},
			{Speaker: "SPEAKER_00", Start: 0, Text: "earlier"},
		}
		blocks := tr.Blocks()
		require.Len(t, blocks, 1)
		require.Equal(t, "00:00:10", blocks[0].StartTS)
		require.Equal(t, []string{"later", "earlier"}, blocks[0].Lines)
	})
}
