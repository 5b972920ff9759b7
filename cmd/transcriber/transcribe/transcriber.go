package transcribe

type Transcriber interface {
	Transcribe(samples []float32) ([]Segment, string, error)
	Destroy() error
}

// Word is a single word with its own timing, filled in only when the
// engine was asked for word-level timestamps.
type Word struct {
	Text    string
	StartTS int64
	EndTS   int64
}

// Segment is a contiguous piece of transcribed speech. Timestamps are
// milliseconds relative to the start of the audio that produced it.
type Segment struct {
	Text    string
	StartTS int64
	EndTS   int64
	Words   []Word
}

// Turn is a diarization result: a time interval during which a single
// speaker was talking. Turns of different speakers may overlap.
type Turn struct {
	StartTS int64
	EndTS   int64
	Speaker string
}

// AttributedSegment is a transcript segment with its dominant speaker
// attached. Times are serialized as seconds to match the diarization
// service convention.
type AttributedSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Transcription is the speaker-attributed transcript of a single audio
// segment, ordered by start time as produced by the engine.
type Transcription []AttributedSegment
