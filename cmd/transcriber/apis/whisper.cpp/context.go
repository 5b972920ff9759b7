package whisper

// #cgo linux LDFLAGS: -l:libwhisper.a -lm -lstdc++
// #cgo darwin LDFLAGS: -lwhisper -lstdc++ -framework Accelerate
// #include <whisper.h>
// #include <stdlib.h>
import "C"

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"unsafe"

	"github.com/sonoscribe/session-transcriber/cmd/transcriber/transcribe"
)

type Config struct {
	// The path to the GGML model file to use.
	ModelFile string
	// The number of system threads to use to perform the transcription.
	NumThreads int
	// Language to use (defaults to autodetection).
	Language string
	// Whether or not to extract token-level timestamps, used to sync
	// the transcription with diarization turns.
	WordTimestamps bool
	// Whether or not to print progress to stdout (default false).
	PrintProgress bool
}

func (c Config) IsValid() error {
	if c == (Config{}) {
		return fmt.Errorf("invalid empty config")
	}

	if c.ModelFile == "" {
		return fmt.Errorf("invalid ModelFile: should not be empty")
	}

	if _, err := os.Stat(c.ModelFile); err != nil {
		return fmt.Errorf("invalid ModelFile: failed to stat model file: %w", err)
	}

	if numCPU := runtime.NumCPU(); c.NumThreads == 0 || c.NumThreads > numCPU {
		return fmt.Errorf("invalid NumThreads: should be in the range [1, %d]", numCPU)
	}

	return nil
}

type Context struct {
	cfg     Config
	ctx     *C.struct_whisper_context
	cparams C.struct_whisper_context_params
	params  C.struct_whisper_full_params
}

func NewContext(cfg Config) (*Context, error) {
	var c Context

	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	c.cfg = cfg

	slog.Debug("creating transcription context", slog.Any("cfg", cfg))

	path := C.CString(cfg.ModelFile)
	defer C.free(unsafe.Pointer(path))

	c.cparams = C.whisper_context_default_params()
	c.ctx = C.whisper_init_from_file_with_params(path, c.cparams)
	if c.ctx == nil {
		return nil, fmt.Errorf("failed to load model file")
	}

	c.params = C.whisper_full_default_params(C.WHISPER_SAMPLING_GREEDY)
	c.params.n_threads = C.int(c.cfg.NumThreads)
	if c.cfg.Language == "" {
		c.cfg.Language = "auto"
	}
	c.params.language = C.CString(c.cfg.Language)
	c.params.token_timestamps = C.bool(c.cfg.WordTimestamps)
	c.params.print_progress = C.bool(c.cfg.PrintProgress)

	return &c, nil
}

func (c *Context) Destroy() error {
	if c.ctx == nil {
		return fmt.Errorf("context is not initialized")
	}
	C.whisper_free(c.ctx)
	C.free(unsafe.Pointer(c.params.language))
	c.ctx = nil
	return nil
}

func (c *Context) Transcribe(samples []float32) ([]transcribe.Segment, string, error) {
	if len(samples) == 0 {
		return nil, "", fmt.Errorf("samples should not be empty")
	}

	ret := C.whisper_full(c.ctx, c.params, (*C.float)(&samples[0]), C.int(len(samples)))
	if ret != 0 {
		return nil, "", fmt.Errorf("whisper_full failed with code %d", ret)
	}

	lang := C.GoString(C.whisper_lang_str(C.whisper_full_lang_id(c.ctx)))

	n := int(C.whisper_full_n_segments(c.ctx))
	segments := make([]transcribe.Segment, n)
	for i := 0; i < n; i++ {
		segments[i].Text = C.GoString(C.whisper_full_get_segment_text(c.ctx, C.int(i)))
		segments[i].StartTS = int64(C.whisper_full_get_segment_t0(c.ctx, C.int(i))) * 10
		segments[i].EndTS = int64(C.whisper_full_get_segment_t1(c.ctx, C.int(i))) * 10

		if c.cfg.WordTimestamps {
			segments[i].Words = c.segmentWords(i)
		}
	}

	return segments, lang, nil
}

// segmentWords extracts per-token timing for a segment. Special tokens
// (e.g. [_BEG_]) carry no spoken text and are skipped.
func (c *Context) segmentWords(i int) []transcribe.Word {
	n := int(C.whisper_full_n_tokens(c.ctx, C.int(i)))
	words := make([]transcribe.Word, 0, n)

	for j := 0; j < n; j++ {
		text := C.GoString(C.whisper_full_get_token_text(c.ctx, C.int(i), C.int(j)))
		if strings.HasPrefix(text, "[_") {
			continue
		}

		data := C.whisper_full_get_token_data(c.ctx, C.int(i), C.int(j))
		words = append(words, transcribe.Word{
			Text:    text,
			StartTS: int64(data.t0) * 10,
			EndTS:   int64(data.t1) * 10,
		})
	}

	return words
}
