package session

import (
	"fmt"
	"io"
	"sync"
)

// orderedWriter serializes per-segment output into the master
// transcript in strictly increasing segment order, no matter in which
// order the background tasks complete. A segment that produced nothing
// (silence, failure) must still release its slot by putting nil data,
// otherwise every later segment stays buffered.
type orderedWriter struct {
	mut     sync.Mutex
	w       io.Writer
	next    int
	pending map[int][]byte
}

func newOrderedWriter(w io.Writer, first int) *orderedWriter {
	return &orderedWriter{
		w:       w,
		next:    first,
		pending: make(map[int][]byte),
	}
}

func (ow *orderedWriter) put(seq int, data []byte) error {
	ow.mut.Lock()
	defer ow.mut.Unlock()

	if seq < ow.next {
		return fmt.Errorf("segment %d was already flushed", seq)
	}
	if _, ok := ow.pending[seq]; ok {
		return fmt.Errorf("segment %d was already put", seq)
	}

	ow.pending[seq] = data

	for {
		data, ok := ow.pending[ow.next]
		if !ok {
			return nil
		}
		delete(ow.pending, ow.next)
		ow.next++

		if len(data) == 0 {
			continue
		}
		if _, err := ow.w.Write(data); err != nil {
			return fmt.Errorf("failed to write segment data: %w", err)
		}
	}
}

// buffered reports how many segments are waiting on an earlier one.
func (ow *orderedWriter) buffered() int {
	ow.mut.Lock()
	defer ow.mut.Unlock()
	return len(ow.pending)
}
