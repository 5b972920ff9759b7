package session

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderedWriter(t *testing.T) {
	t.Run("in order", func(t *testing.T) {
		var buf bytes.Buffer
		ow := newOrderedWriter(&buf, 1)

		require.NoError(t, ow.put(1, []byte("one\n")))
		require.NoError(t, ow.put(2, []byte("two\n")))
		require.Equal(t, "one\ntwo\n", buf.String())
		require.Zero(t, ow.buffered())
	})

	t.Run("out of order completion", func(t *testing.T) {
		var buf bytes.Buffer
		ow := newOrderedWriter(&buf, 1)

		require.NoError(t, ow.put(3, []byte("three\n")))
		require.NoError(t, ow.put(2, []byte("two\n")))
		require.Empty(t, buf.String())
		require.Equal(t, 2, ow.buffered())

		require.NoError(t, ow.put(1, []byte("one\n")))
		require.Equal(t, "one\ntwo\nthree\n", buf.String())
		require.Zero(t, ow.buffered())
	})

	t.Run("empty put releases the slot", func(t *testing.T) {
		var buf bytes.Buffer
		ow := newOrderedWriter(&buf, 1)

		require.NoError(t, ow.put(2, []byte("two\n")))
		require.NoError(t, ow.put(1, nil))
		require.Equal(t, "two\n", buf.String())
	})

	t.Run("duplicate put", func(t *testing.T) {
		var buf bytes.Buffer
		ow := newOrderedWriter(&buf, 1)

		require.NoError(t, ow.put(2, []byte("two\n")))
		require.Error(t, ow.put(2, []byte("again\n")))

		require.NoError(t, ow.put(1, []byte("one\n")))
		require.Error(t, ow.put(1, []byte("stale\n")))

		require.Equal(t, "one\ntwo\n", buf.String())
	})
}
