package ioutil

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAll(t *testing.T) {
	t.Run("under limit", func(t *testing.T) {
		body, err := ReadAll(strings.NewReader("hello"), 16)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(body))
	})

	t.Run("exactly at limit", func(t *testing.T) {
		body, err := ReadAll(strings.NewReader("hello"), 5)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(body))
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := ReadAll(strings.NewReader("hello world"), 5)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("no limit", func(t *testing.T) {
		body, err := ReadAll(strings.NewReader(strings.Repeat("a", 4096)), 0)
		require.NoError(t, err)
		assert.Len(t, body, 4096)
	})

	t.Run("read error is returned", func(t *testing.T) {
		_, err := ReadAll(&failingReader{err: fmt.Errorf("connection reset")}, 16)
		assert.EqualError(t, err, "connection reset")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate([]byte("short"), 10))
	assert.Equal(t, "hello...(6 more bytes)", Truncate([]byte("hello world"), 5))
	assert.Equal(t, "unbounded", Truncate([]byte("unbounded"), 0))
}

type failingReader struct {
	err error
}

func (r *failingReader) Read(_ []byte) (int, error) {
	return 0, r.err
}

var _ io.Reader = (*failingReader)(nil)
