package tailer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestTailerPoll(t *testing.T) {
	t.Run("missing file returns ErrSourceUnavailable, never fatal", func(t *testing.T) {
		tl := New(filepath.Join(t.TempDir(), "missing.log"), Position{})
		_, err := tl.Poll()
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	})

	t.Run("reads complete lines and buffers a trailing partial line", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "game.log")
		writeFile(t, path, "line one\nline two\npartial")

		tl := New(path, Position{})
		lines, err := tl.Poll()
		require.NoError(t, err)
		assert.Equal(t, []string{"line one", "line two"}, lines)

		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString(" completed\nline three\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		lines, err = tl.Poll()
		require.NoError(t, err)
		assert.Equal(t, []string{"partial completed", "line three"}, lines)
	})

	t.Run("resumes from a persisted offset", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "game.log")
		writeFile(t, path, "line one\nline two\n")

		tl := New(path, Position{})
		first, err := tl.Poll()
		require.NoError(t, err)
		require.Len(t, first, 2)

		resumed := New(path, tl.Position())
		lines, err := resumed.Poll()
		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("truncation below the persisted offset resumes from zero", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "game.log")
		writeFile(t, path, "line one\nline two\nline three\n")

		tl := New(path, Position{})
		_, err := tl.Poll()
		require.NoError(t, err)

		writeFile(t, path, "fresh start\n")
		lines, err := tl.Poll()
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh start"}, lines)
	})
}

func TestColdStartScan(t *testing.T) {
	t.Run("returns complete lines from the tail of a large file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "game.log")
		writeFile(t, path, "first\nsecond\nthird\n")

		tl := New(path, Position{})
		lines, err := tl.ColdStartScan(1024)
		require.NoError(t, err)
		assert.Contains(t, lines, "third")
	})

	t.Run("seeds the tailer to resume from true EOF afterward", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "game.log")
		writeFile(t, path, "first\nsecond\n")

		tl := New(path, Position{})
		_, err := tl.ColdStartScan(1024)
		require.NoError(t, err)

		writeFile2 := func() {
			f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
			require.NoError(t, err)
			_, err = f.WriteString("third\n")
			require.NoError(t, err)
			require.NoError(t, f.Close())
		}
		writeFile2()

		lines, err := tl.Poll()
		require.NoError(t, err)
		assert.Equal(t, []string{"third"}, lines)
	})
}
