package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestEachLineKeepsTerminators(t *testing.T) {
	path := writeFile(t, "data.txt", []byte("apple\r\nbanana\ncherry"))

	var got []string
	err := EachLine(context.Background(), path, func(line string) bool {
		got = append(got, line)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple\r\n", "banana\n", "cherry"}, got)
}

func TestLinesTrimmed(t *testing.T) {
	path := writeFile(t, "data.txt", []byte("  apple \n\nbanana\n"))

	lines, err := Lines(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "", "banana"}, lines)
}

func TestEachLineStopsEarly(t *testing.T) {
	path := writeFile(t, "data.txt", []byte("a\nb\nc\n"))

	count := 0
	err := EachLine(context.Background(), path, func(string) bool {
		count++
		return count < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestOpenCompressed(t *testing.T) {
	path := writeFile(t, "data.txt.zst", CompressBytes([]byte("apple\nbanana\n")))

	lines, err := Lines(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana"}, lines)
}

func TestMissingDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")

	_, err := Lines(context.Background(), path)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, Exists(path), ErrNotFound)
}

func TestCancelledScan(t *testing.T) {
	path := writeFile(t, "data.txt", []byte("a\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Lines(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("p", nil))

	boom := errors.New("boom")
	err := Wrap("p", boom)
	var se *SearchError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "p", se.Path)
	assert.ErrorIs(t, err, boom)
	assert.Same(t, err, Wrap("p", err))

	assert.ErrorIs(t, Wrap("p", os.ErrNotExist), ErrNotFound)
}

func TestStripTerminator(t *testing.T) {
	assert.Equal(t, "a", StripTerminator("a\r\n"))
	assert.Equal(t, "a", StripTerminator("a\n"))
	assert.Equal(t, " a ", StripTerminator(" a "))
}
