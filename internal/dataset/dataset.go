// Package dataset opens line datasets, plain or zstd-compressed, and
// classifies the errors raised while reading them.
package dataset

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ErrNotFound is returned when the dataset file does not exist.
var ErrNotFound = errors.New("dataset not found")

// checkEvery is how many lines a scan reads between context checks.
const checkEvery = 4096

// SearchError wraps any I/O failure other than a missing dataset.
type SearchError struct {
	Path string
	Err  error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %s: %v", e.Path, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// Wrap classifies err raised while reading path. Missing files become
// ErrNotFound, cancellation passes through untouched and everything else
// is wrapped in a *SearchError.
func Wrap(path string, err error) error {
	if err == nil {
		return nil
	}
	var se *SearchError
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &se):
		return err
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return &SearchError{Path: path, Err: err}
}

type plainFile struct {
	*bufio.Reader
	f *os.File
}

func (p *plainFile) Close() error { return p.f.Close() }

type zstdFile struct {
	dec *zstd.Decoder
	f   *os.File
}

func (z *zstdFile) Read(b []byte) (int, error) { return z.dec.Read(b) }

func (z *zstdFile) Close() error {
	z.dec.Close()
	return z.f.Close()
}

// Open returns a reader over the decompressed content of the dataset.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Wrap(path, err)
	}
	br := bufio.NewReaderSize(f, 64<<10)
	// Short files yield io.EOF here; they are simply not compressed.
	head, _ := br.Peek(len(zstdMagic))
	if IsCompressed(head) {
		dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			f.Close()
			return nil, Wrap(path, err)
		}
		return &zstdFile{dec: dec, f: f}, nil
	}
	return &plainFile{Reader: br, f: f}, nil
}

// Exists reports ErrNotFound when path is missing.
func Exists(path string) error {
	if _, err := os.Stat(path); err != nil {
		return Wrap(path, err)
	}
	return nil
}

// EachLine calls fn with every line as read, terminator included.
// Iteration stops early when fn returns false.
func EachLine(ctx context.Context, path string, fn func(line string) bool) error {
	rc, err := Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	r := bufio.NewReaderSize(rc, 64<<10)
	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line, err := r.ReadString('\n')
		if len(line) > 0 && !fn(line) {
			return nil
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return Wrap(path, err)
		}
	}
}

// EachTrimmed is EachLine with surrounding whitespace removed from every line.
func EachTrimmed(ctx context.Context, path string, fn func(line string) bool) error {
	return EachLine(ctx, path, func(line string) bool {
		return fn(strings.TrimSpace(line))
	})
}

// Lines returns every trimmed line of the dataset.
func Lines(ctx context.Context, path string) ([]string, error) {
	var lines []string
	err := EachTrimmed(ctx, path, func(line string) bool {
		lines = append(lines, line)
		return true
	})
	return lines, err
}

// StripTerminator removes a trailing "\n" or "\r\n".
func StripTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
