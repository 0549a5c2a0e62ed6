package search

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"linequery/internal/dataset"
)

// grepBinary is resolved through PATH.
var grepBinary = "grep"

// Grep shells out to a fixed-string, whole-line grep and interprets the
// exit status: 0 found, 1 not found, anything else an error. grep reads
// the dataset's trimmed lines on stdin, so it sees exactly what the other
// strategies compare against, whatever the line endings or compression.
//
// A query that ends in a newline is never found, and neither is one that
// is empty once trailing newlines are stripped. Queries with an inner
// newline or surrounding whitespace cannot equal a trimmed line; grep
// would treat the former as several patterns, so they are settled here.
func Grep(ctx context.Context, path, query string) (bool, error) {
	if err := dataset.Exists(path); err != nil {
		return false, err
	}
	pattern := strings.TrimRight(query, "\n")
	if pattern == "" || strings.HasSuffix(query, "\n") {
		return false, nil
	}
	if strings.Contains(pattern, "\n") || strings.TrimSpace(pattern) != pattern {
		return false, nil
	}

	pr, pw := io.Pipe()
	fed := make(chan error, 1)
	go func() {
		w := bufio.NewWriter(pw)
		var writeErr error
		err := dataset.EachTrimmed(ctx, path, func(line string) bool {
			if _, writeErr = w.WriteString(line); writeErr == nil {
				writeErr = w.WriteByte('\n')
			}
			return writeErr == nil
		})
		if err == nil && writeErr == nil {
			writeErr = w.Flush()
		}
		pw.CloseWithError(err)
		fed <- err
	}()

	cmd := exec.CommandContext(ctx, grepBinary, "-Fxq", "--", pattern, "-")
	cmd.Stdin = pr
	// Compare bytes, not characters in the user's locale.
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	runErr := cmd.Run()

	// grep -q may stop reading early; unblock the feeder.
	pr.Close()
	if err := <-fed; err != nil {
		return false, dataset.Wrap(path, err)
	}

	if runErr == nil {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, dataset.Wrap(path, runErr)
}
