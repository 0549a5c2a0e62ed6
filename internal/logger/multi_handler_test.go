package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type failingHandler struct {
	calls int
}

func (h *failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *failingHandler) Handle(context.Context, slog.Record) error {
	h.calls++
	return errors.New("disk full")
}
func (h *failingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *failingHandler) WithGroup(string) slog.Handler      { return h }

func TestMultiHandlerFanOut(t *testing.T) {
	buf1, buf2 := &bytes.Buffer{}, &bytes.Buffer{}
	multi := NewMultiHandler(
		slog.NewTextHandler(buf1, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(buf2, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	l := slog.New(multi)

	l.Info("info only", "key", "value")
	assert.Contains(t, buf1.String(), "key=value")
	assert.Empty(t, buf2.String())

	l.Warn("both")
	assert.Contains(t, buf2.String(), "both")

	assert.False(t, multi.Enabled(context.Background(), slog.LevelDebug))
}

func TestMultiHandlerKeepsGoingAfterError(t *testing.T) {
	bad := &failingHandler{}
	buf := &bytes.Buffer{}
	multi := NewMultiHandler(bad, slog.NewTextHandler(buf, nil))

	err := multi.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "survives", 0))
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 1, bad.calls)
	assert.Contains(t, buf.String(), "survives")
}

func TestMultiHandlerWithAttrsAndGroup(t *testing.T) {
	buf := &bytes.Buffer{}
	multi := NewMultiHandler(slog.NewTextHandler(buf, nil))

	l := slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "net")}).WithGroup("req"))
	l.Info("m", "id", "7")

	assert.Contains(t, buf.String(), "component=net")
	assert.Contains(t, buf.String(), "req.id=7")
}
