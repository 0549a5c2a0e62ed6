package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"linequery/internal/config"
	"linequery/internal/types"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var (
	level = new(slog.LevelVar)

	mu       sync.Mutex
	base     = slog.New(newHandler(os.Stderr, "text"))
	logFiles []*lumberjack.Logger
)

// SetLevel sets the global log level.
func SetLevel(l Level) {
	switch l {
	case LevelError:
		level.Set(slog.LevelError)
	case LevelWarn:
		level.Set(slog.LevelWarn)
	case LevelDebug:
		level.Set(slog.LevelDebug)
	default:
		level.Set(slog.LevelInfo)
	}
}

// ParseLevel maps a configured level name to a Level. Unknown names map
// to LevelInfo.
func ParseLevel(name string) Level {
	switch name {
	case "error":
		return LevelError
	case "warn":
		return LevelWarn
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Setup routes all output to a single writer as text.
func Setup(w io.Writer) {
	install(newHandler(w, "text"), nil)
}

// Init builds the console and rotating file outputs described by cfg.
func Init(cfg config.LoggingConfig) error {
	var (
		handlers []slog.Handler
		files    []*lumberjack.Logger
	)
	if cfg.Console {
		handlers = append(handlers, newHandler(os.Stdout, cfg.Format))
	}
	if cfg.File {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "server.log"),
			MaxSize:    cfg.Rotation.MaxSize,
			MaxBackups: cfg.Rotation.MaxBackups,
			MaxAge:     cfg.Rotation.MaxAge,
			Compress:   cfg.Rotation.Compress,
		}
		files = append(files, file)
		handlers = append(handlers, newHandler(file, cfg.Format))
	}

	var h slog.Handler
	switch len(handlers) {
	case 0:
		h = newHandler(io.Discard, cfg.Format)
	case 1:
		h = handlers[0]
	default:
		h = NewMultiHandler(handlers...)
	}
	install(h, files)
	SetLevel(ParseLevel(cfg.Level))
	return nil
}

// Shutdown closes the log files opened by Init.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()

	var firstErr error
	for _, f := range logFiles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close log file: %w", err)
		}
	}
	logFiles = nil
	return firstErr
}

func install(h slog.Handler, files []*lumberjack.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = slog.New(h)
	logFiles = append(logFiles, files...)
}

func newHandler(w io.Writer, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, AddSource: true}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base
}

// Debug logs diagnostic detail.
func Debug(format string, v ...interface{}) {
	output(slog.LevelDebug, format, v...)
}

// Info logs informative messages if the level allows.
func Info(format string, v ...interface{}) {
	output(slog.LevelInfo, format, v...)
}

// Warn logs recoverable problems.
func Warn(format string, v ...interface{}) {
	output(slog.LevelWarn, format, v...)
}

// Error logs error messages.
func Error(format string, v ...interface{}) {
	output(slog.LevelError, format, v...)
}

// Fatal logs independent of error level and exits.
func Fatal(format string, v ...interface{}) {
	output(slog.LevelError+4, format, v...)
	Shutdown()
	os.Exit(1)
}

// Query records one answered request. This is the record consumed by
// query-log persistence and benchmarking.
func Query(req types.RequestContext, response string, elapsed time.Duration) {
	l := current()
	if !l.Enabled(context.Background(), slog.LevelInfo) {
		return
	}
	l.LogAttrs(context.Background(), slog.LevelInfo, "query",
		slog.String("timestamp", req.Received.Format("2006-01-02 15:04:05")),
		slog.String("conn", req.ConnID),
		slog.String("client_ip", req.ClientIP),
		slog.String("query", req.Query),
		slog.String("response", response),
		slog.Float64("elapsed_ms", float64(elapsed.Microseconds())/1000.0),
	)
}

func output(lvl slog.Level, format string, v ...interface{}) {
	l := current()
	ctx := context.Background()
	if !l.Enabled(ctx, lvl) {
		return
	}
	// Skip runtime.Callers, output and the exported wrapper.
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), lvl, fmt.Sprintf(format, v...), pcs[0])
	_ = l.Handler().Handle(ctx, r)
}
