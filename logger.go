package largelist

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with largelist-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithBlob adds a blob name field to the logger.
func (l *Logger) WithBlob(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("blob", name),
	}
}

// LogSerialize logs a serialize operation.
func (l *Logger) LogSerialize(ctx context.Context, elements, chunks uint64, bytes int64, strategy HeaderStrategy, err error) {
	if err != nil {
		l.ErrorContext(ctx, "serialize failed",
			"elements", elements,
			"bytes", bytes,
			"strategy", strategy.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "serialize completed",
			"elements", elements,
			"chunks", chunks,
			"bytes", bytes,
			"strategy", strategy.String(),
		)
	}
}

// LogChunk logs a written chunk.
func (l *Logger) LogChunk(ctx context.Context, chunk uint64, elements uint32, stored, raw uint64) {
	l.DebugContext(ctx, "chunk written",
		"chunk", chunk,
		"elements", elements,
		"stored_bytes", stored,
		"raw_bytes", raw,
	)
}

// LogDeserialize logs a full read.
func (l *Logger) LogDeserialize(ctx context.Context, elements uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "deserialize failed",
			"elements_read", elements,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "deserialize completed",
			"elements", elements,
		)
	}
}

// LogDeserializeAt logs a random access read.
func (l *Logger) LogDeserializeAt(ctx context.Context, index int64, seekable bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "deserialize at failed",
			"index", index,
			"seekable", seekable,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "deserialize at completed",
			"index", index,
			"seekable", seekable,
		)
	}
}

// LogScan logs an index reconstruction.
func (l *Logger) LogScan(ctx context.Context, chunks int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index scan failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "index scan completed",
			"chunks", chunks,
		)
	}
}
