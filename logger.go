package batchgraph

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with loader-specific context.
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
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithPhase adds a phase field ("sequential", "vertices", "edges").
func (l *Logger) WithPhase(phase string) *Logger {
	return &Logger{
		Logger: l.Logger.With("phase", phase),
	}
}

// WithWorker adds a worker field.
func (l *Logger) WithWorker(worker int) *Logger {
	return &Logger{
		Logger: l.Logger.With("worker", worker),
	}
}

// WithTransactionSize adds the configured batch size.
func (l *Logger) WithTransactionSize(size int) *Logger {
	return &Logger{
		Logger: l.Logger.With("transaction_size", size),
	}
}

// LogCommit logs a batch commit.
func (l *Logger) LogCommit(ctx context.Context, phase string, ops int64, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "commit failed",
			"phase", phase,
			"ops", ops,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "batch committed",
			"phase", phase,
			"ops", ops,
			"duration", d,
		)
	}
}

// LogWave logs a joined vertex wave.
func (l *Logger) LogWave(ctx context.Context, wave, batches, vertices int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "vertex wave failed",
			"wave", wave,
			"batches", batches,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "vertex wave merged",
			"wave", wave,
			"batches", batches,
			"vertices", vertices,
		)
	}
}

// LogPhase logs the end of a loader phase.
func (l *Logger) LogPhase(ctx context.Context, phase string, triples int64, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "phase failed",
			"phase", phase,
			"triples", triples,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "phase completed",
			"phase", phase,
			"triples", triples,
			"duration", d,
		)
	}
}

// LogDangling logs a skipped triple.
func (l *Logger) LogDangling(ctx context.Context, ref DanglingReference) {
	l.WarnContext(ctx, "skipping dangling reference",
		"position", ref.Position,
		"missing_id", ref.MissingID,
		"triple", ref.Triple.String(),
	)
}

// LogLoad logs a finished load.
func (l *Logger) LogLoad(ctx context.Context, r *Report, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"triples", r.Triples,
			"vertices", r.VerticesCreated,
			"error", err,
		)
		return
	}
	if r.Skipped > 0 {
		l.WarnContext(ctx, "load completed with dangling references",
			"triples", r.Triples,
			"vertices", r.VerticesCreated,
			"edges", r.EdgesCreated,
			"skipped", r.Skipped,
		)
		return
	}
	l.InfoContext(ctx, "load completed",
		"triples", r.Triples,
		"vertices", r.VerticesCreated,
		"edges", r.EdgesCreated,
		"properties", r.PropertiesSet,
		"duration", r.Duration,
	)
}
