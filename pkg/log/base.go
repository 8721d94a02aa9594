package log

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// BaseLogger is the Logger returned by NewLogger and ApplyConfig. Derived
// loggers share the pipeline and carry their own pre-bound attributes.
type BaseLogger struct {
	h *bridgeHandler
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if !l.h.Enabled(context.Background(), toSlogLevel(level)) {
		return
	}
	var pcs [1]uintptr
	// runtime.Callers, log, the exported method
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), toSlogLevel(level), msg, pcs[0])
	r.AddAttrs(attrs(fields)...)
	_ = l.h.Handle(context.Background(), r)
	if level == FatalLevel {
		os.Exit(1)
	}
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }
func (l *BaseLogger) Fatal(msg string, fields ...Field) { l.log(FatalLevel, msg, fields) }

func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &BaseLogger{h: l.h.withAttrs(attrs(fields))}
}

func (l *BaseLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.With(Err(err))
}

func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		return l.With(RequestID(id))
	}
	return l
}

func (l *BaseLogger) GetLevel() Level { return l.h.p.level }

func attrs(fields []Field) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	out := make([]slog.Attr, len(fields))
	for i, f := range fields {
		out[i] = slog.Any(f.Key, f.Value)
	}
	return out
}
