package log

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
)

// pipeline is what every logger derived from one NewLogger call shares:
// level gate, redaction, sampling, formatter and outputs.
type pipeline struct {
	level     Level
	formatter Formatter
	outputs   []Output
	redact    map[string]struct{}
	sampler   *sampler
}

// bridgeHandler is a slog.Handler that renders records through a pipeline,
// so slog-based callers and Logger produce identical entries.
type bridgeHandler struct {
	p     *pipeline
	attrs []slog.Attr
}

var _ slog.Handler = (*bridgeHandler)(nil)

func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return fromSlogLevel(level) >= h.p.level
}

func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	lvl := fromSlogLevel(r.Level)
	if lvl < WarnLevel && h.p.sampler != nil && !h.p.sampler.allow(lvl, r.Message) {
		return nil
	}
	fields := make(Fields, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		h.put(fields, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.put(fields, a)
		return true
	})

	entry := &Entry{
		Level:     lvl,
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
		Caller:    caller(r.PC),
	}
	b, err := h.p.formatter.Format(entry)
	if err != nil {
		return err
	}
	var firstErr error
	for _, o := range h.p.outputs {
		if err := o.Write(entry, b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *bridgeHandler) put(fields Fields, a slog.Attr) {
	if _, ok := h.p.redact[a.Key]; ok {
		fields[a.Key] = "[REDACTED]"
		return
	}
	fields[a.Key] = a.Value.Any()
}

func (h *bridgeHandler) WithAttrs(as []slog.Attr) slog.Handler { return h.withAttrs(as) }

func (h *bridgeHandler) withAttrs(as []slog.Attr) *bridgeHandler {
	if len(as) == 0 {
		return h
	}
	merged := make([]slog.Attr, 0, len(h.attrs)+len(as))
	merged = append(append(merged, h.attrs...), as...)
	return &bridgeHandler{p: h.p, attrs: merged}
}

// WithGroup flattens: entries have a single level of fields.
func (h *bridgeHandler) WithGroup(string) slog.Handler { return h }

func caller(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	f, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if f.File == "" {
		return ""
	}
	return f.File + ":" + strconv.Itoa(f.Line)
}

// sampler counts entries per (level, message).
type sampler struct {
	mu         sync.Mutex
	initial    uint64
	thereafter uint64
	seen       map[samplerKey]uint64
}

type samplerKey struct {
	level Level
	msg   string
}

func newSampler(initial, thereafter int) *sampler {
	if initial < 0 {
		initial = 0
	}
	return &sampler{
		initial:    uint64(initial),
		thereafter: uint64(thereafter),
		seen:       make(map[samplerKey]uint64),
	}
}

func (s *sampler) allow(level Level, msg string) bool {
	k := samplerKey{level, msg}
	s.mu.Lock()
	n := s.seen[k]
	s.seen[k] = n + 1
	s.mu.Unlock()
	return n < s.initial || (n-s.initial)%s.thereafter == 0
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	case FatalLevel:
		return slog.LevelError + 4
	}
	return slog.LevelInfo
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return DebugLevel
	case level < slog.LevelWarn:
		return InfoLevel
	case level < slog.LevelError:
		return WarnLevel
	case level < slog.LevelError+4:
		return ErrorLevel
	}
	return FatalLevel
}
