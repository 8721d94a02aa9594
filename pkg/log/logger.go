package log

import (
	"context"
	"time"
)

// Level is the severity of an entry.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	}
	return "UNKNOWN"
}

// Fields is the set of structured values rendered with an entry.
type Fields map[string]interface{}

// Well-known field keys.
const (
	ComponentKey = "component"
	RequestIDKey = "request_id"
)

type requestIDCtxKey struct{}

// Entry is one record handed to a Formatter and then to every Output.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Caller    string
}

// Logger is the leveled, structured logger passed explicitly through pubrt.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal logs and exits the process.
	Fatal(msg string, fields ...Field)

	// With returns a logger that adds fields to every entry.
	With(fields ...Field) Logger
	// WithError is With(Err(err)); nil leaves the logger unchanged.
	WithError(err error) Logger
	// WithContext picks up the request id stored by ContextWithRequestID.
	WithContext(ctx context.Context) Logger

	GetLevel() Level
}

type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

type Output interface {
	Write(entry *Entry, formatted []byte) error
	Close() error
}

// LoggerOption configures NewLogger.
type LoggerOption func(*pipeline)

func WithLevel(level Level) LoggerOption {
	return func(p *pipeline) { p.level = level }
}

func WithFormatter(f Formatter) LoggerOption {
	return func(p *pipeline) { p.formatter = f }
}

// WithOutput adds an output; entries go to every output in order.
func WithOutput(o Output) LoggerOption {
	return func(p *pipeline) { p.outputs = append(p.outputs, o) }
}

// WithRedact replaces the values of the named keys with [REDACTED], whether
// they come from With or from the call site.
func WithRedact(keys ...string) LoggerOption {
	return func(p *pipeline) {
		if len(keys) == 0 {
			return
		}
		if p.redact == nil {
			p.redact = make(map[string]struct{}, len(keys))
		}
		for _, k := range keys {
			p.redact[k] = struct{}{}
		}
	}
}

// WithSampling keeps the first initial entries of each debug or info
// message and then one in every thereafter. Warnings and errors are never
// sampled. thereafter <= 0 disables sampling.
func WithSampling(initial, thereafter int) LoggerOption {
	return func(p *pipeline) {
		if thereafter > 0 {
			p.sampler = newSampler(initial, thereafter)
		} else {
			p.sampler = nil
		}
	}
}

// NewLogger builds a Logger. Defaults: info level, JSON, stderr.
func NewLogger(options ...LoggerOption) Logger {
	p := &pipeline{level: InfoLevel, formatter: &JSONFormatter{}}
	for _, o := range options {
		o(p)
	}
	if len(p.outputs) == 0 {
		p.outputs = []Output{NewConsoleOutput()}
	}
	return &BaseLogger{h: &bridgeHandler{p: p}}
}

// ContextWithRequestID stores id so WithContext can pick it up downstream.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

// RequestIDFromContext returns the id stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}
