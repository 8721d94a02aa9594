package recordsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rzbill/pubrt/internal/buffer"
	"github.com/rzbill/pubrt/internal/metrics"
	"github.com/rzbill/pubrt/internal/runtime"
	"github.com/rzbill/pubrt/pkg/id"
	logpkg "github.com/rzbill/pubrt/pkg/log"
)

// flushEvery bounds how many catch-up events are written between flushes.
const flushEvery = 64

// Service provides ingest and streaming over the runtime's buffer store.
type Service struct {
	store        buffer.Store
	logger       logpkg.Logger
	metrics      *metrics.Metrics
	pollInterval time.Duration
	maxBytes     int64
	ids          *id.Generator
}

// New returns a Service using the runtime's logger.
func New(rt *runtime.Runtime) *Service {
	return NewWithLogger(rt, rt.Logger())
}

// NewWithLogger returns a Service using the provided logger.
func NewWithLogger(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	cfg := rt.Config()
	return &Service{
		store:        rt.Store(),
		logger:       logger.With(logpkg.Component("records")),
		metrics:      rt.Metrics(),
		pollInterval: cfg.PollInterval(),
		maxBytes:     cfg.MaxRecordBytes,
		ids:          id.NewGenerator(),
	}
}

// MaxRecordBytes is the largest body Ingest accepts; 0 means unlimited.
func (s *Service) MaxRecordBytes() int64 { return s.maxBytes }

// Ingest validates body as a single JSON object and appends its compacted
// form as the next record.
func (s *Service) Ingest(ctx context.Context, body []byte) (IngestResult, error) {
	if s.maxBytes > 0 && int64(len(body)) > s.maxBytes {
		s.metrics.RecordRejected(metrics.ReasonTooLarge)
		return IngestResult{}, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrTooLarge, len(body), s.maxBytes)
	}
	rec, err := normalize(body)
	if err != nil {
		if errors.Is(err, ErrNotObject) {
			s.metrics.RecordRejected(metrics.ReasonNotObject)
		} else {
			s.metrics.RecordRejected(metrics.ReasonInvalidBody)
		}
		return IngestResult{}, err
	}

	pos, err := s.store.Append(ctx, rec)
	if err != nil {
		return IngestResult{}, fmt.Errorf("append: %w", err)
	}
	s.metrics.RecordIngested()
	s.logger.Debug("record ingested", logpkg.Int("position", pos), logpkg.Int("size", len(rec)))
	return IngestResult{Position: pos, Total: pos + 1}, nil
}

// Count returns the number of records in the buffer.
func (s *Service) Count() int { return s.store.Len() }

// normalize rejects anything but a UTF-8 JSON object and strips
// insignificant whitespace. Key order and values are kept as sent.
func normalize(body []byte) (buffer.Record, error) {
	trimmed := bytes.TrimSpace(body)
	// json.Valid does not check string contents for UTF-8, and event
	// streams must be UTF-8.
	if !json.Valid(trimmed) || !utf8.Valid(trimmed) {
		return nil, ErrInvalidBody
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	var out bytes.Buffer
	if err := json.Compact(&out, trimmed); err != nil {
		return nil, ErrInvalidBody
	}
	return buffer.Record(out.Bytes()), nil
}

// ValidateFilter reports whether expr compiles as a stream filter.
func ValidateFilter(expr string) error {
	if _, err := newCELFilter(expr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return nil
}

// Open creates a session in the INIT state. A filter that does not compile
// fails here, before anything is written to the client.
func (s *Service) Open(opts StreamOptions) (*Session, error) {
	filter, err := newCELFilter(opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	sess := &Session{
		id:     s.ids.Next(),
		svc:    s,
		filter: filter,
		limit:  opts.Limit,
	}
	sess.logger = s.logger.With(logpkg.Str("session", sess.id.String()))
	return sess, nil
}
