package controllers

import (
	"context"
	"net/http"
	"strconv"

	recordsvc "github.com/rzbill/pubrt/internal/services/records"
)

// sseSink implements recordsvc.Sink for Server-Sent Events. Each record
// becomes one event whose id is its buffer position and whose data is the
// record JSON.
type sseSink struct {
	w http.ResponseWriter
	r *http.Request
}

// Send writes "id: <position>\ndata: <json>\n\n". Records are compact JSON,
// so the data never spans lines.
func (s sseSink) Send(it recordsvc.Item) error {
	buf := make([]byte, 0, len(it.Record)+32)
	buf = append(buf, "id: "...)
	buf = strconv.AppendInt(buf, int64(it.Position), 10)
	buf = append(buf, "\ndata: "...)
	buf = append(buf, it.Record...)
	buf = append(buf, "\n\n"...)
	_, err := s.w.Write(buf)
	return err
}

// Context returns the request context for cancellation.
func (s sseSink) Context() context.Context {
	return s.r.Context()
}

// Flush flushes the HTTP response writer if it supports flushing.
func (s sseSink) Flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
