// Package transports provides the transport implementations used by the CLI.
package transports

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrStreamEnded is returned by Stream when the server closes the stream.
var ErrStreamEnded = errors.New("stream ended by server")

// Event is one record received from the event stream.
type Event struct {
	// ID is the record's buffer position as sent by the server.
	ID   string
	Data json.RawMessage
}

// Health is the server's health summary.
type Health struct {
	Status       string `json:"status"`
	TotalRecords int    `json:"total_records"`
}

// StreamRequest describes a stream subscription.
type StreamRequest struct {
	Filter string
	Limit  int
}

// RecordsTransport abstracts how the CLI reaches a pubrt server.
type RecordsTransport interface {
	Ingest(ctx context.Context, record []byte) (total int, err error)
	Stream(ctx context.Context, req StreamRequest, onEvent func(Event) error) error
	Health(ctx context.Context) (Health, error)
}
