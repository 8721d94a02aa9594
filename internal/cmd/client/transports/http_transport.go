package transports

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPTransport implements RecordsTransport over the HTTP API.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	stream  *http.Client
}

var _ RecordsTransport = (*HTTPTransport)(nil)

// NewHTTPTransport builds a transport for baseURL. Unary calls time out
// after timeout; streams are bounded only by their context.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		stream:  &http.Client{},
	}
}

// Ingest posts one JSON object and returns the server's running total.
func (t *HTTPTransport) Ingest(ctx context.Context, record []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/ingest", bytes.NewReader(record))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, httpError(resp)
	}
	var out struct {
		TotalRecords int `json:"total_records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode ingest response: %w", err)
	}
	return out.TotalRecords, nil
}

// Health fetches /health.
func (t *HTTPTransport) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/health", nil)
	if err != nil {
		return Health{}, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return Health{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("decode health: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return h, fmt.Errorf("http error: %s", resp.Status)
	}
	return h, nil
}

// Stream opens /stream and calls onEvent for each event until ctx is done,
// onEvent returns an error, or the server ends the stream. A server-side
// end after a requested limit is not an error.
func (t *HTTPTransport) Stream(ctx context.Context, sreq StreamRequest, onEvent func(Event) error) error {
	q := url.Values{}
	if sreq.Filter != "" {
		q.Set("filter", sreq.Filter)
	}
	if sreq.Limit > 0 {
		q.Set("limit", strconv.Itoa(sreq.Limit))
	}
	u := t.baseURL + "/stream"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := t.stream.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return httpError(resp)
	}

	n := 0
	err = readSSE(resp.Body, func(ev Event) error {
		n++
		return onEvent(ev)
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return err
	}
	if sreq.Limit > 0 && n >= sreq.Limit {
		return nil
	}
	return ErrStreamEnded
}

// readSSE parses an event stream, joining multi-line data fields with "\n".
// Comment lines and unknown fields are ignored.
func readSSE(r io.Reader, onEvent func(Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	var (
		id   string
		data []string
	)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if len(data) > 0 {
				if err := onEvent(Event{ID: id, Data: json.RawMessage(strings.Join(data, "\n"))}); err != nil {
					return err
				}
			}
			id, data = "", data[:0]
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			id = value
		case "data":
			data = append(data, value)
		}
	}
	return sc.Err()
}

func httpError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return fmt.Errorf("http error: %s: %s", resp.Status, e.Error)
	}
	return fmt.Errorf("http error: %s", resp.Status)
}
