package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/pubrt/internal/config"
	"github.com/rzbill/pubrt/internal/runtime"
	logpkg "github.com/rzbill/pubrt/pkg/log"
)

const exampleRecord = `{"Date":"2024-01-01","Hour":1,"Ontario Demand":15000}`

func newTestServer(t *testing.T, mutate ...func(*cfgpkg.Config)) (*Server, *runtime.Runtime) {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.PollIntervalMs = 50
	for _, m := range mutate {
		m(&cfg)
	}
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text", Output: "null"})
	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return New(rt, logger), rt
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func TestHealthReportsCount(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	m := decode(t, w)
	if m["status"] != "healthy" || m["total_records"] != float64(0) {
		t.Fatalf("health: %v", m)
	}
}

func TestHealthUnavailableAfterClose(t *testing.T) {
	s, rt := newTestServer(t)
	_ = rt.Close()
	if w := do(t, s, http.MethodGet, "/health", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestIngestReturnsTotal(t *testing.T) {
	s, _ := newTestServer(t)
	for i := 1; i <= 2; i++ {
		w := do(t, s, http.MethodPost, "/ingest", exampleRecord)
		if w.Code != http.StatusOK {
			t.Fatalf("status: %d body=%s", w.Code, w.Body.String())
		}
		m := decode(t, w)
		if m["message"] != "Data received" || m["total_records"] != float64(i) {
			t.Fatalf("ingest %d: %v", i, m)
		}
	}
}

func TestIngestErrors(t *testing.T) {
	s, rt := newTestServer(t, func(c *cfgpkg.Config) { c.MaxRecordBytes = 64 })
	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"malformed", http.MethodPost, `{"a":`, http.StatusUnprocessableEntity},
		{"empty", http.MethodPost, ``, http.StatusUnprocessableEntity},
		{"invalid utf-8", http.MethodPost, "{\"a\":\"\xff\xfe\"}", http.StatusUnprocessableEntity},
		{"array", http.MethodPost, `[{"a":1}]`, http.StatusUnprocessableEntity},
		{"scalar", http.MethodPost, `7`, http.StatusUnprocessableEntity},
		{"oversize", http.MethodPost, `{"k":"` + strings.Repeat("x", 100) + `"}`, http.StatusRequestEntityTooLarge},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, tt.method, "/ingest", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", w.Code, tt.status, w.Body.String())
			}
		})
	}
	if rt.Store().Len() != 0 {
		t.Fatalf("rejected bodies stored: %d", rt.Store().Len())
	}
}

func TestStreamMethodAndFilterErrors(t *testing.T) {
	s, _ := newTestServer(t)
	if w := do(t, s, http.MethodPost, "/stream", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("post /stream: %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/stream?filter=json.", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad filter: %d", w.Code)
	}
}

func TestCORSDefaultAllowsAll(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/ingest", nil)
	req.Header.Set("Origin", "http://dash.local")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin: %q", got)
	}
}

func TestCORSAllowList(t *testing.T) {
	s, _ := newTestServer(t, func(c *cfgpkg.Config) { c.CORSOrigins = []string{"http://a.local", "http://b.local"} })
	tests := []struct {
		origin string
		want   string
	}{
		{"http://a.local", "http://a.local"},
		{"http://b.local", "http://b.local"},
		{"http://evil.local", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Fatalf("origin %s: allow-origin=%q want %q", tt.origin, got, tt.want)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing generated request id")
	}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("request id not echoed: %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/ingest", exampleRecord)
	do(t, s, http.MethodPost, "/ingest", `[1]`)
	w := do(t, s, http.MethodGet, "/metrics", "")
	body := w.Body.String()
	for _, want := range []string{
		"pubrt_ingest_records_total 1",
		`pubrt_ingest_rejected_total{reason="not_object"} 1`,
		"pubrt_buffer_records 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

// readEvents reads SSE events from r and sends each (id, data) pair.
func readEvents(r io.Reader, out chan<- [2]string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	var id, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "id: "):
			id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if data != "" {
				out <- [2]string{id, data}
			}
			id, data = "", ""
		}
	}
}

func nextEvent(t *testing.T, ch <-chan [2]string) [2]string {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("stream ended")
		}
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return [2]string{}
}

func TestExampleRecordRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/ingest", "application/json", strings.NewReader(exampleRecord))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/stream?limit=1")
	if err != nil {
		t.Fatalf("get stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type: %q", ct)
	}
	if resp.Header.Get("X-Stream-Session") == "" {
		t.Fatalf("missing session header")
	}
	events := make(chan [2]string, 4)
	go readEvents(resp.Body, events)
	ev := nextEvent(t, events)
	if ev[0] != "0" || ev[1] != exampleRecord {
		t.Fatalf("event = %v", ev)
	}

	hr, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer hr.Body.Close()
	var h map[string]any
	_ = json.NewDecoder(hr.Body).Decode(&h)
	if h["total_records"] != float64(1) {
		t.Fatalf("health after one ingest: %v", h)
	}
}

func TestStreamReplayThenLiveTail(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	post := func(body string) {
		resp, err := http.Post(ts.URL+"/ingest", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
	}
	post(`{"n":0}`)
	post(`{"n":1}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get stream: %v", err)
	}
	defer resp.Body.Close()
	events := make(chan [2]string, 16)
	go readEvents(resp.Body, events)

	for i, want := range []string{`{"n":0}`, `{"n":1}`} {
		if ev := nextEvent(t, events); ev[1] != want {
			t.Fatalf("replay %d = %v", i, ev)
		}
	}
	post(`{"n":2}`)
	if ev := nextEvent(t, events); ev[0] != "2" || ev[1] != `{"n":2}` {
		t.Fatalf("tail = %v", ev)
	}
}

func TestServeStopsWithOpenStream(t *testing.T) {
	s, _ := newTestServer(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/stream")
	if err != nil {
		t.Fatalf("get stream: %v", err)
	}
	defer resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not return after cancel")
	}
}
