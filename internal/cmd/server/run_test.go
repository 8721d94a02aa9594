package serverrun

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/pubrt/internal/config"
	logpkg "github.com/rzbill/pubrt/pkg/log"
)

func quietLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
}

func TestNewLoggerFallsBackOnBadConfig(t *testing.T) {
	if l := NewLogger(cfgpkg.LogConfig{Level: "debug", Format: "json", Output: "null"}); l.GetLevel() != logpkg.DebugLevel {
		t.Fatalf("level=%v", l.GetLevel())
	}
	if l := NewLogger(cfgpkg.LogConfig{Level: "info", Format: "xml", Output: "null"}); l == nil {
		t.Fatalf("expected fallback logger")
	}
}

func TestNewLoggerAppliesRedaction(t *testing.T) {
	out := filepath.Join(t.TempDir(), "pubrt.log")
	l := NewLogger(cfgpkg.LogConfig{Level: "info", Format: "json", Output: out, Redact: []string{"token"}})
	l.Info("login", logpkg.Str("token", "s3cret"))
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(b), "s3cret") || !strings.Contains(string(b), "[REDACTED]") {
		t.Fatalf("unexpected log: %s", b)
	}
}

func TestRunServesAndStops(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"

	ready := make(chan net.Addr, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			Config: cfg,
			Logger: quietLogger(),
			Ready: func(h, g net.Addr) {
				if g == nil {
					t.Errorf("grpc should be enabled")
				}
				ready <- h
			},
		})
	}()

	var addr net.Addr
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatalf("server not ready")
	}

	base := "http://" + addr.String()
	resp, err := http.Post(base+"/ingest", "application/json", strings.NewReader(`{"Hour":1}`))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	resp.Body.Close()
	resp, err = http.Get(base + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	var h struct {
		Status       string `json:"status"`
		TotalRecords int    `json:"total_records"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&h)
	resp.Body.Close()
	if h.Status != "healthy" || h.TotalRecords != 1 {
		t.Fatalf("health=%+v", h)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestRunWithoutGRPC(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = ""
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{Config: cfg, Logger: quietLogger(), Ready: func(_, g net.Addr) {
			if g != nil {
				t.Errorf("grpc should be disabled, got %v", g)
			}
			cancel()
		}})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestRunReportsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	cfg := cfgpkg.Default()
	cfg.HTTPAddr = l.Addr().String()
	cfg.GRPCAddr = ""
	if err := Run(context.Background(), Options{Config: cfg, Logger: quietLogger()}); err == nil {
		t.Fatalf("expected listen error")
	}
}
