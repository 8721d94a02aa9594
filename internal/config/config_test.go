package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.HTTPAddr != ":8000" {
		t.Fatalf("default http addr: %s", cfg.HTTPAddr)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("default cors should permit all: %v", cfg.CORSOrigins)
	}
	if cfg.PollInterval() != 500*time.Millisecond {
		t.Fatalf("poll interval: %v", cfg.PollInterval())
	}
	if cfg.Store.Backend != BackendMemory || !cfg.Store.InMemory() {
		t.Fatalf("store defaults: %+v", cfg.Store)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pubrt.json")
	data := []byte(`{"httpAddr":":9000","pollIntervalMs":250,"store":{"backend":"pebble","fsync":"interval"}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.PollIntervalMs != 250 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Store.Backend != BackendPebble || cfg.Store.Fsync != "interval" {
		t.Fatalf("store: %+v", cfg.Store)
	}
	// untouched fields keep defaults
	if cfg.MaxRecordBytes != 1<<20 {
		t.Fatalf("max record bytes default lost: %d", cfg.MaxRecordBytes)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pubrt.yaml")
	data := []byte("corsOrigins:\n  - https://dash.example.com\n  - http://localhost:8501\nstore:\n  backend: pebble\n  dataDir: /tmp/pubrt\nlog:\n  level: debug\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://localhost:8501" {
		t.Fatalf("cors: %v", cfg.CORSOrigins)
	}
	if cfg.Store.InMemory() {
		t.Fatalf("dataDir should imply on-disk")
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level: %s", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, true},
		{"bad fsync", func(c *Config) { c.Store.Fsync = "sometimes" }, true},
		{"empty http", func(c *Config) { c.HTTPAddr = "" }, true},
		{"pebble", func(c *Config) { c.Store.Backend = BackendPebble }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("PUBRT_POLL_INTERVAL_MS", "100")
	t.Setenv("PUBRT_STORE_BACKEND", "PEBBLE")
	t.Setenv("PUBRT_STORE_ON_DISK", "true")
	t.Setenv("PUBRT_GRPC_ADDR", "")
	FromEnv(&cfg)
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.example" {
		t.Fatalf("cors: %v", cfg.CORSOrigins)
	}
	if cfg.PollInterval() != 100*time.Millisecond {
		t.Fatalf("poll: %v", cfg.PollInterval())
	}
	if cfg.Store.Backend != BackendPebble || !cfg.Store.OnDisk {
		t.Fatalf("store: %+v", cfg.Store)
	}
	if cfg.GRPCAddr != "" {
		t.Fatalf("empty PUBRT_GRPC_ADDR should disable grpc, got %q", cfg.GRPCAddr)
	}
}

func TestFromEnvPrefixedCORSWins(t *testing.T) {
	cfg := Default()
	t.Setenv("CORS_ORIGINS", "http://a.example")
	t.Setenv("PUBRT_CORS_ORIGINS", "http://c.example")
	FromEnv(&cfg)
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://c.example" {
		t.Fatalf("cors: %v", cfg.CORSOrigins)
	}
}

func TestFromEnvLogSamplingAndRedaction(t *testing.T) {
	t.Setenv("PUBRT_LOG_REDACT", "token, password")
	t.Setenv("PUBRT_LOG_SAMPLE_INITIAL", "5")
	t.Setenv("PUBRT_LOG_SAMPLE_THEREAFTER", "100")
	cfg := Default()
	FromEnv(&cfg)
	if len(cfg.Log.Redact) != 2 || cfg.Log.Redact[0] != "token" || cfg.Log.Redact[1] != "password" {
		t.Fatalf("redact: %v", cfg.Log.Redact)
	}
	if cfg.Log.SampleInitial != 5 || cfg.Log.SampleThereafter != 100 {
		t.Fatalf("sampling: %+v", cfg.Log)
	}
}
