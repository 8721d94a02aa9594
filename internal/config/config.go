package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	// GRPCAddr hosts the gRPC health service; empty disables it.
	GRPCAddr string `json:"grpcAddr" yaml:"grpcAddr"`
	// CORSOrigins is the allow-list of origins; "*" permits all.
	CORSOrigins []string `json:"corsOrigins" yaml:"corsOrigins"`
	// PollIntervalMs bounds how long an idle stream sleeps between checks.
	PollIntervalMs int `json:"pollIntervalMs" yaml:"pollIntervalMs"`
	// MaxRecordBytes caps a single ingest body.
	MaxRecordBytes int64       `json:"maxRecordBytes" yaml:"maxRecordBytes"`
	Store          StoreConfig `json:"store" yaml:"store"`
	Log            LogConfig   `json:"log" yaml:"log"`
}

// StoreConfig selects and tunes the buffer backend.
type StoreConfig struct {
	// Backend is memory or pebble.
	Backend string `json:"backend" yaml:"backend"`
	// OnDisk moves pebble from an in-memory filesystem to a scratch
	// directory. Setting DataDir implies OnDisk. The directory's contents
	// are discarded at open.
	OnDisk  bool   `json:"onDisk" yaml:"onDisk"`
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// Fsync is always, interval, or never.
	Fsync string `json:"fsync" yaml:"fsync"`
}

// LogConfig mirrors pkg/log.Config for file/env loading.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	Output string `json:"output" yaml:"output"`
	// Redact lists field keys whose values are masked in every entry.
	Redact []string `json:"redact" yaml:"redact"`
	// SampleThereafter > 0 keeps the first SampleInitial debug/info entries
	// per message, then one in every SampleThereafter.
	SampleInitial    int `json:"sampleInitial" yaml:"sampleInitial"`
	SampleThereafter int `json:"sampleThereafter" yaml:"sampleThereafter"`
}

const (
	BackendMemory = "memory"
	BackendPebble = "pebble"
)

// InMemory reports whether the pebble backend stays off disk.
func (s StoreConfig) InMemory() bool { return !s.OnDisk && s.DataDir == "" }

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:       ":8000",
		GRPCAddr:       ":50051",
		CORSOrigins:    []string{"*"},
		PollIntervalMs: 500,
		MaxRecordBytes: 1 << 20,
		Store: StoreConfig{
			Backend: BackendMemory,
			Fsync:   "never",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// PollInterval returns PollIntervalMs as a duration, falling back to the
// default for non-positive values.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("config: httpAddr is required")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendPebble:
	default:
		return fmt.Errorf("config: unknown store backend %q; use memory|pebble", c.Store.Backend)
	}
	switch c.Store.Fsync {
	case "", "always", "interval", "never":
	default:
		return fmt.Errorf("config: invalid fsync %q; use always|interval|never", c.Store.Fsync)
	}
	if c.MaxRecordBytes < 0 {
		return fmt.Errorf("config: maxRecordBytes must be >= 0")
	}
	return nil
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// the defaults. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
