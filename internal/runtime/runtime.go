package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/rzbill/pubrt/internal/buffer"
	cfgpkg "github.com/rzbill/pubrt/internal/config"
	"github.com/rzbill/pubrt/internal/metrics"
	pebblestore "github.com/rzbill/pubrt/internal/storage/pebble"
	logpkg "github.com/rzbill/pubrt/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
	// Metrics is created when nil.
	Metrics *metrics.Metrics
}

// Runtime owns the buffer store and the collaborators shared by every
// transport: config, logger, and metrics.
type Runtime struct {
	store   buffer.Store
	config  cfgpkg.Config
	logger  logpkg.Logger
	metrics *metrics.Metrics
}

// Open builds the configured buffer store and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	fsync, err := pebblestore.ParseFsyncMode(cfg.Store.Fsync)
	if err != nil {
		return nil, err
	}
	bopts := buffer.Options{
		Backend: cfg.Store.Backend,
		Fsync:   fsync,
		Logger:  logger,
		Metrics: m,
	}
	if cfg.Store.Backend == cfgpkg.BackendPebble && !cfg.Store.InMemory() {
		bopts.DataDir = cfgpkg.ResolveDataDir(cfg.Store)
	}
	store, err := buffer.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}
	m.TrackBufferLength(store.Len)

	logger.Info("buffer store opened",
		logpkg.Str("backend", orDefault(cfg.Store.Backend, cfgpkg.BackendMemory)),
		logpkg.Str("data_dir", bopts.DataDir))

	return &Runtime{store: store, config: cfg, logger: logger, metrics: m}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// CheckHealth reports whether the buffer store is usable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil {
		return errors.New("store not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.Check()
}

// Store returns the shared buffer store.
func (r *Runtime) Store() buffer.Store { return r.store }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the process logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// Metrics returns the Prometheus collectors.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
