package serverrun

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/rzbill/pubrt/internal/config"
	"github.com/rzbill/pubrt/internal/runtime"
	grpcserver "github.com/rzbill/pubrt/internal/server/grpc"
	httpserver "github.com/rzbill/pubrt/internal/server/http"
	recordsvc "github.com/rzbill/pubrt/internal/services/records"
	logpkg "github.com/rzbill/pubrt/pkg/log"
)

type Options struct {
	Config cfgpkg.Config
	// Logger overrides the logger built from Config.Log.
	Logger logpkg.Logger
	// Ready, when set, is called with the bound addresses once both
	// listeners are open. grpcAddr is nil when gRPC is disabled.
	Ready func(httpAddr, grpcAddr net.Addr)
}

// NewLogger builds the process logger from cfg, falling back to text at
// info level when cfg is invalid.
func NewLogger(cfg cfgpkg.LogConfig) logpkg.Logger {
	lc := &logpkg.Config{
		Level:            cfg.Level,
		Format:           cfg.Format,
		Output:           cfg.Output,
		Redact:           cfg.Redact,
		SampleInitial:    cfg.SampleInitial,
		SampleThereafter: cfg.SampleThereafter,
	}
	logger, err := logpkg.ApplyConfig(lc)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(cfg.Level); e == nil {
			lvl = l
		}
		logger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
		logger.Warn("invalid log config; using defaults", logpkg.Err(err))
	}
	return logger
}

// Run starts the HTTP server, and the gRPC server when configured, and
// blocks until ctx is cancelled or a server fails.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(cfg.Log)
	}
	// Route stdlib logs (Pebble, net/http) through the same logger.
	logpkg.RedirectStdLog(logger)

	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	svc := recordsvc.NewWithLogger(rt, logger)
	hsrv := httpserver.NewWithService(rt, svc, logger)
	hl, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", cfg.HTTPAddr, err)
	}

	var (
		gsrv *grpcserver.Server
		gl   net.Listener
	)
	if cfg.GRPCAddr != "" {
		gsrv = grpcserver.New(rt, logger)
		gl, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			_ = hl.Close()
			return fmt.Errorf("grpc listen %s: %w", cfg.GRPCAddr, err)
		}
	}

	var grpcAddr net.Addr
	if gl != nil {
		grpcAddr = gl.Addr()
	}
	logger.Info("Starting pubrt server",
		logpkg.Str("http", hl.Addr().String()),
		logpkg.Any("grpc", grpcAddr),
		logpkg.Str("backend", cfg.Store.Backend),
		logpkg.Any("cors", cfg.CORSOrigins),
		logpkg.Duration("poll", cfg.PollInterval()),
	)
	if opts.Ready != nil {
		opts.Ready(hl.Addr(), grpcAddr)
	}

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error { return hsrv.Serve(gctx, hl) })
	if gsrv != nil {
		g.Go(func() error { return gsrv.Serve(gctx, gl) })
	}
	err = g.Wait()
	logger.Info("pubrt server stopped", logpkg.Int("total_records", rt.Store().Len()))
	return err
}
