package grpcserver

import (
	"context"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/reflection"

	"github.com/rzbill/pubrt/internal/runtime"
	logpkg "github.com/rzbill/pubrt/pkg/log"
)

// BufferService is the health service name that tracks the buffer store.
const BufferService = "pubrt.Buffer"

const defaultHealthInterval = time.Second

// Server owns the gRPC server instance and runtime.
type Server struct {
	rt     *runtime.Runtime
	grpc   *grpc.Server
	health *health.Server
	logger logpkg.Logger

	// HealthInterval is how often store health is re-checked while serving.
	HealthInterval time.Duration

	mu  sync.Mutex
	lis net.Listener
}

// New constructs a gRPC server and registers the health and reflection
// services.
func New(rt *runtime.Runtime, logger logpkg.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = rt.Logger()
	}
	logger = logger.With(logpkg.Component("grpc"))
	opts = append(opts, grpc.ChainUnaryInterceptor(unaryLogger(logger)))
	s := &Server{
		rt:             rt,
		grpc:           grpc.NewServer(opts...),
		health:         health.NewServer(),
		logger:         logger,
		HealthInterval: defaultHealthInterval,
	}
	registerHealth(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.refreshHealth(context.Background())
	return s
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve serves on l until ctx is done, keeping health status in step with
// the store.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	s.lis = l
	s.mu.Unlock()

	wctx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go s.watchHealth(wctx)

	s.logger.Info("grpc listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops the server and closes the listener.
func (s *Server) Close() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func unaryLogger(logger logpkg.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []logpkg.Field{logpkg.Str("method", info.FullMethod), logpkg.Duration("dur", time.Since(start))}
		if err != nil {
			logger.Debug("grpc call failed", append(fields, logpkg.Err(err))...)
		} else {
			logger.Debug("grpc call", fields...)
		}
		return resp, err
	}
}
