package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	logpkg "github.com/rzbill/pubrt/pkg/log"
)

func registerHealth(g *grpc.Server, h *health.Server) {
	healthpb.RegisterHealthServer(g, h)
}

// refreshHealth maps the runtime health check onto the overall and buffer
// service statuses.
func (s *Server) refreshHealth(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.rt.CheckHealth(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(BufferService, status)
}

func (s *Server) watchHealth(ctx context.Context) {
	interval := s.HealthInterval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	var last error
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			err := s.rt.CheckHealth(ctx)
			if (err == nil) != (last == nil) {
				if err != nil {
					s.logger.Warn("store unhealthy", logpkg.Err(err))
				} else {
					s.logger.Info("store healthy again")
				}
			}
			last = err
			s.refreshHealth(ctx)
		}
	}
}
