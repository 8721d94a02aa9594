package client

import (
	"context"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	transports "github.com/rzbill/pubrt/internal/cmd/client/transports"
)

const defaultRequestTimeout = 10 * time.Second

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// APIURLFromEnv returns PUBRT_API_URL, then API_URL, or the local default.
func APIURLFromEnv() string {
	for _, k := range []string{"PUBRT_API_URL", "API_URL"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return "http://127.0.0.1:8000"
}

// grpcAddrFromEnv returns the gRPC server address from PUBRT_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("PUBRT_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:50051"
}

// dialGRPC returns a dialer for addr using insecure transport credentials.
func dialGRPC(addr string) func(ctx context.Context) (*grpc.ClientConn, error) {
	return func(ctx context.Context) (*grpc.ClientConn, error) {
		return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
}

// resolveAPI prefers an explicit --api flag over baseURL.
func resolveAPI(flag string, baseURL BaseURLFunc) string {
	if flag != "" {
		return flag
	}
	if baseURL != nil {
		return baseURL()
	}
	return APIURLFromEnv()
}

func newTransport(api string) transports.RecordsTransport {
	return transports.NewHTTPTransport(api, defaultRequestTimeout)
}
