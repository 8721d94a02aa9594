// Package grpcserver hosts pubrt's gRPC endpoint. It serves the standard
// grpc.health.v1 service, whose status follows the buffer store, plus
// server reflection.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	s := grpcserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
