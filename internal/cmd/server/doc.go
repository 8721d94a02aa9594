// Package serverrun exposes the Run entrypoint the CLI uses to start pubrt:
// it opens the runtime, serves HTTP and gRPC under one errgroup, and shuts
// both down when the context ends.
//
// Example:
//
//	cfg := config.Default()
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{Config: cfg})
package serverrun
