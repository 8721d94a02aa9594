// Package runtime wires config, the buffer store, logging, and metrics
// into a single pubrt instance. Transports receive a *Runtime and pull the
// shared store from it; nothing is held in package globals.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	_, _ = rt.Store().Append(context.Background(), buffer.Record(`{"a":1}`))
package runtime
