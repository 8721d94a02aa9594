// Package httpserver serves pubrt's HTTP surface: POST /ingest, GET /stream
// (Server-Sent Events), GET /health, and GET /metrics, behind CORS and
// request-id middleware.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8000")
package httpserver
