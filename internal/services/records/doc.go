// Package recordsvc implements ingest and fan-out on top of the shared
// buffer store. Transports hand it raw request bodies and stream sinks; it
// owns validation, append, and the per-connection replay-then-tail loop.
//
// Example:
//
//	svc := recordsvc.New(rt)
//	res, _ := svc.Ingest(ctx, []byte(`{"Hour":1}`))
//	sess, _ := svc.Open(recordsvc.StreamOptions{})
//	_ = sess.Run(mySink)
package recordsvc

// Delivery notes
//
//   - A session starts at position 0 on every connection and replays the
//     whole buffer before tailing. There is no resume token.
//   - Catch-up sends records back to back and flushes every flushEvery
//     events; the sink is always flushed before the session goes idle.
//   - Idle sessions wake on the store's append notification, or after the
//     poll interval at the latest, and re-check the length.
//   - A filtered session skips records its expression rejects but keeps
//     store order for the ones it sends.
