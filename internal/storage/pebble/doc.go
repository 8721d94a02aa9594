// Package pebblestore provides a thin wrapper around Pebble with fsync
// policy, an in-memory filesystem option, batches, and metrics hooks. It
// backs the pebble buffer backend.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{InMemory: true, Fsync: pebblestore.FsyncModeNever})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	b := db.NewBatch()
//	_ = b.Set([]byte("k"), []byte("v"), nil)
//	_ = db.CommitBatch(context.Background(), b)
//	b.Close()
//
//	v, _ := db.Get([]byte("k"))
package pebblestore
