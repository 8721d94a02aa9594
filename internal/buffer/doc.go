// Package buffer holds the append-only record store shared by ingest and
// streaming.
//
// A Store assigns each appended record the next position, starting at 0.
// Positions are permanent: nothing is ever removed or rewritten, and Len
// only grows. Readers call Wait to block until a record beyond a known
// position is published.
//
// Two backends exist. The memory backend keeps records in a slice. The
// pebble backend keeps them in a Pebble database opened on an in-memory
// filesystem, or in a scratch directory wiped at open. Neither keeps
// history across restarts.
package buffer
