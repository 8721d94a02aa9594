// Package id provides short, sortable identifiers for stream sessions.
//
// An ID is 12 bytes: an 8-byte millisecond timestamp followed by a 4-byte
// counter. Its string form is 20 characters of base32 whose alphabet keeps
// lexical order, so sorting log lines by session id also sorts them by
// connect time.
//
// The Generator is safe for concurrent use. If the clock regresses it pins
// to the last seen millisecond; if the counter is exhausted within one
// millisecond it waits for the next.
//
// Usage
//
//	g := id.NewGenerator()
//	sid := g.Next()
//	_ = sid.String() // e.g. "000h1d2x8k0000000000"
package id
