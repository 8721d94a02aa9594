package id

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"
)

// ID is a 96-bit sortable identifier: [8 bytes ms_timestamp][4 bytes counter],
// both big-endian.
type ID [12]byte

// Zero is the empty ID.
var Zero ID

// ErrInvalid is returned by Parse for malformed input.
var ErrInvalid = errors.New("id: invalid encoding")

// encoding is lowercase Crockford-style base32 without padding; its alphabet
// is in ascending byte order so string comparison matches byte comparison.
var encoding = base32.NewEncoding("0123456789abcdefghjkmnpqrstvwxyz").WithPadding(base32.NoPadding)

// String returns the 20-character base32 form.
func (i ID) String() string { return encoding.EncodeToString(i[:]) }

// Time returns the millisecond timestamp embedded in the ID.
func (i ID) Time() time.Time {
	return time.UnixMilli(int64(binary.BigEndian.Uint64(i[0:8])))
}

// Compare returns -1, 0, 1 based on byte-wise comparison.
func (i ID) Compare(other ID) int {
	for idx := range i {
		if i[idx] < other[idx] {
			return -1
		}
		if i[idx] > other[idx] {
			return 1
		}
	}
	return 0
}

// Parse decodes the String form.
func Parse(s string) (ID, error) {
	var out ID
	b, err := encoding.DecodeString(s)
	if err != nil || len(b) != len(out) {
		return Zero, ErrInvalid
	}
	copy(out[:], b)
	return out, nil
}

// Generator produces strictly increasing IDs within a process.
type Generator struct {
	mu      sync.Mutex
	lastMs  int64
	counter uint32
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new ID. A regressing clock is pinned to the last seen
// millisecond; counter exhaustion within one millisecond waits for the next.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	switch {
	case ms > g.lastMs:
		g.counter = 0
	case g.counter == math.MaxUint32:
		for ms <= g.lastMs {
			time.Sleep(time.Millisecond / 8)
			ms = NowMs()
		}
		g.counter = 0
	default:
		g.counter++
	}

	g.lastMs = ms
	var id ID
	binary.BigEndian.PutUint64(id[0:8], uint64(ms))
	binary.BigEndian.PutUint32(id[8:12], g.counter)
	return id
}
