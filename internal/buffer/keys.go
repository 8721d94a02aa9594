package buffer

import "encoding/binary"

// Record keys are "r/" followed by the big-endian position, so Pebble's
// byte order matches append order.
var recordPrefix = []byte("r/")

func recordKey(pos int) []byte {
	k := make([]byte, 0, len(recordPrefix)+8)
	k = append(k, recordPrefix...)
	return binary.BigEndian.AppendUint64(k, uint64(pos))
}
