package buffer

import (
	"encoding/binary"
	"hash/crc32"
)

// Stored value layout: uvarint(len(header)) | header | payload | crc32c(header|payload).
// The header is the ingest time as big-endian unix milliseconds.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

const headerLen = 8

func encodeValue(ingestedMs int64, payload []byte) []byte {
	var header [headerLen]byte
	binary.BigEndian.PutUint64(header[:], uint64(ingestedMs))

	out := make([]byte, 0, binary.MaxVarintLen64+headerLen+len(payload)+4)
	out = binary.AppendUvarint(out, headerLen)
	out = append(out, header[:]...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header[:])
	crc = crc32.Update(crc, castagnoli, payload)
	return binary.BigEndian.AppendUint32(out, crc)
}

func decodeValue(b []byte) (ingestedMs int64, payload []byte, ok bool) {
	if len(b) < 1+4 {
		return 0, nil, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || hlen != headerLen {
		return 0, nil, false
	}
	if n+int(hlen)+4 > len(b) {
		return 0, nil, false
	}
	header := b[n : n+int(hlen)]
	payload = b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return 0, nil, false
	}
	return int64(binary.BigEndian.Uint64(header)), append([]byte(nil), payload...), true
}
