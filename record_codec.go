package osmextract

import (
	"encoding/binary"

	"github.com/LdDl/osmextract/extsort"
)

// appendString writes uvarint length followed by string bytes
func appendString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// readString reads string written by appendString and returns the rest of the buffer
func readString(src []byte) (string, []byte, error) {
	size, n := binary.Uvarint(src)
	if n <= 0 || uint64(len(src)-n) < size {
		return "", nil, extsort.ErrShortRecord
	}
	src = src[n:]
	return string(src[:size]), src[size:], nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
