package extsort

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Codec converts single record of type T to bytes and back.
//
// Records are framed by the sequence itself, so codec may produce records of any (even variable) size
type Codec[T any] interface {
	// Append encodes v and appends it to dst
	Append(dst []byte, v T) []byte
	// Decode restores value from exactly one encoded record
	Decode(src []byte) (T, error)
}

var (
	// ErrShortRecord is returned when encoded record is smaller than codec expects
	ErrShortRecord = errors.New("short record")
)

// Uint32Codec encodes uint32 as 4 little-endian bytes
type Uint32Codec struct{}

func (Uint32Codec) Append(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

func (Uint32Codec) Decode(src []byte) (uint32, error) {
	if len(src) < 4 {
		return 0, ErrShortRecord
	}
	return binary.LittleEndian.Uint32(src), nil
}

// Int64Codec encodes int64 as 8 little-endian bytes
type Int64Codec struct{}

func (Int64Codec) Append(dst []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(dst, uint64(v))
}

func (Int64Codec) Decode(src []byte) (int64, error) {
	if len(src) < 8 {
		return 0, ErrShortRecord
	}
	return int64(binary.LittleEndian.Uint64(src)), nil
}

// StringCodec stores raw string bytes
type StringCodec struct{}

func (StringCodec) Append(dst []byte, v string) []byte {
	return append(dst, v...)
}

func (StringCodec) Decode(src []byte) (string, error) {
	return string(src), nil
}
