package osmextract

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// NamesData is names table read from disk
type NamesData struct {
	Offsets []uint32
	Blob    []byte
}

// Name returns name by its identifier
func (names *NamesData) Name(id uint32) (string, error) {
	if int(id)+1 >= len(names.Offsets) {
		return "", errors.Errorf("name id %d is out of range", id)
	}
	start, end := names.Offsets[id], names.Offsets[id+1]
	if start > end || int(end) > len(names.Blob) {
		return "", errors.Errorf("broken offsets for name id %d", id)
	}
	return string(names.Blob[start:end]), nil
}

func readCount(reader io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(reader, buf[:]); err != nil {
		return 0, errors.Wrap(err, "Can't read count")
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readRecords[T any](reader io.Reader, size int, decode func(src []byte) (T, error)) ([]T, error) {
	count, err := readCount(reader)
	if err != nil {
		return nil, err
	}
	result := make([]T, 0, count)
	record := make([]byte, size)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(reader, record); err != nil {
			return nil, errors.Wrapf(err, "Can't read record #%d", i)
		}
		v, err := decode(record)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't decode record #%d", i)
		}
		result = append(result, v)
	}
	return result, nil
}

func readFile[T any](fname string, read func(reader io.Reader) (T, error)) (T, error) {
	file, err := os.Open(fname)
	if err != nil {
		var empty T
		return empty, errors.Wrap(err, "Can't open file")
	}
	defer file.Close()
	return read(bufio.NewReader(file))
}

// ReadNodes reads nodes file. Position of node is its internal id
func ReadNodes(reader io.Reader) ([]NodeRecord, error) {
	return readRecords(reader, nodeRecordSize, decodeNodeRecord)
}

// ReadEdges reads edges file
func ReadEdges(reader io.Reader) ([]Edge, error) {
	return readRecords(reader, edgeSize, decodeEdge)
}

// ReadRestrictions reads restrictions file
func ReadRestrictions(reader io.Reader) ([]Restriction, error) {
	return readRecords(reader, restrictionSize, decodeRestriction)
}

// ReadNames reads names file
func ReadNames(reader io.Reader) (*NamesData, error) {
	offsets, err := readRecords(reader, 4, func(src []byte) (uint32, error) {
		return binary.LittleEndian.Uint32(src), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't read offsets")
	}
	size, err := readCount(reader)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read blob size")
	}
	blob := make([]byte, size)
	if _, err := io.ReadFull(reader, blob); err != nil {
		return nil, errors.Wrap(err, "Can't read blob")
	}
	return &NamesData{Offsets: offsets, Blob: blob}, nil
}

// ReadNodesFile reads nodes from file
func ReadNodesFile(fname string) ([]NodeRecord, error) {
	return readFile(fname, ReadNodes)
}

// ReadEdgesFile reads edges from file
func ReadEdgesFile(fname string) ([]Edge, error) {
	return readFile(fname, ReadEdges)
}

// ReadRestrictionsFile reads restrictions from file
func ReadRestrictionsFile(fname string) ([]Restriction, error) {
	return readFile(fname, ReadRestrictions)
}

// ReadNamesFile reads names table from file
func ReadNamesFile(fname string) (*NamesData, error) {
	return readFile(fname, ReadNames)
}
