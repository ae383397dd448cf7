package extsort

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// run is a spilled chunk of a sequence: snappy framed stream of uvarint-prefixed records
type run struct {
	path  string
	count int
}

type runWriter struct {
	file    *os.File
	snappyW *snappy.Writer
	scratch []byte
	count   int
}

func createRun(dir string) (*runWriter, error) {
	file, err := os.CreateTemp(dir, "extsort-*.run")
	if err != nil {
		return nil, errors.Wrap(err, "Can't create run file")
	}
	return &runWriter{
		file:    file,
		snappyW: snappy.NewBufferedWriter(file),
		scratch: make([]byte, 0, 64),
	}, nil
}

func (rw *runWriter) write(record []byte) error {
	rw.scratch = binary.AppendUvarint(rw.scratch[:0], uint64(len(record)))
	if _, err := rw.snappyW.Write(rw.scratch); err != nil {
		return errors.Wrap(err, "Can't write record length")
	}
	if _, err := rw.snappyW.Write(record); err != nil {
		return errors.Wrap(err, "Can't write record")
	}
	rw.count++
	return nil
}

// finish flushes and closes underlying file
func (rw *runWriter) finish() (*run, error) {
	if err := rw.snappyW.Close(); err != nil {
		rw.file.Close()
		return nil, errors.Wrap(err, "Can't flush run file")
	}
	if err := rw.file.Close(); err != nil {
		return nil, errors.Wrap(err, "Can't close run file")
	}
	return &run{path: rw.file.Name(), count: rw.count}, nil
}

// abort closes and removes unfinished run file
func (rw *runWriter) abort() {
	rw.file.Close()
	os.Remove(rw.file.Name())
}

type runReader struct {
	file   *os.File
	reader *bufio.Reader
	record []byte
}

func openRun(r *run) (*runReader, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open run file")
	}
	return &runReader{
		file:   file,
		reader: bufio.NewReader(snappy.NewReader(file)),
	}, nil
}

// next returns next raw record or io.EOF. Returned slice is valid until the next call
func (rr *runReader) next() ([]byte, error) {
	size, err := binary.ReadUvarint(rr.reader)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "Can't read record length")
	}
	if cap(rr.record) < int(size) {
		rr.record = make([]byte, size)
	}
	rr.record = rr.record[:size]
	if _, err := io.ReadFull(rr.reader, rr.record); err != nil {
		return nil, errors.Wrap(err, "Can't read record")
	}
	return rr.record, nil
}

func (rr *runReader) close() error {
	return rr.file.Close()
}
