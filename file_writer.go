package osmextract

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

// RecordSink is append-only byte sink for output files
type RecordSink interface {
	// WriteCount writes number of records which follow
	WriteCount(count uint64) error
	// WriteRecord writes single fixed-size record
	WriteRecord(record []byte) error
	// WriteBlob writes raw bytes
	WriteBlob(blob []byte) error
}

// FileWriter is RecordSink backed by file. Data goes to temporary file which
// replaces target file on Commit only, so no partial output is left behind
type FileWriter struct {
	path    string
	tmpPath string
	file    *os.File
	writer  *bufio.Writer
	scratch [8]byte
}

// NewFileWriter creates temporary file next to the target one
func NewFileWriter(path string) (*FileWriter, error) {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create file")
	}
	return &FileWriter{
		path:    path,
		tmpPath: tmpPath,
		file:    file,
		writer:  bufio.NewWriterSize(file, 1<<16),
	}, nil
}

func (fw *FileWriter) WriteCount(count uint64) error {
	binary.LittleEndian.PutUint64(fw.scratch[:], count)
	_, err := fw.writer.Write(fw.scratch[:])
	return errors.Wrap(err, "Can't write count")
}

func (fw *FileWriter) WriteRecord(record []byte) error {
	_, err := fw.writer.Write(record)
	return errors.Wrap(err, "Can't write record")
}

func (fw *FileWriter) WriteBlob(blob []byte) error {
	_, err := fw.writer.Write(blob)
	return errors.Wrap(err, "Can't write blob")
}

// Commit flushes data and moves temporary file to the target path
func (fw *FileWriter) Commit() error {
	if err := fw.writer.Flush(); err != nil {
		fw.Abort()
		return errors.Wrap(err, "Can't flush file")
	}
	if err := fw.file.Sync(); err != nil {
		fw.Abort()
		return errors.Wrap(err, "Can't sync file")
	}
	if err := fw.file.Close(); err != nil {
		os.Remove(fw.tmpPath)
		return errors.Wrap(err, "Can't close file")
	}
	if err := os.Rename(fw.tmpPath, fw.path); err != nil {
		os.Remove(fw.tmpPath)
		return errors.Wrap(err, "Can't rename file")
	}
	return nil
}

// Abort drops temporary file
func (fw *FileWriter) Abort() error {
	fw.file.Close()
	if err := os.Remove(fw.tmpPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "Can't remove temporary file")
	}
	return nil
}
