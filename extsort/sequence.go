// Package extsort provides append-only, disk-backed sequences with bounded memory footprint.
//
// Sequence keeps at most MemoryLimit elements in memory. Everything above the limit is spilled
// into snappy-compressed run files in temporary directory. Only sequential access is supported:
// appending, full iteration and full external merge sort.
package extsort

import (
	"io"
	"os"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

const (
	// DefaultMemoryLimit is default number of elements kept in memory before spilling
	DefaultMemoryLimit = 1 << 20
	// DefaultFanIn is maximum number of runs merged at once
	DefaultFanIn = 64
)

// Config holds parameters of sequence
type Config struct {
	// Dir is directory for run files. Empty value means os.TempDir()
	Dir string
	// MemoryLimit is number of elements kept in memory
	MemoryLimit int
	// FanIn is maximum number of simultaneously opened runs during merge
	FanIn int
}

func (cfg Config) withDefaults() Config {
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = DefaultMemoryLimit
	}
	if cfg.FanIn < 2 {
		cfg.FanIn = DefaultFanIn
	}
	return cfg
}

// Sequence is append-only external-memory vector
type Sequence[T any] struct {
	mu      sync.Mutex
	codec   Codec[T]
	cfg     Config
	runs    []*run
	buf     []T
	length  int
	scratch []byte
}

// New returns empty sequence
func New[T any](codec Codec[T], cfg Config) *Sequence[T] {
	cfg = cfg.withDefaults()
	return &Sequence[T]{
		codec: codec,
		cfg:   cfg,
	}
}

// Len returns total number of elements
func (seq *Sequence[T]) Len() int {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	return seq.length
}

// Append adds single element to the end of sequence
func (seq *Sequence[T]) Append(v T) error {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	return seq.appendLocked(v)
}

// AppendBatch adds elements to the end of sequence under single lock acquisition
func (seq *Sequence[T]) AppendBatch(values []T) error {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	for i := range values {
		if err := seq.appendLocked(values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (seq *Sequence[T]) appendLocked(v T) error {
	seq.buf = append(seq.buf, v)
	seq.length++
	if len(seq.buf) >= seq.cfg.MemoryLimit {
		return seq.spillLocked()
	}
	return nil
}

// spillLocked writes in-memory tail as new run
func (seq *Sequence[T]) spillLocked() error {
	if len(seq.buf) == 0 {
		return nil
	}
	r, err := seq.writeRun(seq.buf)
	if err != nil {
		return err
	}
	seq.runs = append(seq.runs, r)
	seq.buf = seq.buf[:0]
	return nil
}

func (seq *Sequence[T]) writeRun(values []T) (*run, error) {
	rw, err := createRun(seq.cfg.Dir)
	if err != nil {
		return nil, err
	}
	for i := range values {
		seq.scratch = seq.codec.Append(seq.scratch[:0], values[i])
		if err := rw.write(seq.scratch); err != nil {
			rw.abort()
			return nil, err
		}
	}
	r, err := rw.finish()
	if err != nil {
		os.Remove(rw.file.Name())
		return nil, err
	}
	return r, nil
}

// Sort sorts sequence by given less function. Sorting is stable: equal elements keep insertion order.
//
// Elements are split into chunks of MemoryLimit size, every chunk is sorted in memory and
// spilled, then chunks are merged (several levels, when number of chunks exceeds FanIn)
func (seq *Sequence[T]) Sort(less func(a, b T) bool) error {
	seq.mu.Lock()
	defer seq.mu.Unlock()

	if len(seq.runs) == 0 {
		sort.SliceStable(seq.buf, func(i, j int) bool {
			return less(seq.buf[i], seq.buf[j])
		})
		return nil
	}

	sortedRuns := make([]*run, 0, len(seq.runs)+1)
	chunk := make([]T, 0, seq.cfg.MemoryLimit)
	flushChunk := func() error {
		if len(chunk) == 0 {
			return nil
		}
		sort.SliceStable(chunk, func(i, j int) bool {
			return less(chunk[i], chunk[j])
		})
		r, err := seq.writeRun(chunk)
		if err != nil {
			return err
		}
		sortedRuns = append(sortedRuns, r)
		chunk = chunk[:0]
		return nil
	}
	err := seq.scanLocked(func(v T) error {
		chunk = append(chunk, v)
		if len(chunk) >= seq.cfg.MemoryLimit {
			return flushChunk()
		}
		return nil
	})
	if err == nil {
		err = flushChunk()
	}
	if err != nil {
		removeRuns(sortedRuns)
		return errors.Wrap(err, "Can't prepare sorted runs")
	}

	merged, err := seq.mergeRuns(sortedRuns, less)
	if err != nil {
		return errors.Wrap(err, "Can't merge sorted runs")
	}
	if err := removeRuns(seq.runs); err != nil {
		removeRuns([]*run{merged})
		return err
	}
	seq.runs = []*run{merged}
	seq.buf = seq.buf[:0]
	return nil
}

// Dedup removes adjacent duplicates keeping the first element of every group.
// Call it on sorted sequence to get unique elements
func (seq *Sequence[T]) Dedup(equal func(a, b T) bool) error {
	seq.mu.Lock()
	defer seq.mu.Unlock()

	out := New[T](seq.codec, seq.cfg)
	var prev T
	first := true
	err := seq.scanLocked(func(v T) error {
		if !first && equal(prev, v) {
			return nil
		}
		first = false
		prev = v
		return out.appendLocked(v)
	})
	if err != nil {
		out.Close()
		return errors.Wrap(err, "Can't deduplicate sequence")
	}
	return seq.replaceLocked(out)
}

// ReplaceWith moves content of other sequence into this one. Other sequence becomes empty
func (seq *Sequence[T]) ReplaceWith(other *Sequence[T]) error {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()
	return seq.replaceLocked(other)
}

func (seq *Sequence[T]) replaceLocked(other *Sequence[T]) error {
	err := removeRuns(seq.runs)
	seq.runs = other.runs
	seq.buf = other.buf
	seq.length = other.length
	other.runs = nil
	other.buf = nil
	other.length = 0
	return err
}

// scanLocked calls fn for every element in insertion order
func (seq *Sequence[T]) scanLocked(fn func(v T) error) error {
	for _, r := range seq.runs {
		if err := seq.scanRun(r, fn); err != nil {
			return err
		}
	}
	for i := range seq.buf {
		if err := fn(seq.buf[i]); err != nil {
			return err
		}
	}
	return nil
}

func (seq *Sequence[T]) scanRun(r *run, fn func(v T) error) error {
	rr, err := openRun(r)
	if err != nil {
		return err
	}
	defer rr.close()
	for {
		record, err := rr.next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		v, err := seq.codec.Decode(record)
		if err != nil {
			return errors.Wrap(err, "Can't decode record")
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

// Reset drops every element
func (seq *Sequence[T]) Reset() error {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	err := removeRuns(seq.runs)
	seq.runs = nil
	seq.buf = nil
	seq.length = 0
	return err
}

// Close releases memory and removes run files
func (seq *Sequence[T]) Close() error {
	return seq.Reset()
}

func removeRuns(runs []*run) error {
	var result *multierror.Error
	for _, r := range runs {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
