package extsort

import (
	"io"

	"github.com/pkg/errors"
)

// Iterator walks through sequence in its current order.
//
// Sequence must not be modified while iterator is open
type Iterator[T any] struct {
	seq     *Sequence[T]
	runs    []*run
	buf     []T
	runIdx  int
	bufIdx  int
	reader  *runReader
	current T
	err     error
	done    bool
}

// Iterate returns iterator positioned before the first element
func (seq *Sequence[T]) Iterate() *Iterator[T] {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	return &Iterator[T]{
		seq:  seq,
		runs: seq.runs,
		buf:  seq.buf,
	}
}

// Next advances iterator. It returns false when there are no elements left or error has occurred
func (it *Iterator[T]) Next() bool {
	if it.done {
		return false
	}
	for it.runIdx < len(it.runs) {
		if it.reader == nil {
			rr, err := openRun(it.runs[it.runIdx])
			if err != nil {
				return it.fail(err)
			}
			it.reader = rr
		}
		record, err := it.reader.next()
		if err == io.EOF {
			it.reader.close()
			it.reader = nil
			it.runIdx++
			continue
		}
		if err != nil {
			return it.fail(err)
		}
		v, err := it.seq.codec.Decode(record)
		if err != nil {
			return it.fail(errors.Wrap(err, "Can't decode record"))
		}
		it.current = v
		return true
	}
	if it.bufIdx < len(it.buf) {
		it.current = it.buf[it.bufIdx]
		it.bufIdx++
		return true
	}
	it.done = true
	return false
}

func (it *Iterator[T]) fail(err error) bool {
	it.err = err
	it.done = true
	return false
}

// Value returns current element
func (it *Iterator[T]) Value() T {
	return it.current
}

// Err returns first error met during iteration
func (it *Iterator[T]) Err() error {
	return it.err
}

// Close releases opened run file
func (it *Iterator[T]) Close() error {
	it.done = true
	if it.reader != nil {
		err := it.reader.close()
		it.reader = nil
		return err
	}
	return nil
}

// Cursor is iterator with one element lookahead. Handy for merge-joins of sorted sequences
type Cursor[T any] struct {
	it    *Iterator[T]
	valid bool
}

// NewCursor returns cursor positioned at the first element of sequence
func NewCursor[T any](seq *Sequence[T]) *Cursor[T] {
	c := &Cursor[T]{it: seq.Iterate()}
	c.valid = c.it.Next()
	return c
}

// Valid reports whether cursor points to an element
func (c *Cursor[T]) Valid() bool {
	return c.valid
}

// Value returns element under cursor
func (c *Cursor[T]) Value() T {
	return c.it.Value()
}

// Advance moves cursor to the next element
func (c *Cursor[T]) Advance() {
	c.valid = c.it.Next()
}

// Err returns iteration error
func (c *Cursor[T]) Err() error {
	return c.it.Err()
}

// Close releases resources
func (c *Cursor[T]) Close() error {
	return c.it.Close()
}
