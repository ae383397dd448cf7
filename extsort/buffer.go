package extsort

// Buffer is private per-worker buffer in front of shared sequence.
//
// Buffer is not safe for concurrent use: every producer owns its own buffer, and
// only Flush touches shared sequence (under its lock)
type Buffer[T any] struct {
	seq       *Sequence[T]
	items     []T
	threshold int
}

// NewBuffer returns buffer which flushes into seq after threshold elements
func NewBuffer[T any](seq *Sequence[T], threshold int) *Buffer[T] {
	if threshold <= 0 {
		threshold = 1
	}
	return &Buffer[T]{
		seq:       seq,
		items:     make([]T, 0, threshold),
		threshold: threshold,
	}
}

// Add appends element to buffer and flushes it when threshold is reached
func (buf *Buffer[T]) Add(v T) error {
	buf.items = append(buf.items, v)
	if len(buf.items) >= buf.threshold {
		return buf.Flush()
	}
	return nil
}

// Len returns number of buffered (not flushed yet) elements
func (buf *Buffer[T]) Len() int {
	return len(buf.items)
}

// Flush moves buffered elements into the shared sequence
func (buf *Buffer[T]) Flush() error {
	if len(buf.items) == 0 {
		return nil
	}
	err := buf.seq.AppendBatch(buf.items)
	buf.items = buf.items[:0]
	return err
}
