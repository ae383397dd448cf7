package extsort

import (
	"container/heap"
	"io"

	"github.com/pkg/errors"
)

type mergeItem[T any] struct {
	value  T
	record []byte
	source int
}

// mergeHeap orders items by value and then by index of source run, which keeps merge stable
type mergeHeap[T any] struct {
	items []mergeItem[T]
	less  func(a, b T) bool
}

func (h *mergeHeap[T]) Len() int { return len(h.items) }

func (h *mergeHeap[T]) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if h.less(a.value, b.value) {
		return true
	}
	if h.less(b.value, a.value) {
		return false
	}
	return a.source < b.source
}

func (h *mergeHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *mergeHeap[T]) Push(x any) { h.items = append(h.items, x.(mergeItem[T])) }

func (h *mergeHeap[T]) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	return item
}

// mergeRuns merges sorted runs into single sorted run. Input runs are removed
func (seq *Sequence[T]) mergeRuns(runs []*run, less func(a, b T) bool) (*run, error) {
	if len(runs) == 0 {
		rw, err := createRun(seq.cfg.Dir)
		if err != nil {
			return nil, err
		}
		return rw.finish()
	}
	for len(runs) > 1 {
		next := make([]*run, 0, len(runs)/seq.cfg.FanIn+1)
		for start := 0; start < len(runs); start += seq.cfg.FanIn {
			end := start + seq.cfg.FanIn
			if end > len(runs) {
				end = len(runs)
			}
			if end-start == 1 {
				next = append(next, runs[start])
				continue
			}
			merged, err := seq.mergeGroup(runs[start:end], less)
			if err != nil {
				removeRuns(runs[start:])
				removeRuns(next)
				return nil, err
			}
			if err := removeRuns(runs[start:end]); err != nil {
				removeRuns(runs[end:])
				removeRuns(append(next, merged))
				return nil, err
			}
			next = append(next, merged)
		}
		runs = next
	}
	return runs[0], nil
}

func (seq *Sequence[T]) mergeGroup(group []*run, less func(a, b T) bool) (*run, error) {
	readers := make([]*runReader, 0, len(group))
	defer func() {
		for _, rr := range readers {
			rr.close()
		}
	}()
	h := &mergeHeap[T]{
		items: make([]mergeItem[T], 0, len(group)),
		less:  less,
	}
	pull := func(source int) error {
		record, err := readers[source].next()
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
		heap.Push(h, mergeItem[T]{value: v, record: record, source: source})
		return nil
	}
	for _, r := range group {
		rr, err := openRun(r)
		if err != nil {
			return nil, err
		}
		readers = append(readers, rr)
	}
	for i := range readers {
		if err := pull(i); err != nil {
			return nil, err
		}
	}

	rw, err := createRun(seq.cfg.Dir)
	if err != nil {
		return nil, err
	}
	for h.Len() > 0 {
		item := heap.Pop(h).(mergeItem[T])
		// record buffer of the reader is reused on the next pull, so write it first
		if err := rw.write(item.record); err != nil {
			rw.abort()
			return nil, err
		}
		if err := pull(item.source); err != nil {
			rw.abort()
			return nil, err
		}
	}
	return rw.finish()
}
