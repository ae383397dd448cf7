package extsort

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	key   uint32
	order uint32
}

type pairCodec struct{}

func (pairCodec) Append(dst []byte, v pair) []byte {
	dst = Uint32Codec{}.Append(dst, v.key)
	return Uint32Codec{}.Append(dst, v.order)
}

func (pairCodec) Decode(src []byte) (pair, error) {
	if len(src) < 8 {
		return pair{}, ErrShortRecord
	}
	key, _ := Uint32Codec{}.Decode(src[:4])
	order, _ := Uint32Codec{}.Decode(src[4:])
	return pair{key, order}, nil
}

func collect[T any](t *testing.T, seq *Sequence[T]) []T {
	t.Helper()
	it := seq.Iterate()
	defer it.Close()
	result := []T{}
	for it.Next() {
		result = append(result, it.Value())
	}
	require.NoError(t, it.Err())
	return result
}

func runFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "extsort-*.run"))
	require.NoError(t, err)
	return files
}

func TestSequenceAppendIterate(t *testing.T) {
	dir := t.TempDir()
	seq := New[int64](Int64Codec{}, Config{Dir: dir, MemoryLimit: 3})
	defer seq.Close()

	expected := []int64{}
	for i := int64(0); i < 10; i++ {
		require.NoError(t, seq.Append(i*7-20))
		expected = append(expected, i*7-20)
	}
	assert.Equal(t, 10, seq.Len())
	assert.Len(t, runFiles(t, dir), 3)
	assert.Equal(t, expected, collect(t, seq))
}

func TestSequenceExternalSortIsStable(t *testing.T) {
	dir := t.TempDir()
	seq := New[pair](pairCodec{}, Config{Dir: dir, MemoryLimit: 7, FanIn: 2})
	defer seq.Close()

	rnd := rand.New(rand.NewSource(42))
	expected := make([]pair, 0, 500)
	for i := 0; i < 500; i++ {
		p := pair{key: uint32(rnd.Intn(40)), order: uint32(i)}
		expected = append(expected, p)
		require.NoError(t, seq.Append(p))
	}
	sort.SliceStable(expected, func(i, j int) bool {
		return expected[i].key < expected[j].key
	})

	require.NoError(t, seq.Sort(func(a, b pair) bool {
		return a.key < b.key
	}))
	assert.Equal(t, 500, seq.Len())
	assert.Equal(t, expected, collect(t, seq))
	// every intermediate run has to be removed
	assert.Len(t, runFiles(t, dir), 1)

	// sorting again by other key must work on already merged run
	require.NoError(t, seq.Sort(func(a, b pair) bool {
		return a.order > b.order
	}))
	sorted := collect(t, seq)
	require.Len(t, sorted, 500)
	for i := range sorted {
		assert.Equal(t, uint32(499-i), sorted[i].order)
	}
}

func TestSequenceSortInMemory(t *testing.T) {
	seq := New[uint32](Uint32Codec{}, Config{Dir: t.TempDir()})
	defer seq.Close()
	require.NoError(t, seq.AppendBatch([]uint32{5, 3, 9, 1}))
	require.NoError(t, seq.Sort(func(a, b uint32) bool { return a < b }))
	assert.Equal(t, []uint32{1, 3, 5, 9}, collect(t, seq))
}

func TestSequenceDedup(t *testing.T) {
	seq := New[uint32](Uint32Codec{}, Config{Dir: t.TempDir(), MemoryLimit: 4})
	defer seq.Close()
	require.NoError(t, seq.AppendBatch([]uint32{4, 1, 4, 4, 2, 1, 9, 2, 2, 9, 9}))
	require.NoError(t, seq.Sort(func(a, b uint32) bool { return a < b }))
	require.NoError(t, seq.Dedup(func(a, b uint32) bool { return a == b }))
	assert.Equal(t, []uint32{1, 2, 4, 9}, collect(t, seq))
	assert.Equal(t, 4, seq.Len())
}

func TestSequenceStrings(t *testing.T) {
	seq := New[string](StringCodec{}, Config{Dir: t.TempDir(), MemoryLimit: 2})
	defer seq.Close()
	require.NoError(t, seq.AppendBatch([]string{"Main Street", "", "Baker Street", "Abbey Road"}))
	require.NoError(t, seq.Sort(func(a, b string) bool { return a < b }))
	assert.Equal(t, []string{"", "Abbey Road", "Baker Street", "Main Street"}, collect(t, seq))
}

func TestSequenceReplaceAndClose(t *testing.T) {
	dir := t.TempDir()
	seq := New[uint32](Uint32Codec{}, Config{Dir: dir, MemoryLimit: 2})
	other := New[uint32](Uint32Codec{}, Config{Dir: dir, MemoryLimit: 2})
	require.NoError(t, seq.AppendBatch([]uint32{1, 2, 3}))
	require.NoError(t, other.AppendBatch([]uint32{7, 8, 9, 10}))

	require.NoError(t, seq.ReplaceWith(other))
	assert.Equal(t, []uint32{7, 8, 9, 10}, collect(t, seq))
	assert.Equal(t, 0, other.Len())

	require.NoError(t, seq.Close())
	require.NoError(t, other.Close())
	assert.Empty(t, runFiles(t, dir))
}

func TestBufferConcurrentFlush(t *testing.T) {
	seq := New[uint32](Uint32Codec{}, Config{Dir: t.TempDir(), MemoryLimit: 50})
	defer seq.Close()

	const workers = 8
	const perWorker = 1000
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			buf := NewBuffer(seq, 16)
			for i := 0; i < perWorker; i++ {
				if err := buf.Add(uint32(w*perWorker + i)); err != nil {
					t.Error(err)
					return
				}
			}
			if err := buf.Flush(); err != nil {
				t.Error(err)
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, workers*perWorker, seq.Len())
	require.NoError(t, seq.Sort(func(a, b uint32) bool { return a < b }))
	values := collect(t, seq)
	for i := range values {
		if values[i] != uint32(i) {
			t.Fatalf("Value at position %d must be %d, but got %d", i, i, values[i])
		}
	}
}

func TestCursor(t *testing.T) {
	seq := New[uint32](Uint32Codec{}, Config{Dir: t.TempDir(), MemoryLimit: 2})
	defer seq.Close()
	require.NoError(t, seq.AppendBatch([]uint32{10, 20, 30}))

	cursor := NewCursor(seq)
	defer cursor.Close()
	got := []uint32{}
	for cursor.Valid() {
		got = append(got, cursor.Value())
		cursor.Advance()
	}
	require.NoError(t, cursor.Err())
	assert.Equal(t, []uint32{10, 20, 30}, got)
}

func TestCursorMissingRunFile(t *testing.T) {
	dir := t.TempDir()
	seq := New[uint32](Uint32Codec{}, Config{Dir: dir, MemoryLimit: 1})
	require.NoError(t, seq.Append(1))
	for _, f := range runFiles(t, dir) {
		require.NoError(t, os.Remove(f))
	}
	cursor := NewCursor(seq)
	assert.False(t, cursor.Valid())
	assert.Error(t, cursor.Err())
	cursor.Close()
	assert.NoError(t, seq.Close())
}
