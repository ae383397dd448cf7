package osmextract

import (
	"testing"

	"github.com/LdDl/osmextract/extsort"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectSequence[T any](t *testing.T, seq *extsort.Sequence[T]) []T {
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

func TestNameTableIntern(t *testing.T) {
	table, err := newNameTable(extsort.Config{Dir: t.TempDir(), MemoryLimit: 2})
	require.NoError(t, err)
	defer table.Close()

	id, err := table.Intern("")
	require.NoError(t, err)
	assert.Equal(t, NoNameID, id)

	names := []string{"Main", "Second", "Main", "main", "Second", "Улица"}
	expected := []uint32{1, 2, 1, 3, 2, 4}
	for i, name := range names {
		id, err := table.Intern(name)
		require.NoError(t, err)
		assert.Equal(t, expected[i], id, "name '%s'", name)
	}
	assert.Equal(t, 5, table.Len())
	assert.Equal(t, len("Main")+len("Second")+len("main")+len("Улица"), table.BlobSize())

	offsets := collectSequence(t, table.offsets)
	require.Equal(t, []uint32{0, 0, 4, 10, 14, 24}, offsets)
	for i := 2; i < len(offsets); i++ {
		assert.Greater(t, offsets[i], offsets[i-1])
	}
	chars := collectSequence(t, table.chars)
	assert.Equal(t, []string{"", "Main", "Second", "main", "Улица"}, chars)
}

func TestNamesDataLookup(t *testing.T) {
	names := &NamesData{
		Offsets: []uint32{0, 0, 4, 10},
		Blob:    []byte("MainSecond"),
	}
	name, err := names.Name(NoNameID)
	require.NoError(t, err)
	assert.Equal(t, "", name)
	name, err = names.Name(2)
	require.NoError(t, err)
	assert.Equal(t, "Second", name)
	_, err = names.Name(3)
	assert.Error(t, err)
}
