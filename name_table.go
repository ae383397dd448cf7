package osmextract

import (
	"github.com/LdDl/osmextract/extsort"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// NoNameID is reserved identifier of empty name
const NoNameID = uint32(0)

// NameTable interns strings into contiguous blob plus offsets.
//
// Name with identifier i occupies bytes [offsets[i], offsets[i+1]) of blob.
// Identifier 0 is reserved for empty name and occupies [0, 0)
type NameTable struct {
	chars   *extsort.Sequence[string]
	offsets *extsort.Sequence[uint32]
	index   map[string]uint32
	size    uint32
	count   uint32
}

func newNameTable(cfg extsort.Config) (*NameTable, error) {
	table := &NameTable{
		chars:   extsort.New[string](extsort.StringCodec{}, cfg),
		offsets: extsort.New[uint32](extsort.Uint32Codec{}, cfg),
		index:   make(map[string]uint32),
	}
	// offsets of reserved empty name
	if err := table.offsets.AppendBatch([]uint32{0, 0}); err != nil {
		return nil, errors.Wrap(err, "Can't reserve empty name")
	}
	if err := table.chars.Append(""); err != nil {
		return nil, errors.Wrap(err, "Can't reserve empty name")
	}
	table.count = 1
	return table, nil
}

// Intern returns stable identifier of given name, assigning new one on the first occurrence.
// Comparison is byte-exact
func (table *NameTable) Intern(name string) (uint32, error) {
	if name == "" {
		return NoNameID, nil
	}
	if id, ok := table.index[name]; ok {
		return id, nil
	}
	id := table.count
	if err := table.chars.Append(name); err != nil {
		return 0, errors.Wrap(err, "Can't append name")
	}
	table.size += uint32(len(name))
	if err := table.offsets.Append(table.size); err != nil {
		return 0, errors.Wrap(err, "Can't append name offset")
	}
	table.index[name] = id
	table.count++
	return id, nil
}

// Len returns number of identifiers including reserved one
func (table *NameTable) Len() int {
	return int(table.count)
}

// BlobSize returns total length of interned names in bytes
func (table *NameTable) BlobSize() int {
	return int(table.size)
}

// Close removes staging data
func (table *NameTable) Close() error {
	var result *multierror.Error
	if err := table.chars.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := table.offsets.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
