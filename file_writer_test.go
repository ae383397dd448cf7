package osmextract

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriterRoundTrip(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "map.edges")
	edges := []Edge{
		{Source: 0, Target: 1, NameID: 3, Weight: 120, Distance: 12.5, Class: LINK_PRIMARY, Flags: EdgeForward | EdgeSplit},
		{Source: 1, Target: 0, NameID: 3, Weight: 121, Distance: 12.5, Class: LINK_PRIMARY, Flags: EdgeSplit | EdgeRoundabout},
	}
	fw, err := NewFileWriter(fname)
	require.NoError(t, err)
	require.NoError(t, fw.WriteCount(uint64(len(edges))))
	for _, edge := range edges {
		require.NoError(t, fw.WriteRecord(appendEdge(nil, edge)))
	}
	// nothing is visible before commit
	_, err = os.Stat(fname)
	require.True(t, os.IsNotExist(err))
	require.NoError(t, fw.Commit())

	info, err := os.Stat(fname)
	require.NoError(t, err)
	assert.Equal(t, int64(8+len(edges)*edgeSize), info.Size())
	read, err := ReadEdgesFile(fname)
	require.NoError(t, err)
	assert.Equal(t, edges, read)
	_, err = os.Stat(fname + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileWriterAbort(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "map.nodes")
	fw, err := NewFileWriter(fname)
	require.NoError(t, err)
	require.NoError(t, fw.WriteCount(1))
	require.NoError(t, fw.Abort())
	_, err = os.Stat(fname)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fname + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRecordLayouts(t *testing.T) {
	node := NodeRecord{ID: 123456789, Coordinate: NewCoordinate(-1.5, 2.25), Barrier: true}
	encoded := appendNodeRecord(nil, node)
	require.Len(t, encoded, nodeRecordSize)
	assert.Equal(t, []byte{0xa0, 0x1c, 0xe9, 0xff}, encoded[0:4])
	assert.Equal(t, nodeFlagBarrier, encoded[16])

	restriction := Restriction{From: 1, Via: 2, To: 3, IsOnly: true, Conditional: true, ConditionID: 7}
	encoded = appendRestriction(nil, restriction)
	require.Len(t, encoded, restrictionSize)
	assert.Equal(t, restrictionFlagOnly|restrictionFlagConditional, encoded[12])
	decoded, err := decodeRestriction(encoded)
	require.NoError(t, err)
	assert.Equal(t, restriction, decoded)

	_, err = ReadNodes(bytes.NewReader([]byte{1, 0, 0, 0, 0, 0, 0, 0, 1, 2}))
	assert.Error(t, err)
}

func TestPrepareDataNoPartialOutput(t *testing.T) {
	containers := newTestContainers(t)
	collector := newTestCollector(t, containers)
	addNodes(t, collector, map[osm.NodeID][2]float64{nodeA: {1, 1}, nodeB: {2, 2}})
	require.NoError(t, collector.AddWay(Way{ID: 1, Nodes: []osm.NodeID{nodeA, nodeB}, Tags: highwayTags}))

	dir := t.TempDir()
	output := NewOutputFiles(filepath.Join(dir, "map"))
	output.Names = filepath.Join(dir, "missing", "map.names")
	err := containers.PrepareData(testProfile, output)
	require.Error(t, err)
	for _, fname := range []string{output.Nodes, output.Edges, output.Restrictions, output.Names} {
		_, err := os.Stat(fname)
		assert.True(t, os.IsNotExist(err), "file '%s' must not exist", fname)
	}
	require.ErrorIs(t, containers.PrepareData(testProfile, NewOutputFiles(filepath.Join(dir, "map"))), ErrAlreadyPrepared)
}

func TestPrepareDataEmpty(t *testing.T) {
	containers := newTestContainers(t)
	result := prepareAndRead(t, containers, testProfile)
	assert.Empty(t, result.nodes)
	assert.Empty(t, result.edges)
	assert.Empty(t, result.restrictions)
	assert.Equal(t, []uint32{0, 0}, result.names.Offsets)
	assert.Empty(t, result.names.Blob)
}
