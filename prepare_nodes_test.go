package osmextract

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nodeA = osm.NodeID(10)
	nodeB = osm.NodeID(20)
	nodeC = osm.NodeID(30)
	nodeD = osm.NodeID(40)
)

func TestPrepareNodesCompaction(t *testing.T) {
	containers := newTestContainers(t)
	collector := newTestCollector(t, containers)
	// D is never referenced by any way
	addNodes(t, collector, map[osm.NodeID][2]float64{
		nodeD: {4, 4},
		nodeC: {3, 3},
		nodeA: {1, 1},
		nodeB: {2, 2},
	})
	require.NoError(t, collector.AddWay(Way{ID: 1, Nodes: []osm.NodeID{nodeA, nodeB}, Tags: highwayTags, Oneway: true}))
	require.NoError(t, collector.AddWay(Way{ID: 2, Nodes: []osm.NodeID{nodeB, nodeC}, Tags: highwayTags, Oneway: true}))

	result := prepareAndRead(t, containers, testProfile)
	require.Len(t, result.nodes, 3)
	assert.Equal(t, nodeA, result.nodes[0].ID)
	assert.Equal(t, nodeB, result.nodes[1].ID)
	assert.Equal(t, nodeC, result.nodes[2].ID)
	assert.Equal(t, NewCoordinate(1, 1), result.nodes[0].Coordinate)
	assert.Equal(t, NewCoordinate(2, 2), result.nodes[1].Coordinate)
	assert.Equal(t, NewCoordinate(3, 3), result.nodes[2].Coordinate)

	require.Len(t, result.edges, 2)
	assert.Equal(t, NodeID(0), result.edges[0].Source)
	assert.Equal(t, NodeID(1), result.edges[0].Target)
	assert.Equal(t, NodeID(1), result.edges[1].Source)
	assert.Equal(t, NodeID(2), result.edges[1].Target)

	stats := containers.Stats()
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, uint32(3), containers.MaxInternalNodeID())
	assert.Equal(t, 0, stats.DanglingNodes)
	assert.Equal(t, 0, stats.DanglingEdges)
}

func TestPrepareNodesFlagsAndDuplicates(t *testing.T) {
	containers := newTestContainers(t)
	first := newTestCollector(t, containers)
	second := newTestCollector(t, containers)
	addNodes(t, first, map[osm.NodeID][2]float64{nodeA: {1, 1}, nodeB: {2, 2}, nodeC: {3, 3}})
	// duplicated record of A is flushed later, so the first one wins
	require.NoError(t, first.Flush())
	require.NoError(t, second.AddNode(NodeRecord{ID: nodeA, Coordinate: NewCoordinate(9, 9)}))

	require.NoError(t, second.AddBarrier(nodeB))
	require.NoError(t, second.AddBarrier(nodeB))
	require.NoError(t, first.AddTrafficSignal(nodeC))
	// flags of unreferenced nodes are ignored
	require.NoError(t, first.AddBarrier(nodeD))
	require.NoError(t, first.AddWay(Way{ID: 1, Nodes: []osm.NodeID{nodeA, nodeB, nodeC}, Tags: highwayTags}))

	result := prepareAndRead(t, containers, testProfile)
	require.Len(t, result.nodes, 3)
	assert.Equal(t, NodeRecord{ID: nodeA, Coordinate: NewCoordinate(1, 1)}, result.nodes[0])
	assert.Equal(t, NodeRecord{ID: nodeB, Coordinate: NewCoordinate(2, 2), Barrier: true}, result.nodes[1])
	assert.Equal(t, NodeRecord{ID: nodeC, Coordinate: NewCoordinate(3, 3), TrafficSignal: true}, result.nodes[2])
}

func TestPrepareNodesDanglingReferences(t *testing.T) {
	containers := newTestContainers(t)
	collector := newTestCollector(t, containers)
	addNodes(t, collector, map[osm.NodeID][2]float64{nodeA: {1, 1}, nodeB: {2, 2}})
	// C is outside of the extract
	require.NoError(t, collector.AddWay(Way{ID: 1, Nodes: []osm.NodeID{nodeA, nodeB, nodeC}, Tags: highwayTags, Oneway: true}))

	result := prepareAndRead(t, containers, testProfile)
	require.Len(t, result.nodes, 2)
	require.Len(t, result.edges, 1)
	assert.Equal(t, NodeID(0), result.edges[0].Source)
	assert.Equal(t, NodeID(1), result.edges[0].Target)

	stats := containers.Stats()
	assert.Equal(t, 1, stats.DanglingNodes)
	assert.Equal(t, 1, stats.DanglingEdges)
	assert.Equal(t, 1, stats.Edges)
}
