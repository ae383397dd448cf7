package osmextract

import (
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/paulmach/osm"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProfile = ProfileFunc(func(wayID osm.WayID, name string, tags osm.Tags) (WayAttributes, bool) {
	if tags.Find("highway") == "" {
		return WayAttributes{}, false
	}
	return WayAttributes{ForwardSpeed: 36, BackwardSpeed: 36, Class: LINK_RESIDENTIAL}, true
})

var highwayTags = osm.Tags{{Key: "highway", Value: "residential"}}

// newTestContainers returns containers which spill almost every append to disk
func newTestContainers(t *testing.T, options ...Option) *ExtractionContainers {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	options = append([]Option{
		WithTempDir(t.TempDir()),
		WithMemoryLimit(2),
		WithBufferSize(2),
		WithLogger(logger),
	}, options...)
	containers, err := NewExtractionContainers(options...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, containers.Close())
	})
	return containers
}

func newTestCollector(t *testing.T, containers *ExtractionContainers) *Collector {
	t.Helper()
	collector, err := containers.NewCollector()
	require.NoError(t, err)
	return collector
}

func addNodes(t *testing.T, collector *Collector, nodes map[osm.NodeID][2]float64) {
	t.Helper()
	for id, lonLat := range nodes {
		require.NoError(t, collector.AddNode(NodeRecord{ID: id, Coordinate: NewCoordinate(lonLat[0], lonLat[1])}))
	}
}

type testOutput struct {
	nodes        []NodeRecord
	edges        []Edge
	restrictions []Restriction
	names        *NamesData
}

func prepareAndRead(t *testing.T, containers *ExtractionContainers, profile WayProfile) testOutput {
	t.Helper()
	output := NewOutputFiles(filepath.Join(t.TempDir(), "map"))
	require.NoError(t, containers.PrepareData(profile, output))
	return readOutput(t, output)
}

func readOutput(t *testing.T, output OutputFiles) testOutput {
	t.Helper()
	var result testOutput
	var err error
	result.nodes, err = ReadNodesFile(output.Nodes)
	require.NoError(t, err)
	result.edges, err = ReadEdgesFile(output.Edges)
	require.NoError(t, err)
	result.restrictions, err = ReadRestrictionsFile(output.Restrictions)
	require.NoError(t, err)
	result.names, err = ReadNamesFile(output.Names)
	require.NoError(t, err)
	return result
}

func TestPrepareDataTwice(t *testing.T) {
	containers := newTestContainers(t)
	collector := newTestCollector(t, containers)
	addNodes(t, collector, map[osm.NodeID][2]float64{1: {1, 1}, 2: {2, 2}})
	require.NoError(t, collector.AddWay(Way{ID: 1, Nodes: []osm.NodeID{1, 2}, Tags: highwayTags}))

	output := NewOutputFiles(filepath.Join(t.TempDir(), "map"))
	require.NoError(t, containers.PrepareData(testProfile, output))
	err := containers.PrepareData(testProfile, output)
	require.ErrorIs(t, err, ErrAlreadyPrepared)

	// files of the first run stay intact
	result := readOutput(t, output)
	assert.Len(t, result.nodes, 2)
	assert.Len(t, result.edges, 2)
}

func TestStageOrder(t *testing.T) {
	containers := newTestContainers(t)

	require.ErrorIs(t, containers.PrepareNodes(), ErrStageOrder)
	require.ErrorIs(t, containers.PrepareEdges(testProfile), ErrStageOrder)
	require.ErrorIs(t, containers.PrepareRestrictions(), ErrStageOrder)
	require.ErrorIs(t, containers.WriteNodes(nil), ErrStageOrder)

	require.NoError(t, containers.FlushVectors())
	require.ErrorIs(t, containers.FlushVectors(), ErrStageOrder)
	require.ErrorIs(t, containers.PrepareRestrictions(), ErrStageOrder)
	require.NoError(t, containers.PrepareNodes())
	require.ErrorIs(t, containers.PrepareNodes(), ErrStageOrder)
	require.NoError(t, containers.PrepareEdges(testProfile))
	require.NoError(t, containers.PrepareRestrictions())

	// stages have been run by hand, so PrepareData is not allowed anymore
	err := containers.PrepareData(testProfile, NewOutputFiles(filepath.Join(t.TempDir(), "map")))
	require.ErrorIs(t, err, ErrAlreadyPrepared)
}

func TestSealedAfterFlush(t *testing.T) {
	containers := newTestContainers(t)
	collector := newTestCollector(t, containers)
	require.NoError(t, containers.FlushVectors())

	require.ErrorIs(t, collector.AddNode(NodeRecord{ID: 1}), ErrSealed)
	require.ErrorIs(t, collector.AddWay(Way{ID: 1, Nodes: []osm.NodeID{1, 2}}), ErrSealed)
	require.ErrorIs(t, collector.AddRestriction(RawRestriction{}), ErrSealed)
	require.ErrorIs(t, collector.AddBarrier(1), ErrSealed)
	require.ErrorIs(t, collector.AddTrafficSignal(1), ErrSealed)
	require.ErrorIs(t, collector.Flush(), ErrSealed)
	_, err := containers.NewCollector()
	require.ErrorIs(t, err, ErrSealed)
}

func TestConcurrentCollectors(t *testing.T) {
	containers := newTestContainers(t)
	const workers = 4
	const waysPerWorker = 25

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		collector := newTestCollector(t, containers)
		wg.Add(1)
		go func(w int, collector *Collector) {
			defer wg.Done()
			for i := 0; i < waysPerWorker; i++ {
				base := osm.NodeID((w*waysPerWorker + i) * 2)
				err := collector.AddNode(NodeRecord{ID: base, Coordinate: NewCoordinate(float64(w), float64(i)*0.001)})
				if err == nil {
					err = collector.AddNode(NodeRecord{ID: base + 1, Coordinate: NewCoordinate(float64(w)+0.001, float64(i)*0.001)})
				}
				if err == nil {
					err = collector.AddWay(Way{
						ID:     osm.WayID(w*waysPerWorker + i),
						Nodes:  []osm.NodeID{base, base + 1},
						Tags:   highwayTags,
						Oneway: true,
					})
				}
				if err != nil {
					errs <- err
					return
				}
			}
			// the rest is flushed by PrepareData
		}(w, collector)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	result := prepareAndRead(t, containers, testProfile)
	require.Len(t, result.nodes, workers*waysPerWorker*2)
	require.Len(t, result.edges, workers*waysPerWorker)
	for i, node := range result.nodes {
		assert.Equal(t, osm.NodeID(i), node.ID)
	}
	for i, edge := range result.edges {
		assert.Equal(t, NodeID(2*i), edge.Source)
		assert.Equal(t, NodeID(2*i+1), edge.Target)
	}
	stats := containers.Stats()
	assert.Equal(t, workers*waysPerWorker*2, stats.Nodes)
	assert.Equal(t, workers*waysPerWorker, stats.Edges)
}

func TestCollectorIgnoresDegenerateWays(t *testing.T) {
	containers := newTestContainers(t)
	collector := newTestCollector(t, containers)
	addNodes(t, collector, map[osm.NodeID][2]float64{1: {1, 1}, 2: {2, 2}})
	require.NoError(t, collector.AddWay(Way{ID: 1, Nodes: []osm.NodeID{1, 1, 1}, Tags: highwayTags}))
	require.NoError(t, collector.AddWay(Way{ID: 2, Nodes: []osm.NodeID{1}, Tags: highwayTags}))
	// repeated nodes do not produce zero-length segments
	require.NoError(t, collector.AddWay(Way{ID: 3, Nodes: []osm.NodeID{1, 1, 2, 2}, Tags: highwayTags, Oneway: true}))

	result := prepareAndRead(t, containers, testProfile)
	require.Len(t, result.nodes, 2)
	require.Len(t, result.edges, 1)
	require.Equal(t, []Edge{{
		Source:   0,
		Target:   1,
		Weight:   result.edges[0].Weight,
		Distance: result.edges[0].Distance,
		Class:    LINK_RESIDENTIAL,
		Flags:    EdgeForward,
	}}, result.edges)
	assert.Equal(t, 0, containers.Stats().SelfLoops)
}
