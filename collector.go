package osmextract

import (
	"github.com/LdDl/osmextract/extsort"
	"github.com/hashicorp/go-multierror"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// Way is way as it is reported by parser
type Way struct {
	ID         osm.WayID
	Nodes      []osm.NodeID
	Name       string
	Tags       osm.Tags
	Oneway     bool
	IsReversed bool // `oneway=-1`: traffic goes against order of nodes
}

// Collector is private set of buffers of single worker. It is not safe for concurrent use:
// every worker should get its own one via NewCollector
type Collector struct {
	containers *ExtractionContainers

	usedNodeIDs    *extsort.Buffer[osm.NodeID]
	nodes          *extsort.Buffer[NodeRecord]
	barrierNodes   *extsort.Buffer[osm.NodeID]
	trafficSignals *extsort.Buffer[osm.NodeID]
	edges          *extsort.Buffer[RawEdge]
	ways           *extsort.Buffer[RawWay]
	wayEndpoints   *extsort.Buffer[WayEndpoint]
	restrictions   *extsort.Buffer[RawRestriction]
}

// NewCollector registers new per-worker collector
func (containers *ExtractionContainers) NewCollector() (*Collector, error) {
	if containers.sealed.Load() {
		return nil, ErrSealed
	}
	size := containers.cfg.bufferSize
	collector := &Collector{
		containers:     containers,
		usedNodeIDs:    extsort.NewBuffer(containers.usedNodeIDs, size),
		nodes:          extsort.NewBuffer(containers.allNodes, size),
		barrierNodes:   extsort.NewBuffer(containers.barrierNodes, size),
		trafficSignals: extsort.NewBuffer(containers.trafficSignals, size),
		edges:          extsort.NewBuffer(containers.allEdges, size),
		ways:           extsort.NewBuffer(containers.allWays, size),
		wayEndpoints:   extsort.NewBuffer(containers.wayEndpoints, size),
		restrictions:   extsort.NewBuffer(containers.restrictions, size),
	}
	containers.mu.Lock()
	containers.collectors = append(containers.collectors, collector)
	containers.mu.Unlock()
	return collector, nil
}

// AddNode stages node record
func (collector *Collector) AddNode(node NodeRecord) error {
	if collector.containers.sealed.Load() {
		return ErrSealed
	}
	return collector.nodes.Add(node)
}

// AddBarrier marks node as barrier
func (collector *Collector) AddBarrier(nodeID osm.NodeID) error {
	if collector.containers.sealed.Load() {
		return ErrSealed
	}
	return collector.barrierNodes.Add(nodeID)
}

// AddTrafficSignal marks node as traffic signal
func (collector *Collector) AddTrafficSignal(nodeID osm.NodeID) error {
	if collector.containers.sealed.Load() {
		return ErrSealed
	}
	return collector.trafficSignals.Add(nodeID)
}

// AddWay stages way attributes, its segments, endpoints and referenced node ids.
// Ways with less than two distinct consecutive nodes are ignored
func (collector *Collector) AddWay(way Way) error {
	if collector.containers.sealed.Load() {
		return ErrSealed
	}
	nodes := make([]osm.NodeID, 0, len(way.Nodes))
	for i, nodeID := range way.Nodes {
		if i > 0 && nodeID == way.Nodes[i-1] {
			continue
		}
		nodes = append(nodes, nodeID)
	}
	if len(nodes) < 2 {
		return nil
	}
	forward := !way.Oneway || !way.IsReversed
	backward := !way.Oneway || way.IsReversed

	if err := collector.ways.Add(RawWay{ID: way.ID, Name: way.Name, Tags: way.Tags}); err != nil {
		return errors.Wrap(err, "Can't stage way")
	}
	for i := 1; i < len(nodes); i++ {
		err := collector.edges.Add(RawEdge{
			WayID:    way.ID,
			Source:   nodes[i-1],
			Target:   nodes[i],
			Forward:  forward,
			Backward: backward,
			SourceID: InvalidNodeID,
			TargetID: InvalidNodeID,
		})
		if err != nil {
			return errors.Wrap(err, "Can't stage edge")
		}
	}
	for _, nodeID := range nodes {
		if err := collector.usedNodeIDs.Add(nodeID); err != nil {
			return errors.Wrap(err, "Can't stage used node id")
		}
	}
	err := collector.wayEndpoints.Add(WayEndpoint{
		WayID:     way.ID,
		FirstNode: nodes[0],
		FirstNext: nodes[1],
		LastPrev:  nodes[len(nodes)-2],
		LastNode:  nodes[len(nodes)-1],
	})
	if err != nil {
		return errors.Wrap(err, "Can't stage way endpoints")
	}
	return nil
}

// AddRestriction stages turn restriction
func (collector *Collector) AddRestriction(restriction RawRestriction) error {
	if collector.containers.sealed.Load() {
		return ErrSealed
	}
	return collector.restrictions.Add(restriction)
}

// Flush moves everything buffered so far into shared staging sequences
func (collector *Collector) Flush() error {
	if collector.containers.sealed.Load() {
		return ErrSealed
	}
	return collector.flush()
}

func (collector *Collector) flush() error {
	var result *multierror.Error
	flushers := []interface{ Flush() error }{
		collector.usedNodeIDs,
		collector.nodes,
		collector.barrierNodes,
		collector.trafficSignals,
		collector.edges,
		collector.ways,
		collector.wayEndpoints,
		collector.restrictions,
	}
	for _, flusher := range flushers {
		if err := flusher.Flush(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
