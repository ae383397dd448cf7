package osmextract

import (
	"time"

	"github.com/LdDl/osmextract/extsort"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func lessNodeID(a, b osm.NodeID) bool { return a < b }

func equalNodeID(a, b osm.NodeID) bool { return a == b }

// sortUnique sorts node ids and removes duplicates
func sortUnique(seq *extsort.Sequence[osm.NodeID]) error {
	if err := seq.Sort(lessNodeID); err != nil {
		return err
	}
	return seq.Dedup(equalNodeID)
}

// PrepareNodes assigns dense internal ids (ascending by external id) to every referenced node
// which has node record. Unreferenced node records are dropped. Referenced ids without node
// record are counted as dangling and dropped
func (containers *ExtractionContainers) PrepareNodes() error {
	if err := containers.requireStage(stageFlushed); err != nil {
		return err
	}
	logger := containers.logger.WithField("stage", "prepare_nodes")
	st := time.Now()

	logger.Info("Sorting used nodes...")
	if err := sortUnique(containers.usedNodeIDs); err != nil {
		return containers.fail(errors.Wrap(err, "Can't sort used node ids"))
	}
	logger.Info("Sorting all nodes...")
	// sort is stable, so the first of duplicated records is kept
	err := containers.allNodes.Sort(func(a, b NodeRecord) bool {
		return a.ID < b.ID
	})
	if err != nil {
		return containers.fail(errors.Wrap(err, "Can't sort node records"))
	}
	if err := sortUnique(containers.barrierNodes); err != nil {
		return containers.fail(errors.Wrap(err, "Can't sort barrier nodes"))
	}
	if err := sortUnique(containers.trafficSignals); err != nil {
		return containers.fail(errors.Wrap(err, "Can't sort traffic signals"))
	}

	logger.Info("Building node id map...")
	dangling, err := containers.compactNodes()
	if err != nil {
		return containers.fail(err)
	}
	containers.stats.DanglingNodes = dangling
	containers.stats.Nodes = int(containers.maxInternalNodeID)

	// raw node data is not needed anymore
	for _, seq := range []*extsort.Sequence[osm.NodeID]{containers.usedNodeIDs, containers.barrierNodes, containers.trafficSignals} {
		if err := seq.Reset(); err != nil {
			return containers.fail(errors.Wrap(err, "Can't release node ids"))
		}
	}
	if err := containers.allNodes.Reset(); err != nil {
		return containers.fail(errors.Wrap(err, "Can't release node records"))
	}

	if dangling > 0 {
		logger.WithField("dangling", dangling).Warn("Referenced nodes without node record have been dropped")
	}
	logger.WithFields(logrus.Fields{
		"nodes": containers.maxInternalNodeID,
	}).Infof("Done in %v", time.Since(st))
	containers.stage = stageNodesPrepared
	return nil
}

// compactNodes merges sorted unique used ids with sorted node records and flag lists
func (containers *ExtractionContainers) compactNodes() (int, error) {
	used := extsort.NewCursor(containers.usedNodeIDs)
	records := extsort.NewCursor(containers.allNodes)
	barriers := extsort.NewCursor(containers.barrierNodes)
	signals := extsort.NewCursor(containers.trafficSignals)

	dangling := 0
	internal := uint32(0)
	var err error
	for used.Valid() {
		nodeID := used.Value()
		used.Advance()

		for records.Valid() && records.Value().ID < nodeID {
			records.Advance()
		}
		if !records.Valid() || records.Value().ID != nodeID {
			dangling++
			continue
		}
		node := records.Value()
		for records.Valid() && records.Value().ID == nodeID {
			records.Advance()
		}

		for barriers.Valid() && barriers.Value() < nodeID {
			barriers.Advance()
		}
		if barriers.Valid() && barriers.Value() == nodeID {
			node.Barrier = true
		}
		for signals.Valid() && signals.Value() < nodeID {
			signals.Advance()
		}
		if signals.Valid() && signals.Value() == nodeID {
			node.TrafficSignal = true
		}

		if err = containers.nodes.Append(node); err != nil {
			err = errors.Wrap(err, "Can't append compacted node")
			break
		}
		err = containers.idMap.Append(IDMapping{
			External:   nodeID,
			Internal:   NodeID(internal),
			Coordinate: node.Coordinate,
		})
		if err != nil {
			err = errors.Wrap(err, "Can't append id mapping")
			break
		}
		internal++
	}
	if errCursors := finishCursors(used, records, barriers, signals); err == nil {
		err = errCursors
	}
	if err != nil {
		return 0, err
	}
	containers.maxInternalNodeID = internal
	return dangling, nil
}
