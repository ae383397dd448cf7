package osmextract

import (
	"math"
	"time"

	"github.com/LdDl/osmextract/extsort"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func lessEdge(a, b Edge) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.Target < b.Target
}

// PrepareEdges resolves endpoints of raw edges into internal ids, evaluates profile once per way,
// interns names and emits directed edges sorted by source node
func (containers *ExtractionContainers) PrepareEdges(profile WayProfile) error {
	if err := containers.requireStage(stageNodesPrepared); err != nil {
		return err
	}
	if profile == nil {
		return containers.fail(errors.New("Profile must be provided"))
	}
	logger := containers.logger.WithField("stage", "prepare_edges")
	st := time.Now()

	logger.Info("Resolving edge sources...")
	danglingSources, err := containers.resolveEdgeEndpoints(
		func(a, b RawEdge) bool { return a.Source < b.Source },
		func(edge *RawEdge, mapping IDMapping) bool {
			if edge.Source != mapping.External {
				return false
			}
			edge.SourceID = mapping.Internal
			edge.SourceCoordinate = mapping.Coordinate
			return true
		},
		func(edge RawEdge) int64 { return int64(edge.Source) },
	)
	if err != nil {
		return containers.fail(errors.Wrap(err, "Can't resolve edge sources"))
	}
	logger.Info("Resolving edge targets...")
	danglingTargets, err := containers.resolveEdgeEndpoints(
		func(a, b RawEdge) bool { return a.Target < b.Target },
		func(edge *RawEdge, mapping IDMapping) bool {
			if edge.Target != mapping.External {
				return false
			}
			edge.TargetID = mapping.Internal
			edge.TargetCoordinate = mapping.Coordinate
			return true
		},
		func(edge RawEdge) int64 { return int64(edge.Target) },
	)
	if err != nil {
		return containers.fail(errors.Wrap(err, "Can't resolve edge targets"))
	}
	containers.stats.DanglingEdges = danglingSources + danglingTargets

	logger.Info("Evaluating ways...")
	if err := containers.evaluateWays(profile); err != nil {
		return containers.fail(err)
	}
	if err := containers.allEdges.Reset(); err != nil {
		return containers.fail(errors.Wrap(err, "Can't release raw edges"))
	}
	if err := containers.allWays.Reset(); err != nil {
		return containers.fail(errors.Wrap(err, "Can't release raw ways"))
	}

	logger.Info("Sorting edges by source...")
	if err := containers.edges.Sort(lessEdge); err != nil {
		return containers.fail(errors.Wrap(err, "Can't sort edges"))
	}

	if err := containers.pruneNodes(); err != nil {
		return containers.fail(errors.Wrap(err, "Can't prune nodes"))
	}
	containers.stats.Edges = containers.edges.Len()
	containers.stats.Nodes = int(containers.maxInternalNodeID)

	logger.WithFields(logrus.Fields{
		"edges":          containers.stats.Edges,
		"dangling_edges": containers.stats.DanglingEdges,
		"rejected_ways":  containers.stats.RejectedWays,
		"rejected_edges": containers.stats.RejectedEdges,
		"self_loops":     containers.stats.SelfLoops,
		"pruned_nodes":   containers.stats.PrunedNodes,
		"names":          containers.names.Len(),
	}).Infof("Done in %v", time.Since(st))
	containers.stage = stageEdgesPrepared
	return nil
}

// resolveEdgeEndpoints sorts raw edges by one of endpoints and merge-joins them with id map.
// Edges which endpoint is absent in id map are dropped
func (containers *ExtractionContainers) resolveEdgeEndpoints(less func(a, b RawEdge) bool, attach func(edge *RawEdge, mapping IDMapping) bool, key func(edge RawEdge) int64) (int, error) {
	if err := containers.allEdges.Sort(less); err != nil {
		return 0, errors.Wrap(err, "Can't sort raw edges")
	}
	resolved := extsort.New[RawEdge](rawEdgeCodec{}, containers.seqCfg)
	edges := extsort.NewCursor(containers.allEdges)
	mappings := extsort.NewCursor(containers.idMap)

	dangling := 0
	var err error
	for edges.Valid() {
		edge := edges.Value()
		edges.Advance()
		for mappings.Valid() && int64(mappings.Value().External) < key(edge) {
			mappings.Advance()
		}
		if !mappings.Valid() || !attach(&edge, mappings.Value()) {
			dangling++
			containers.logger.WithFields(logrus.Fields{
				"stage":   "prepare_edges",
				"way_id":  edge.WayID,
				"node_id": key(edge),
			}).Debug("Edge references unknown node")
			continue
		}
		if err = resolved.Append(edge); err != nil {
			break
		}
	}
	if errCursors := finishCursors(edges, mappings); err == nil {
		err = errCursors
	}
	if err != nil {
		resolved.Close()
		return 0, err
	}
	if err := containers.allEdges.ReplaceWith(resolved); err != nil {
		return 0, err
	}
	return dangling, nil
}

// evaluateWays merge-joins resolved edges with raw ways (both sorted by way id) and emits directed edges
func (containers *ExtractionContainers) evaluateWays(profile WayProfile) error {
	err := containers.allEdges.Sort(func(a, b RawEdge) bool {
		return a.WayID < b.WayID
	})
	if err != nil {
		return errors.Wrap(err, "Can't sort raw edges by way")
	}
	err = containers.allWays.Sort(func(a, b RawWay) bool {
		return a.ID < b.ID
	})
	if err != nil {
		return errors.Wrap(err, "Can't sort raw ways")
	}

	edges := extsort.NewCursor(containers.allEdges)
	ways := extsort.NewCursor(containers.allWays)
	for edges.Valid() && err == nil {
		wayID := edges.Value().WayID
		for ways.Valid() && ways.Value().ID < wayID {
			ways.Advance()
		}
		var attributes WayAttributes
		routable := false
		nameID := NoNameID
		if ways.Valid() && ways.Value().ID == wayID {
			way := ways.Value()
			attributes, routable = profile.EvaluateWay(way.ID, way.Name, way.Tags)
			if routable {
				nameID, err = containers.names.Intern(way.Name)
				if err != nil {
					err = errors.Wrap(err, "Can't intern way name")
					break
				}
			}
		}
		if !routable {
			containers.stats.RejectedWays++
			containers.logger.WithFields(logrus.Fields{
				"stage":  "prepare_edges",
				"way_id": wayID,
			}).Debug("Way has been rejected by profile")
		}
		for edges.Valid() && edges.Value().WayID == wayID {
			edge := edges.Value()
			edges.Advance()
			if !routable {
				containers.stats.RejectedEdges++
				continue
			}
			if err = containers.emitEdges(edge, attributes, nameID); err != nil {
				break
			}
		}
	}
	if errCursors := finishCursors(edges, ways); err == nil {
		err = errCursors
	}
	return err
}

// emitEdges appends one or two directed edges for given resolved segment
func (containers *ExtractionContainers) emitEdges(edge RawEdge, attributes WayAttributes, nameID uint32) error {
	if edge.SourceID == edge.TargetID {
		containers.stats.SelfLoops++
		return nil
	}
	forward := edge.Forward && attributes.ForwardSpeed > 0
	backward := edge.Backward && attributes.BackwardSpeed > 0
	if !forward && !backward {
		containers.stats.RejectedEdges++
		return nil
	}
	distance := distanceMeters(edge.SourceCoordinate, edge.TargetCoordinate)
	flags := EdgeFlags(0)
	if attributes.Roundabout {
		flags |= EdgeRoundabout
	}
	if forward && backward {
		flags |= EdgeSplit
	}
	if forward {
		err := containers.edges.Append(Edge{
			Source:   edge.SourceID,
			Target:   edge.TargetID,
			NameID:   nameID,
			Weight:   travelWeight(distance, attributes.ForwardSpeed),
			Distance: float32(distance),
			Class:    attributes.Class,
			Flags:    flags | EdgeForward,
		})
		if err != nil {
			return errors.Wrap(err, "Can't append forward edge")
		}
	}
	if backward {
		err := containers.edges.Append(Edge{
			Source:   edge.TargetID,
			Target:   edge.SourceID,
			NameID:   nameID,
			Weight:   travelWeight(distance, attributes.BackwardSpeed),
			Distance: float32(distance),
			Class:    attributes.Class,
			Flags:    flags,
		})
		if err != nil {
			return errors.Wrap(err, "Can't append backward edge")
		}
	}
	return nil
}

// travelWeight returns travel time in deciseconds for given distance (meters) and speed (km/h). It is at least 1
func travelWeight(distanceMeters, speedKmh float64) uint32 {
	deciseconds := math.Round(distanceMeters * 36.0 / speedKmh)
	if deciseconds < 1 {
		return 1
	}
	if deciseconds > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(deciseconds)
}
