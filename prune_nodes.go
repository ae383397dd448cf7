package osmextract

import (
	"github.com/LdDl/osmextract/extsort"
	"github.com/pkg/errors"
)

// pruneNodes removes nodes which are not referenced by any output edge anymore and renumbers
// the rest densely. Relative order of nodes is kept, so id map stays sorted by both external and
// internal ids. Expects edges sorted by source
func (containers *ExtractionContainers) pruneNodes() error {
	used := extsort.New[NodeID](internalIDCodec{}, containers.seqCfg)
	defer used.Close()
	it := containers.edges.Iterate()
	var err error
	for it.Next() {
		edge := it.Value()
		if err = used.AppendBatch([]NodeID{edge.Source, edge.Target}); err != nil {
			break
		}
	}
	if errIter := finishCursors(it); err == nil {
		err = errIter
	}
	if err != nil {
		return errors.Wrap(err, "Can't collect used internal ids")
	}
	if err := used.Sort(func(a, b NodeID) bool { return a < b }); err != nil {
		return errors.Wrap(err, "Can't sort used internal ids")
	}
	if err := used.Dedup(func(a, b NodeID) bool { return a == b }); err != nil {
		return errors.Wrap(err, "Can't deduplicate used internal ids")
	}
	if uint32(used.Len()) == containers.maxInternalNodeID {
		return nil
	}

	// new id of node is its rank among used ids
	if err := containers.renumberNodes(used); err != nil {
		return err
	}
	err = containers.renumberEdges(used,
		func(e *Edge) *NodeID { return &e.Source },
	)
	if err != nil {
		return errors.Wrap(err, "Can't renumber edge sources")
	}
	if err := containers.edges.Sort(func(a, b Edge) bool { return a.Target < b.Target }); err != nil {
		return errors.Wrap(err, "Can't sort edges by target")
	}
	err = containers.renumberEdges(used,
		func(e *Edge) *NodeID { return &e.Target },
	)
	if err != nil {
		return errors.Wrap(err, "Can't renumber edge targets")
	}
	if err := containers.edges.Sort(lessEdge); err != nil {
		return errors.Wrap(err, "Can't sort edges")
	}
	containers.stats.PrunedNodes += int(containers.maxInternalNodeID) - used.Len()
	containers.maxInternalNodeID = uint32(used.Len())
	return nil
}

// renumberNodes keeps only used nodes (and their id mappings)
func (containers *ExtractionContainers) renumberNodes(used *extsort.Sequence[NodeID]) error {
	newNodes := extsort.New[NodeRecord](nodeRecordCodec{}, containers.seqCfg)
	newIDMap := extsort.New[IDMapping](idMappingCodec{}, containers.seqCfg)
	usedIDs := extsort.NewCursor(used)
	nodes := extsort.NewCursor(containers.nodes)
	mappings := extsort.NewCursor(containers.idMap)

	var err error
	next := NodeID(0)
	for old := NodeID(0); nodes.Valid() && mappings.Valid(); old++ {
		node, mapping := nodes.Value(), mappings.Value()
		nodes.Advance()
		mappings.Advance()
		if !usedIDs.Valid() || usedIDs.Value() != old {
			continue
		}
		usedIDs.Advance()
		if err = newNodes.Append(node); err != nil {
			break
		}
		mapping.Internal = next
		if err = newIDMap.Append(mapping); err != nil {
			break
		}
		next++
	}
	if errCursors := finishCursors(usedIDs, nodes, mappings); err == nil {
		err = errCursors
	}
	if err == nil {
		err = containers.nodes.ReplaceWith(newNodes)
	}
	if err == nil {
		err = containers.idMap.ReplaceWith(newIDMap)
	}
	newNodes.Close()
	newIDMap.Close()
	if err != nil {
		return errors.Wrap(err, "Can't renumber nodes")
	}
	return nil
}

// renumberEdges replaces node id selected by field with its rank among used ids.
// Edges must be sorted by that field
func (containers *ExtractionContainers) renumberEdges(used *extsort.Sequence[NodeID], field func(e *Edge) *NodeID) error {
	renumbered := extsort.New[Edge](edgeCodec{}, containers.seqCfg)
	defer renumbered.Close()
	usedIDs := extsort.NewCursor(used)
	edges := extsort.NewCursor(containers.edges)

	var err error
	rank := NodeID(0)
	for edges.Valid() {
		edge := edges.Value()
		edges.Advance()
		id := field(&edge)
		for usedIDs.Valid() && usedIDs.Value() < *id {
			usedIDs.Advance()
			rank++
		}
		if !usedIDs.Valid() || usedIDs.Value() != *id {
			err = errors.Errorf("internal id %d is missing in used ids", *id)
			break
		}
		*id = rank
		if err = renumbered.Append(edge); err != nil {
			break
		}
	}
	if errCursors := finishCursors(usedIDs, edges); err == nil {
		err = errCursors
	}
	if err != nil {
		return err
	}
	return containers.edges.ReplaceWith(renumbered)
}
