package osmextract

import (
	"time"

	"github.com/LdDl/osmextract/extsort"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func lessRestriction(a, b Restriction) bool {
	if a.Via != b.Via {
		return a.Via < b.Via
	}
	if a.From != b.From {
		return a.From < b.From
	}
	if a.To != b.To {
		return a.To < b.To
	}
	if a.IsOnly != b.IsOnly {
		return !a.IsOnly
	}
	return a.ConditionID < b.ConditionID
}

// PrepareRestrictions turns way-based restrictions into node triples of internal ids.
// Restrictions with via-way are degraded to node-via ones through the endpoint shared with from-way.
// Result is split into unconditional and conditional restrictions
func (containers *ExtractionContainers) PrepareRestrictions() error {
	if err := containers.requireStage(stageEdgesPrepared); err != nil {
		return err
	}
	logger := containers.logger.WithField("stage", "prepare_restrictions")
	st := time.Now()

	logger.Info("Sorting way endpoints...")
	err := containers.wayEndpoints.Sort(func(a, b WayEndpoint) bool {
		return a.WayID < b.WayID
	})
	if err != nil {
		return containers.fail(errors.Wrap(err, "Can't sort way endpoints"))
	}

	stages := extsort.New[restrictionStage](restrictionStageCodec{}, containers.seqCfg)
	defer stages.Close()
	it := containers.restrictions.Iterate()
	for it.Next() {
		err = stages.Append(restrictionStage{
			raw:  it.Value(),
			from: InvalidNodeID,
			via:  InvalidNodeID,
			to:   InvalidNodeID,
		})
		if err != nil {
			break
		}
	}
	if errIter := finishCursors(it); err == nil {
		err = errIter
	}
	if err != nil {
		return containers.fail(errors.Wrap(err, "Can't stage restrictions"))
	}

	logger.Info("Attaching ways to restrictions...")
	wayJoins := []struct {
		key    func(r restrictionStage) (int64, bool)
		attach func(r *restrictionStage, endpoint WayEndpoint)
	}{
		{
			key:    func(r restrictionStage) (int64, bool) { return int64(r.raw.From), true },
			attach: func(r *restrictionStage, endpoint WayEndpoint) { r.fromWay = endpoint },
		},
		{
			key:    func(r restrictionStage) (int64, bool) { return r.raw.Via, r.raw.ViaIsWay },
			attach: func(r *restrictionStage, endpoint WayEndpoint) { r.viaWay = endpoint },
		},
		{
			key:    func(r restrictionStage) (int64, bool) { return int64(r.raw.To), true },
			attach: func(r *restrictionStage, endpoint WayEndpoint) { r.toWay = endpoint },
		},
	}
	for _, join := range wayJoins {
		dropped, err := joinRestrictions(containers, stages, containers.wayEndpoints, join.key,
			func(endpoint WayEndpoint) int64 { return int64(endpoint.WayID) },
			join.attach,
		)
		if err != nil {
			return containers.fail(errors.Wrap(err, "Can't attach ways to restrictions"))
		}
		containers.stats.UnresolvedRestrictions += dropped
	}

	logger.Info("Resolving pivot nodes...")
	if err := containers.resolvePivots(stages); err != nil {
		return containers.fail(err)
	}

	logger.Info("Translating restrictions to internal ids...")
	nodeJoins := []struct {
		key    func(r restrictionStage) (int64, bool)
		attach func(r *restrictionStage, mapping IDMapping)
	}{
		{
			key:    func(r restrictionStage) (int64, bool) { return int64(r.fromNode), true },
			attach: func(r *restrictionStage, mapping IDMapping) { r.from = mapping.Internal },
		},
		{
			key:    func(r restrictionStage) (int64, bool) { return int64(r.viaNode), true },
			attach: func(r *restrictionStage, mapping IDMapping) { r.via = mapping.Internal },
		},
		{
			key:    func(r restrictionStage) (int64, bool) { return int64(r.toNode), true },
			attach: func(r *restrictionStage, mapping IDMapping) { r.to = mapping.Internal },
		},
	}
	for _, join := range nodeJoins {
		dropped, err := joinRestrictions(containers, stages, containers.idMap, join.key,
			func(mapping IDMapping) int64 { return int64(mapping.External) },
			join.attach,
		)
		if err != nil {
			return containers.fail(errors.Wrap(err, "Can't translate restrictions"))
		}
		containers.stats.UnresolvedRestrictions += dropped
	}

	if err := containers.partitionRestrictions(stages); err != nil {
		return containers.fail(err)
	}
	if err := containers.restrictions.Reset(); err != nil {
		return containers.fail(errors.Wrap(err, "Can't release raw restrictions"))
	}
	if err := containers.wayEndpoints.Reset(); err != nil {
		return containers.fail(errors.Wrap(err, "Can't release way endpoints"))
	}

	containers.stats.UnconditionalRestrictions = containers.unconditionalRestrictions.Len()
	containers.stats.ConditionalRestrictions = containers.conditionalRestrictions.Len()
	logger.WithFields(logrus.Fields{
		"unconditional": containers.stats.UnconditionalRestrictions,
		"conditional":   containers.stats.ConditionalRestrictions,
		"unresolved":    containers.stats.UnresolvedRestrictions,
		"ambiguous":     containers.stats.AmbiguousRestrictions,
	}).Infof("Done in %v", time.Since(st))
	containers.stage = stageRestrictionsPrepared
	return nil
}

// joinRestrictions sorts restrictions by key and merge-joins them with right sequence sorted by the same key.
// Restrictions which do not need the join are passed through; ones without match are dropped
func joinRestrictions[K any](containers *ExtractionContainers, stages *extsort.Sequence[restrictionStage], right *extsort.Sequence[K], key func(r restrictionStage) (int64, bool), rightKey func(v K) int64, attach func(r *restrictionStage, v K)) (int, error) {
	err := stages.Sort(func(a, b restrictionStage) bool {
		keyA, _ := key(a)
		keyB, _ := key(b)
		return keyA < keyB
	})
	if err != nil {
		return 0, errors.Wrap(err, "Can't sort restrictions")
	}
	joined := extsort.New[restrictionStage](restrictionStageCodec{}, containers.seqCfg)
	defer joined.Close()
	left := extsort.NewCursor(stages)
	rightCursor := extsort.NewCursor(right)

	dropped := 0
	for left.Valid() {
		r := left.Value()
		left.Advance()
		k, needed := key(r)
		if needed {
			for rightCursor.Valid() && rightKey(rightCursor.Value()) < k {
				rightCursor.Advance()
			}
			if !rightCursor.Valid() || rightKey(rightCursor.Value()) != k {
				dropped++
				containers.logger.WithFields(logrus.Fields{
					"stage":       "prepare_restrictions",
					"relation_id": r.raw.RelationID,
					"ref":         k,
				}).Debug("Restriction references unknown member")
				continue
			}
			attach(&r, rightCursor.Value())
		}
		if err = joined.Append(r); err != nil {
			break
		}
	}
	if errCursors := finishCursors(left, rightCursor); err == nil {
		err = errCursors
	}
	if err != nil {
		return 0, err
	}
	if err := stages.ReplaceWith(joined); err != nil {
		return 0, err
	}
	return dropped, nil
}

// resolvePivots computes external node triple of every restriction
func (containers *ExtractionContainers) resolvePivots(stages *extsort.Sequence[restrictionStage]) error {
	resolved := extsort.New[restrictionStage](restrictionStageCodec{}, containers.seqCfg)
	defer resolved.Close()
	it := stages.Iterate()
	var err error
	for it.Next() {
		r := it.Value()
		if !resolvePivot(&r, containers.cfg.tieBreak) {
			containers.stats.AmbiguousRestrictions++
			containers.logger.WithFields(logrus.Fields{
				"stage":       "prepare_restrictions",
				"relation_id": r.raw.RelationID,
				"via_is_way":  r.raw.ViaIsWay,
			}).Debug("Restriction has no unambiguous pivot node")
			continue
		}
		if err = resolved.Append(r); err != nil {
			break
		}
	}
	if errIter := finishCursors(it); err == nil {
		err = errIter
	}
	if err == nil {
		err = stages.ReplaceWith(resolved)
	}
	if err != nil {
		return errors.Wrap(err, "Can't resolve pivot nodes")
	}
	return nil
}

// resolvePivot fills external triple (from, via, to) of restriction which ways have been attached already.
//
// For node-via restriction via node must be endpoint of both from-way and to-way.
// For way-via restriction pivot is endpoint of via-way shared with from-way, to-way must touch
// the opposite endpoint; restriction is degraded to the turn from from-way onto via-way
func resolvePivot(r *restrictionStage, tieBreak ViaWayTieBreak) bool {
	if !r.raw.ViaIsWay {
		via := osm.NodeID(r.raw.Via)
		from, okFrom := r.fromWay.neighbour(via)
		to, okTo := r.toWay.neighbour(via)
		if !okFrom || !okTo {
			return false
		}
		r.fromNode, r.viaNode, r.toNode = from, via, to
		return true
	}

	viaWay := r.viaWay
	sharesFirst := r.fromWay.touches(viaWay.FirstNode)
	sharesLast := r.fromWay.touches(viaWay.LastNode)
	var pivot osm.NodeID
	switch {
	case sharesFirst && sharesLast:
		switch tieBreak {
		case TIE_BREAK_FIRST:
			pivot = viaWay.FirstNode
		case TIE_BREAK_LAST:
			pivot = viaWay.LastNode
		default:
			return false
		}
	case sharesFirst:
		pivot = viaWay.FirstNode
	case sharesLast:
		pivot = viaWay.LastNode
	default:
		return false
	}
	if !r.toWay.touches(viaWay.opposite(pivot)) {
		return false
	}
	from, _ := r.fromWay.neighbour(pivot)
	to, _ := viaWay.neighbour(pivot)
	r.fromNode, r.viaNode, r.toNode = from, pivot, to
	return true
}

// partitionRestrictions splits resolved restrictions into unconditional and conditional ones
func (containers *ExtractionContainers) partitionRestrictions(stages *extsort.Sequence[restrictionStage]) error {
	// total order makes interning of conditions independent of input order
	err := stages.Sort(func(a, b restrictionStage) bool {
		switch {
		case a.via != b.via:
			return a.via < b.via
		case a.from != b.from:
			return a.from < b.from
		case a.to != b.to:
			return a.to < b.to
		case a.raw.IsOnly != b.raw.IsOnly:
			return !a.raw.IsOnly
		default:
			return a.raw.Condition < b.raw.Condition
		}
	})
	if err != nil {
		return errors.Wrap(err, "Can't sort resolved restrictions")
	}
	it := stages.Iterate()
	for it.Next() {
		r := it.Value()
		restriction := Restriction{
			From:   r.from,
			Via:    r.via,
			To:     r.to,
			IsOnly: r.raw.IsOnly,
		}
		if !r.raw.Conditional() {
			if err = containers.unconditionalRestrictions.Append(restriction); err != nil {
				break
			}
			continue
		}
		restriction.Conditional = true
		restriction.ConditionID, err = containers.names.Intern(r.raw.Condition)
		if err != nil {
			break
		}
		if err = containers.conditionalRestrictions.Append(restriction); err != nil {
			break
		}
	}
	if errIter := finishCursors(it); err == nil {
		err = errIter
	}
	if err != nil {
		return errors.Wrap(err, "Can't partition restrictions")
	}
	if err := containers.unconditionalRestrictions.Sort(lessRestriction); err != nil {
		return errors.Wrap(err, "Can't sort unconditional restrictions")
	}
	if err := containers.conditionalRestrictions.Sort(lessRestriction); err != nil {
		return errors.Wrap(err, "Can't sort conditional restrictions")
	}
	return nil
}
