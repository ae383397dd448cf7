package osmextract

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Format is encoding of OSM source
type Format uint8

const (
	FORMAT_XML = Format(iota + 1)
	FORMAT_PBF
	FORMAT_UNDEFINED = Format(0)
)

func (iotaIdx Format) String() string {
	return [...]string{"undefined", "xml", "pbf"}[iotaIdx]
}

// FormatFromFilename guesses source format by file extension
func FormatFromFilename(filename string) (Format, error) {
	switch {
	case strings.HasSuffix(filename, ".pbf"):
		return FORMAT_PBF, nil
	case strings.HasSuffix(filename, ".osm"), strings.HasSuffix(filename, ".xml"):
		return FORMAT_XML, nil
	default:
		return FORMAT_UNDEFINED, errors.Errorf("File extension '%s' for file '%s' is not handled yet", filepath.Ext(filename), filename)
	}
}

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

func newScanner(ctx context.Context, r io.Reader, format Format, procs int) (OSMScanner, error) {
	switch format {
	case FORMAT_XML:
		return osmxml.New(ctx, r), nil
	case FORMAT_PBF:
		return osmpbf.New(ctx, r, procs), nil
	default:
		return nil, errors.Errorf("Format '%s' is not handled yet", format)
	}
}

type readCounters struct {
	nodes               atomic.Int64
	ways                atomic.Int64
	restrictions        atomic.Int64
	skippedRestrictions atomic.Int64
}

// ReadOSMFile opens file and calls ReadOSM with format guessed by file extension
func ReadOSMFile(ctx context.Context, filename string, containers *ExtractionContainers, workers int) error {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return err
	}
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "Can't open file '%s'", filename)
	}
	defer file.Close()
	return ReadOSM(ctx, file, format, containers, workers)
}

// ReadOSM scans nodes, ways and turn restriction relations of source and stages them into containers.
// Objects are dispatched to given number of workers, each of them holding its own Collector
func ReadOSM(ctx context.Context, r io.Reader, format Format, containers *ExtractionContainers, workers int) error {
	if workers < 1 {
		workers = 1
	}
	scanner, err := newScanner(ctx, r, format, workers)
	if err != nil {
		return err
	}
	defer scanner.Close()

	collectors := make([]*Collector, workers)
	for i := range collectors {
		collectors[i], err = containers.NewCollector()
		if err != nil {
			return errors.Wrap(err, "Can't prepare collector")
		}
	}

	st := time.Now()
	counters := &readCounters{}
	objects := make(chan osm.Object, workers*64)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer close(objects)
		for scanner.Scan() {
			select {
			case objects <- scanner.Object():
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
		return errors.Wrap(scanner.Err(), "Scanner error")
	})
	for _, collector := range collectors {
		collector := collector
		group.Go(func() error {
			reader := objectReader{
				collector: collector,
				counters:  counters,
				logger:    containers.logger,
			}
			for obj := range objects {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				if err := reader.handle(obj); err != nil {
					return err
				}
			}
			return collector.Flush()
		})
	}
	if err := group.Wait(); err != nil {
		return errors.Wrap(err, "Can't read OSM data")
	}
	containers.logger.WithFields(logrus.Fields{
		"stage":                "read",
		"nodes":                counters.nodes.Load(),
		"ways":                 counters.ways.Load(),
		"restrictions":         counters.restrictions.Load(),
		"skipped_restrictions": counters.skippedRestrictions.Load(),
	}).Infof("Done in %v", time.Since(st))
	return nil
}

type objectReader struct {
	collector *Collector
	counters  *readCounters
	logger    logrus.FieldLogger
}

func (reader objectReader) handle(obj osm.Object) error {
	switch v := obj.(type) {
	case *osm.Node:
		return reader.handleNode(v)
	case *osm.Way:
		return reader.handleWay(v)
	case *osm.Relation:
		return reader.handleRelation(v)
	}
	return nil
}

func (reader objectReader) handleNode(node *osm.Node) error {
	reader.counters.nodes.Add(1)
	err := reader.collector.AddNode(NodeRecord{
		ID:         node.ID,
		Coordinate: NewCoordinate(node.Lon, node.Lat),
	})
	if err != nil {
		return errors.Wrap(err, "Can't add node")
	}
	if len(node.Tags) == 0 {
		return nil
	}
	if isBarrier(node.Tags) {
		if err := reader.collector.AddBarrier(node.ID); err != nil {
			return errors.Wrap(err, "Can't add barrier")
		}
	}
	if node.Tags.Find("highway") == "traffic_signals" {
		if err := reader.collector.AddTrafficSignal(node.ID); err != nil {
			return errors.Wrap(err, "Can't add traffic signal")
		}
	}
	return nil
}

func (reader objectReader) handleWay(way *osm.Way) error {
	reader.counters.ways.Add(1)
	oneway, isReversed, known := parseOneway(way.Tags)
	if !known {
		reader.logger.WithFields(logrus.Fields{
			"way_id": way.ID,
			"oneway": way.Tags.Find("oneway"),
		}).Warn("Unhandled `oneway` tag value has been met")
	}
	nodes := make([]osm.NodeID, 0, len(way.Nodes))
	for _, node := range way.Nodes {
		nodes = append(nodes, node.ID)
	}
	tags := make(osm.Tags, len(way.Tags))
	copy(tags, way.Tags)
	err := reader.collector.AddWay(Way{
		ID:         way.ID,
		Nodes:      nodes,
		Name:       way.Tags.Find("name"),
		Tags:       tags,
		Oneway:     oneway,
		IsReversed: isReversed,
	})
	if err != nil {
		return errors.Wrap(err, "Can't add way")
	}
	return nil
}

func (reader objectReader) handleRelation(relation *osm.Relation) error {
	if relation.Tags.Find("type") != "restriction" {
		return nil
	}
	restriction, ok := parseRestriction(relation)
	if !ok {
		reader.counters.skippedRestrictions.Add(1)
		reader.logger.WithField("relation_id", relation.ID).Debug("Restriction relation skipped")
		return nil
	}
	reader.counters.restrictions.Add(1)
	if err := reader.collector.AddRestriction(restriction); err != nil {
		return errors.Wrap(err, "Can't add restriction")
	}
	return nil
}

// parseRestriction expects exactly one `from` way, one `via` node or way and one `to` way.
// Restriction kind is taken from `restriction` tag or, when absent, from conditional or
// vehicle specific tags (see restrictionCondition)
func parseRestriction(relation *osm.Relation) (RawRestriction, bool) {
	restriction := RawRestriction{RelationID: relation.ID}
	value := relation.Tags.Find("restriction")
	if value == "" {
		var ok bool
		value, restriction.Condition, ok = restrictionCondition(relation.Tags)
		if !ok {
			return RawRestriction{}, false
		}
	}
	switch {
	case strings.HasPrefix(value, "only_"):
		restriction.IsOnly = true
	case strings.HasPrefix(value, "no_"):
		restriction.IsOnly = false
	default:
		return RawRestriction{}, false
	}

	fromCount, viaCount, toCount := 0, 0, 0
	for _, member := range relation.Members {
		switch member.Role {
		case "from":
			if member.Type != osm.TypeWay {
				return RawRestriction{}, false
			}
			restriction.From = osm.WayID(member.Ref)
			fromCount++
		case "via":
			switch member.Type {
			case osm.TypeNode:
				restriction.ViaIsWay = false
			case osm.TypeWay:
				restriction.ViaIsWay = true
			default:
				return RawRestriction{}, false
			}
			restriction.Via = member.Ref
			viaCount++
		case "to":
			if member.Type != osm.TypeWay {
				return RawRestriction{}, false
			}
			restriction.To = osm.WayID(member.Ref)
			toCount++
		}
	}
	if fromCount != 1 || viaCount != 1 || toCount != 1 {
		return RawRestriction{}, false
	}
	return restriction, true
}

// restrictionCondition extracts restriction value and its condition from
// `restriction:conditional=no_left_turn @ (Mo-Fr 07:00-09:00)` or, failing that,
// from the first vehicle specific tag like `restriction:hgv=no_left_turn` whose condition is vehicle class itself
func restrictionCondition(tags osm.Tags) (value string, condition string, ok bool) {
	if conditional := tags.Find("restriction:conditional"); conditional != "" {
		at := strings.Index(conditional, "@")
		if at < 0 {
			return "", "", false
		}
		value = strings.TrimSpace(conditional[:at])
		condition = strings.TrimSpace(conditional[at+1:])
		condition = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(condition, "("), ")"))
		return value, condition, condition != ""
	}
	for _, tag := range tags {
		vehicle, found := strings.CutPrefix(tag.Key, "restriction:")
		// `restriction:hgv:conditional` and the like are not handled
		if !found || vehicle == "" || strings.Contains(vehicle, ":") {
			continue
		}
		return strings.TrimSpace(tag.Value), vehicle, true
	}
	return "", "", false
}
