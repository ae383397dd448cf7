package osmextract

import (
	"sync"
	"sync/atomic"

	"github.com/LdDl/osmextract/extsort"
	"github.com/hashicorp/go-multierror"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrAlreadyPrepared is returned when PrepareData is called more than once
	ErrAlreadyPrepared = errors.New("extraction containers have been prepared already")
	// ErrStageOrder is returned when preparation stage is called out of order
	ErrStageOrder = errors.New("preparation stage is called out of order")
	// ErrSealed is returned when data is appended after preparation has been started
	ErrSealed = errors.New("extraction containers do not accept data after preparation has been started")
)

type stage uint16

const (
	stageCollecting = stage(iota + 1)
	stageFlushed
	stageNodesPrepared
	stageEdgesPrepared
	stageRestrictionsPrepared
	stageWritten
	stageFailed
)

func (iotaIdx stage) String() string {
	return [...]string{"collecting", "flushed", "nodes_prepared", "edges_prepared", "restrictions_prepared", "written", "failed"}[iotaIdx-1]
}

// Stats holds counters of prepared data and of dropped records
type Stats struct {
	Nodes                     int
	Edges                     int
	UnconditionalRestrictions int
	ConditionalRestrictions   int
	Names                     int

	// DanglingNodes is number of referenced node ids which have no node record
	DanglingNodes int
	// DanglingEdges is number of raw edges with at least one unresolved endpoint
	DanglingEdges int
	// RejectedWays is number of ways rejected by profile
	RejectedWays int
	// RejectedEdges is number of raw edges dropped together with rejected ways
	RejectedEdges int
	// SelfLoops is number of raw edges which start and end in the same node
	SelfLoops int
	// PrunedNodes is number of nodes which lost all their edges during normalization
	PrunedNodes int
	// UnresolvedRestrictions is number of restrictions referencing unknown ways or nodes
	UnresolvedRestrictions int
	// AmbiguousRestrictions is number of restrictions without unique pivot node
	AmbiguousRestrictions int
}

// ExtractionContainers owns every staging sequence of single extraction run.
//
// Data is collected concurrently through Collector instances. Then PrepareData
// filters, aggregates and writes it to disk. Containers are single-use
type ExtractionContainers struct {
	cfg    config
	seqCfg extsort.Config
	logger logrus.FieldLogger

	usedNodeIDs    *extsort.Sequence[osm.NodeID]
	allNodes       *extsort.Sequence[NodeRecord]
	barrierNodes   *extsort.Sequence[osm.NodeID]
	trafficSignals *extsort.Sequence[osm.NodeID]
	allEdges       *extsort.Sequence[RawEdge]
	allWays        *extsort.Sequence[RawWay]
	wayEndpoints   *extsort.Sequence[WayEndpoint]
	restrictions   *extsort.Sequence[RawRestriction]
	names          *NameTable

	nodes                     *extsort.Sequence[NodeRecord]
	idMap                     *extsort.Sequence[IDMapping]
	edges                     *extsort.Sequence[Edge]
	unconditionalRestrictions *extsort.Sequence[Restriction]
	conditionalRestrictions   *extsort.Sequence[Restriction]
	maxInternalNodeID         uint32

	mu         sync.Mutex
	collectors []*Collector
	sealed     atomic.Bool
	stage      stage
	stats      Stats
}

// NewExtractionContainers returns empty containers ready for collection
func NewExtractionContainers(options ...Option) (*ExtractionContainers, error) {
	cfg := defaultConfig()
	for _, option := range options {
		option(&cfg)
	}
	if cfg.logger == nil {
		logger := logrus.New()
		if !cfg.verbose {
			logger.SetLevel(logrus.WarnLevel)
		}
		cfg.logger = logger
	}
	seqCfg := extsort.Config{
		Dir:         cfg.tempDir,
		MemoryLimit: cfg.memoryLimit,
	}
	names, err := newNameTable(seqCfg)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare names table")
	}
	containers := &ExtractionContainers{
		cfg:    cfg,
		seqCfg: seqCfg,
		logger: cfg.logger,

		usedNodeIDs:    extsort.New[osm.NodeID](nodeIDCodec{}, seqCfg),
		allNodes:       extsort.New[NodeRecord](nodeRecordCodec{}, seqCfg),
		barrierNodes:   extsort.New[osm.NodeID](nodeIDCodec{}, seqCfg),
		trafficSignals: extsort.New[osm.NodeID](nodeIDCodec{}, seqCfg),
		allEdges:       extsort.New[RawEdge](rawEdgeCodec{}, seqCfg),
		allWays:        extsort.New[RawWay](rawWayCodec{}, seqCfg),
		wayEndpoints:   extsort.New[WayEndpoint](wayEndpointCodec{}, seqCfg),
		restrictions:   extsort.New[RawRestriction](rawRestrictionCodec{}, seqCfg),
		names:          names,

		nodes:                     extsort.New[NodeRecord](nodeRecordCodec{}, seqCfg),
		idMap:                     extsort.New[IDMapping](idMappingCodec{}, seqCfg),
		edges:                     extsort.New[Edge](edgeCodec{}, seqCfg),
		unconditionalRestrictions: extsort.New[Restriction](restrictionCodec{}, seqCfg),
		conditionalRestrictions:   extsort.New[Restriction](restrictionCodec{}, seqCfg),

		stage: stageCollecting,
	}
	containers.logger.WithField("stage", "init").Debug(cfg.String())
	return containers, nil
}

// Stats returns counters gathered so far
func (containers *ExtractionContainers) Stats() Stats {
	return containers.stats
}

// MaxInternalNodeID returns number of compacted nodes: internal ids are [0, MaxInternalNodeID)
func (containers *ExtractionContainers) MaxInternalNodeID() uint32 {
	return containers.maxInternalNodeID
}

// Names returns names table
func (containers *ExtractionContainers) Names() *NameTable {
	return containers.names
}

// requireStage moves containers to the next stage if current one is expected
func (containers *ExtractionContainers) requireStage(expected stage) error {
	if containers.stage != expected {
		return errors.Wrapf(ErrStageOrder, "expected stage '%s', got '%s'", expected, containers.stage)
	}
	return nil
}

// FlushVectors seals containers and flushes every per-worker buffer.
// Workers must have stopped producing data before the call
func (containers *ExtractionContainers) FlushVectors() error {
	if err := containers.requireStage(stageCollecting); err != nil {
		return err
	}
	containers.mu.Lock()
	defer containers.mu.Unlock()
	var result *multierror.Error
	for _, collector := range containers.collectors {
		if err := collector.flush(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	containers.sealed.Store(true)
	if err := result.ErrorOrNil(); err != nil {
		containers.stage = stageFailed
		return errors.Wrap(err, "Can't flush collectors")
	}
	containers.stage = stageFlushed
	containers.logger.WithFields(logrus.Fields{
		"stage":        "flush",
		"collectors":   len(containers.collectors),
		"nodes":        containers.allNodes.Len(),
		"ways":         containers.allWays.Len(),
		"edges":        containers.allEdges.Len(),
		"restrictions": containers.restrictions.Len(),
	}).Info("Collected data has been flushed")
	return nil
}

// Close removes all staging data from disk
func (containers *ExtractionContainers) Close() error {
	var result *multierror.Error
	closers := []interface{ Close() error }{
		containers.usedNodeIDs,
		containers.allNodes,
		containers.barrierNodes,
		containers.trafficSignals,
		containers.allEdges,
		containers.allWays,
		containers.wayEndpoints,
		containers.restrictions,
		containers.names,
		containers.nodes,
		containers.idMap,
		containers.edges,
		containers.unconditionalRestrictions,
		containers.conditionalRestrictions,
	}
	for _, closer := range closers {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
