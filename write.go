package osmextract

import (
	"encoding/binary"
	"time"

	"github.com/LdDl/osmextract/extsort"
	"github.com/pkg/errors"
)

// writeSequence writes count followed by every encoded element of sequence
func writeSequence[T any](sink RecordSink, seq *extsort.Sequence[T], encode func(dst []byte, v T) []byte) error {
	if err := sink.WriteCount(uint64(seq.Len())); err != nil {
		return err
	}
	return writeRecords(sink, seq, encode)
}

func writeRecords[T any](sink RecordSink, seq *extsort.Sequence[T], encode func(dst []byte, v T) []byte) error {
	it := seq.Iterate()
	var err error
	record := make([]byte, 0, 64)
	for it.Next() {
		record = encode(record[:0], it.Value())
		if err = sink.WriteRecord(record); err != nil {
			break
		}
	}
	if errIter := finishCursors(it); err == nil {
		err = errIter
	}
	return err
}

// WriteNodes writes compacted nodes in order of internal ids
func (containers *ExtractionContainers) WriteNodes(sink RecordSink) error {
	if err := containers.requireStage(stageRestrictionsPrepared); err != nil {
		return err
	}
	st := time.Now()
	if err := writeSequence(sink, containers.nodes, appendNodeRecord); err != nil {
		return errors.Wrap(err, "Can't write nodes")
	}
	containers.logger.WithField("stage", "write_nodes").Infof("Done in %v", time.Since(st))
	return nil
}

// WriteEdges writes edges sorted by source node
func (containers *ExtractionContainers) WriteEdges(sink RecordSink) error {
	if err := containers.requireStage(stageRestrictionsPrepared); err != nil {
		return err
	}
	st := time.Now()
	if err := writeSequence(sink, containers.edges, appendEdge); err != nil {
		return errors.Wrap(err, "Can't write edges")
	}
	containers.logger.WithField("stage", "write_edges").Infof("Done in %v", time.Since(st))
	return nil
}

// WriteRestrictions writes unconditional restrictions followed by conditional ones
func (containers *ExtractionContainers) WriteRestrictions(sink RecordSink) error {
	if err := containers.requireStage(stageRestrictionsPrepared); err != nil {
		return err
	}
	st := time.Now()
	count := uint64(containers.unconditionalRestrictions.Len() + containers.conditionalRestrictions.Len())
	if err := sink.WriteCount(count); err != nil {
		return errors.Wrap(err, "Can't write restrictions count")
	}
	if err := writeRecords(sink, containers.unconditionalRestrictions, appendRestriction); err != nil {
		return errors.Wrap(err, "Can't write unconditional restrictions")
	}
	if err := writeRecords(sink, containers.conditionalRestrictions, appendRestriction); err != nil {
		return errors.Wrap(err, "Can't write conditional restrictions")
	}
	containers.logger.WithField("stage", "write_restrictions").Infof("Done in %v", time.Since(st))
	return nil
}

// WriteNames writes offsets of names table followed by names blob
func (containers *ExtractionContainers) WriteNames(sink RecordSink) error {
	if err := containers.requireStage(stageRestrictionsPrepared); err != nil {
		return err
	}
	st := time.Now()
	table := containers.names
	if err := writeSequence(sink, table.offsets, binary.LittleEndian.AppendUint32); err != nil {
		return errors.Wrap(err, "Can't write name offsets")
	}
	if err := sink.WriteCount(uint64(table.BlobSize())); err != nil {
		return errors.Wrap(err, "Can't write names blob size")
	}
	it := table.chars.Iterate()
	var err error
	for it.Next() {
		if err = sink.WriteBlob([]byte(it.Value())); err != nil {
			break
		}
	}
	if errIter := finishCursors(it); err == nil {
		err = errIter
	}
	if err != nil {
		return errors.Wrap(err, "Can't write names blob")
	}
	containers.logger.WithField("stage", "write_names").Infof("Done in %v", time.Since(st))
	return nil
}
