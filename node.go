package osmextract

import (
	"encoding/binary"
	"math"

	"github.com/LdDl/osmextract/extsort"
	"github.com/paulmach/osm"
)

// NodeID is dense internal identifier of node
type NodeID uint32

// InvalidNodeID marks unresolved node reference
const InvalidNodeID = NodeID(math.MaxUint32)

const (
	nodeFlagBarrier = uint8(1 << iota)
	nodeFlagTrafficSignal
)

// NodeRecord is node collected from the source and, after compaction, output node.
// Internal ID of output node is implied by its position in the output sequence
type NodeRecord struct {
	ID            osm.NodeID
	Coordinate    Coordinate
	Barrier       bool
	TrafficSignal bool
}

func (node NodeRecord) flags() uint8 {
	flags := uint8(0)
	if node.Barrier {
		flags |= nodeFlagBarrier
	}
	if node.TrafficSignal {
		flags |= nodeFlagTrafficSignal
	}
	return flags
}

// nodeRecordSize is size of encoded NodeRecord in bytes: lon, lat, external id, flags
const nodeRecordSize = 4 + 4 + 8 + 1

// appendNodeRecord is shared by staging codec and nodes file writer
func appendNodeRecord(dst []byte, node NodeRecord) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(node.Coordinate.Lon))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(node.Coordinate.Lat))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(node.ID))
	return append(dst, node.flags())
}

func decodeNodeRecord(src []byte) (NodeRecord, error) {
	if len(src) < nodeRecordSize {
		return NodeRecord{}, extsort.ErrShortRecord
	}
	flags := src[16]
	return NodeRecord{
		Coordinate: Coordinate{
			Lon: int32(binary.LittleEndian.Uint32(src[0:])),
			Lat: int32(binary.LittleEndian.Uint32(src[4:])),
		},
		ID:            osm.NodeID(binary.LittleEndian.Uint64(src[8:])),
		Barrier:       flags&nodeFlagBarrier != 0,
		TrafficSignal: flags&nodeFlagTrafficSignal != 0,
	}, nil
}

type nodeRecordCodec struct{}

func (nodeRecordCodec) Append(dst []byte, v NodeRecord) []byte { return appendNodeRecord(dst, v) }

func (nodeRecordCodec) Decode(src []byte) (NodeRecord, error) { return decodeNodeRecord(src) }

// IDMapping is single entry of external to internal node identifiers map.
// Coordinate is carried along so edges could be measured without random access to nodes
type IDMapping struct {
	External   osm.NodeID
	Internal   NodeID
	Coordinate Coordinate
}

type idMappingCodec struct{}

func (idMappingCodec) Append(dst []byte, v IDMapping) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.External))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.Internal))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.Coordinate.Lon))
	return binary.LittleEndian.AppendUint32(dst, uint32(v.Coordinate.Lat))
}

func (idMappingCodec) Decode(src []byte) (IDMapping, error) {
	if len(src) < 20 {
		return IDMapping{}, extsort.ErrShortRecord
	}
	return IDMapping{
		External: osm.NodeID(binary.LittleEndian.Uint64(src[0:])),
		Internal: NodeID(binary.LittleEndian.Uint32(src[8:])),
		Coordinate: Coordinate{
			Lon: int32(binary.LittleEndian.Uint32(src[12:])),
			Lat: int32(binary.LittleEndian.Uint32(src[16:])),
		},
	}, nil
}

type nodeIDCodec struct{}

func (nodeIDCodec) Append(dst []byte, v osm.NodeID) []byte {
	return extsort.Int64Codec{}.Append(dst, int64(v))
}

func (nodeIDCodec) Decode(src []byte) (osm.NodeID, error) {
	v, err := extsort.Int64Codec{}.Decode(src)
	return osm.NodeID(v), err
}

type internalIDCodec struct{}

func (internalIDCodec) Append(dst []byte, v NodeID) []byte {
	return extsort.Uint32Codec{}.Append(dst, uint32(v))
}

func (internalIDCodec) Decode(src []byte) (NodeID, error) {
	v, err := extsort.Uint32Codec{}.Decode(src)
	return NodeID(v), err
}
