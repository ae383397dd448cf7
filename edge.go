package osmextract

import (
	"encoding/binary"
	"math"

	"github.com/LdDl/osmextract/extsort"
	"github.com/paulmach/osm"
)

// RawEdge is single segment of way as it has been collected.
//
// SourceID, TargetID and coordinates are join slots filled in while edges are being normalized
type RawEdge struct {
	WayID    osm.WayID
	Source   osm.NodeID
	Target   osm.NodeID
	Forward  bool
	Backward bool

	SourceID         NodeID
	TargetID         NodeID
	SourceCoordinate Coordinate
	TargetCoordinate Coordinate
}

const rawEdgeSize = 3*8 + 2 + 2*4 + 4*4

type rawEdgeCodec struct{}

func (rawEdgeCodec) Append(dst []byte, v RawEdge) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.WayID))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.Source))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.Target))
	dst = append(dst, boolByte(v.Forward), boolByte(v.Backward))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.SourceID))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.TargetID))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.SourceCoordinate.Lon))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.SourceCoordinate.Lat))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.TargetCoordinate.Lon))
	return binary.LittleEndian.AppendUint32(dst, uint32(v.TargetCoordinate.Lat))
}

func (rawEdgeCodec) Decode(src []byte) (RawEdge, error) {
	if len(src) < rawEdgeSize {
		return RawEdge{}, extsort.ErrShortRecord
	}
	return RawEdge{
		WayID:    osm.WayID(binary.LittleEndian.Uint64(src[0:])),
		Source:   osm.NodeID(binary.LittleEndian.Uint64(src[8:])),
		Target:   osm.NodeID(binary.LittleEndian.Uint64(src[16:])),
		Forward:  src[24] == 1,
		Backward: src[25] == 1,
		SourceID: NodeID(binary.LittleEndian.Uint32(src[26:])),
		TargetID: NodeID(binary.LittleEndian.Uint32(src[30:])),
		SourceCoordinate: Coordinate{
			Lon: int32(binary.LittleEndian.Uint32(src[34:])),
			Lat: int32(binary.LittleEndian.Uint32(src[38:])),
		},
		TargetCoordinate: Coordinate{
			Lon: int32(binary.LittleEndian.Uint32(src[42:])),
			Lat: int32(binary.LittleEndian.Uint32(src[46:])),
		},
	}, nil
}

// EdgeFlags is bit set of properties of output edge
type EdgeFlags uint8

const (
	// EdgeForward means edge follows direction in which way nodes are listed
	EdgeForward = EdgeFlags(1 << iota)
	// EdgeRoundabout means edge is part of roundabout
	EdgeRoundabout
	// EdgeSplit means edge is one of two directions of bidirectional segment
	EdgeSplit
)

// Edge is directed output edge between two internal nodes
type Edge struct {
	Source   NodeID
	Target   NodeID
	NameID   uint32
	Weight   uint32 // deciseconds
	Distance float32
	Class    LinkType
	Flags    EdgeFlags
}

// edgeSize is size of encoded Edge in bytes
const edgeSize = 4*4 + 4 + 1 + 1

func appendEdge(dst []byte, v Edge) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.Source))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.Target))
	dst = binary.LittleEndian.AppendUint32(dst, v.NameID)
	dst = binary.LittleEndian.AppendUint32(dst, v.Weight)
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v.Distance))
	return append(dst, uint8(v.Class), uint8(v.Flags))
}

func decodeEdge(src []byte) (Edge, error) {
	if len(src) < edgeSize {
		return Edge{}, extsort.ErrShortRecord
	}
	return Edge{
		Source:   NodeID(binary.LittleEndian.Uint32(src[0:])),
		Target:   NodeID(binary.LittleEndian.Uint32(src[4:])),
		NameID:   binary.LittleEndian.Uint32(src[8:]),
		Weight:   binary.LittleEndian.Uint32(src[12:]),
		Distance: math.Float32frombits(binary.LittleEndian.Uint32(src[16:])),
		Class:    LinkType(src[20]),
		Flags:    EdgeFlags(src[21]),
	}, nil
}

type edgeCodec struct{}

func (edgeCodec) Append(dst []byte, v Edge) []byte { return appendEdge(dst, v) }

func (edgeCodec) Decode(src []byte) (Edge, error) { return decodeEdge(src) }
