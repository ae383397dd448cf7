package osmextract

import (
	"encoding/binary"

	"github.com/LdDl/osmextract/extsort"
	"github.com/paulmach/osm"
)

// RawRestriction is turn restriction as it has been collected: from-way, via member (node or way) and to-way
type RawRestriction struct {
	RelationID osm.RelationID
	From       osm.WayID
	Via        int64
	ViaIsWay   bool
	To         osm.WayID
	// IsOnly is true for `only_*` restrictions and false for `no_*` ones
	IsOnly bool
	// Condition is raw condition text of `restriction:conditional`, e.g. `Mo-Fr 07:00-09:00`
	Condition string
}

// Conditional reports whether restriction is active only under certain conditions
func (restriction RawRestriction) Conditional() bool {
	return restriction.Condition != ""
}

func appendRawRestriction(dst []byte, v RawRestriction) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.RelationID))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.From))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.Via))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.To))
	dst = append(dst, boolByte(v.ViaIsWay), boolByte(v.IsOnly))
	return appendString(dst, v.Condition)
}

const rawRestrictionFixedSize = 4*8 + 2

func decodeRawRestriction(src []byte) (RawRestriction, []byte, error) {
	if len(src) < rawRestrictionFixedSize {
		return RawRestriction{}, nil, extsort.ErrShortRecord
	}
	v := RawRestriction{
		RelationID: osm.RelationID(binary.LittleEndian.Uint64(src[0:])),
		From:       osm.WayID(binary.LittleEndian.Uint64(src[8:])),
		Via:        int64(binary.LittleEndian.Uint64(src[16:])),
		To:         osm.WayID(binary.LittleEndian.Uint64(src[24:])),
		ViaIsWay:   src[32] == 1,
		IsOnly:     src[33] == 1,
	}
	var err error
	v.Condition, src, err = readString(src[rawRestrictionFixedSize:])
	if err != nil {
		return RawRestriction{}, nil, err
	}
	return v, src, nil
}

type rawRestrictionCodec struct{}

func (rawRestrictionCodec) Append(dst []byte, v RawRestriction) []byte {
	return appendRawRestriction(dst, v)
}

func (rawRestrictionCodec) Decode(src []byte) (RawRestriction, error) {
	v, _, err := decodeRawRestriction(src)
	return v, err
}

const (
	restrictionFlagOnly = uint8(1 << iota)
	restrictionFlagConditional
)

// Restriction is node-based turn restriction in terms of internal node identifiers
type Restriction struct {
	From        NodeID
	Via         NodeID
	To          NodeID
	IsOnly      bool
	Conditional bool
	// ConditionID references condition text in names table. Zero for unconditional restrictions
	ConditionID uint32
}

// restrictionSize is size of encoded Restriction in bytes
const restrictionSize = 3*4 + 1 + 4

func appendRestriction(dst []byte, v Restriction) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.From))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.Via))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.To))
	flags := uint8(0)
	if v.IsOnly {
		flags |= restrictionFlagOnly
	}
	if v.Conditional {
		flags |= restrictionFlagConditional
	}
	dst = append(dst, flags)
	return binary.LittleEndian.AppendUint32(dst, v.ConditionID)
}

func decodeRestriction(src []byte) (Restriction, error) {
	if len(src) < restrictionSize {
		return Restriction{}, extsort.ErrShortRecord
	}
	flags := src[12]
	return Restriction{
		From:        NodeID(binary.LittleEndian.Uint32(src[0:])),
		Via:         NodeID(binary.LittleEndian.Uint32(src[4:])),
		To:          NodeID(binary.LittleEndian.Uint32(src[8:])),
		IsOnly:      flags&restrictionFlagOnly != 0,
		Conditional: flags&restrictionFlagConditional != 0,
		ConditionID: binary.LittleEndian.Uint32(src[13:]),
	}, nil
}

type restrictionCodec struct{}

func (restrictionCodec) Append(dst []byte, v Restriction) []byte { return appendRestriction(dst, v) }

func (restrictionCodec) Decode(src []byte) (Restriction, error) { return decodeRestriction(src) }

// restrictionStage accumulates everything known about restriction while it is being resolved
type restrictionStage struct {
	raw RawRestriction

	fromWay WayEndpoint
	viaWay  WayEndpoint
	toWay   WayEndpoint

	// external triple (valid after ways have been attached)
	fromNode osm.NodeID
	viaNode  osm.NodeID
	toNode   osm.NodeID

	// internal triple
	from NodeID
	via  NodeID
	to   NodeID
}

type restrictionStageCodec struct{}

func (restrictionStageCodec) Append(dst []byte, v restrictionStage) []byte {
	dst = appendRawRestriction(dst, v.raw)
	dst = appendWayEndpoint(dst, v.fromWay)
	dst = appendWayEndpoint(dst, v.viaWay)
	dst = appendWayEndpoint(dst, v.toWay)
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.fromNode))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.viaNode))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.toNode))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.from))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.via))
	return binary.LittleEndian.AppendUint32(dst, uint32(v.to))
}

func (restrictionStageCodec) Decode(src []byte) (restrictionStage, error) {
	raw, src, err := decodeRawRestriction(src)
	if err != nil {
		return restrictionStage{}, err
	}
	if len(src) < 3*wayEndpointSize+3*8+3*4 {
		return restrictionStage{}, extsort.ErrShortRecord
	}
	v := restrictionStage{raw: raw}
	v.fromWay, _ = decodeWayEndpoint(src[0:])
	v.viaWay, _ = decodeWayEndpoint(src[wayEndpointSize:])
	v.toWay, _ = decodeWayEndpoint(src[2*wayEndpointSize:])
	src = src[3*wayEndpointSize:]
	v.fromNode = osm.NodeID(binary.LittleEndian.Uint64(src[0:]))
	v.viaNode = osm.NodeID(binary.LittleEndian.Uint64(src[8:]))
	v.toNode = osm.NodeID(binary.LittleEndian.Uint64(src[16:]))
	v.from = NodeID(binary.LittleEndian.Uint32(src[24:]))
	v.via = NodeID(binary.LittleEndian.Uint32(src[28:]))
	v.to = NodeID(binary.LittleEndian.Uint32(src[32:]))
	return v, nil
}
