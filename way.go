package osmextract

import (
	"encoding/binary"

	"github.com/LdDl/osmextract/extsort"
	"github.com/paulmach/osm"
)

// RawWay keeps attributes of way before profile evaluation
type RawWay struct {
	ID   osm.WayID
	Name string
	Tags osm.Tags
}

type rawWayCodec struct{}

func (rawWayCodec) Append(dst []byte, v RawWay) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.ID))
	dst = appendString(dst, v.Name)
	dst = binary.AppendUvarint(dst, uint64(len(v.Tags)))
	for _, tag := range v.Tags {
		dst = appendString(dst, tag.Key)
		dst = appendString(dst, tag.Value)
	}
	return dst
}

func (rawWayCodec) Decode(src []byte) (RawWay, error) {
	if len(src) < 8 {
		return RawWay{}, extsort.ErrShortRecord
	}
	way := RawWay{
		ID: osm.WayID(binary.LittleEndian.Uint64(src)),
	}
	var err error
	way.Name, src, err = readString(src[8:])
	if err != nil {
		return RawWay{}, err
	}
	tagsNum, n := binary.Uvarint(src)
	if n <= 0 {
		return RawWay{}, extsort.ErrShortRecord
	}
	src = src[n:]
	if tagsNum > 0 {
		way.Tags = make(osm.Tags, 0, tagsNum)
	}
	for i := uint64(0); i < tagsNum; i++ {
		tag := osm.Tag{}
		tag.Key, src, err = readString(src)
		if err != nil {
			return RawWay{}, err
		}
		tag.Value, src, err = readString(src)
		if err != nil {
			return RawWay{}, err
		}
		way.Tags = append(way.Tags, tag)
	}
	return way, nil
}

// WayEndpoint keeps first and last segments of way.
// Those are needed to turn way members of restrictions into node triples
type WayEndpoint struct {
	WayID     osm.WayID
	FirstNode osm.NodeID
	FirstNext osm.NodeID // second node of the way
	LastPrev  osm.NodeID // next to last node of the way
	LastNode  osm.NodeID
}

// touches reports whether given node is one of way endpoints
func (endpoint WayEndpoint) touches(nodeID osm.NodeID) bool {
	return endpoint.FirstNode == nodeID || endpoint.LastNode == nodeID
}

// neighbour returns node adjacent to given endpoint along the way
func (endpoint WayEndpoint) neighbour(nodeID osm.NodeID) (osm.NodeID, bool) {
	switch nodeID {
	case endpoint.FirstNode:
		return endpoint.FirstNext, true
	case endpoint.LastNode:
		return endpoint.LastPrev, true
	default:
		return 0, false
	}
}

// opposite returns the other endpoint of the way
func (endpoint WayEndpoint) opposite(nodeID osm.NodeID) osm.NodeID {
	if nodeID == endpoint.FirstNode {
		return endpoint.LastNode
	}
	return endpoint.FirstNode
}

const wayEndpointSize = 5 * 8

func appendWayEndpoint(dst []byte, v WayEndpoint) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.WayID))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.FirstNode))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.FirstNext))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(v.LastPrev))
	return binary.LittleEndian.AppendUint64(dst, uint64(v.LastNode))
}

func decodeWayEndpoint(src []byte) (WayEndpoint, error) {
	if len(src) < wayEndpointSize {
		return WayEndpoint{}, extsort.ErrShortRecord
	}
	return WayEndpoint{
		WayID:     osm.WayID(binary.LittleEndian.Uint64(src[0:])),
		FirstNode: osm.NodeID(binary.LittleEndian.Uint64(src[8:])),
		FirstNext: osm.NodeID(binary.LittleEndian.Uint64(src[16:])),
		LastPrev:  osm.NodeID(binary.LittleEndian.Uint64(src[24:])),
		LastNode:  osm.NodeID(binary.LittleEndian.Uint64(src[32:])),
	}, nil
}

type wayEndpointCodec struct{}

func (wayEndpointCodec) Append(dst []byte, v WayEndpoint) []byte { return appendWayEndpoint(dst, v) }

func (wayEndpointCodec) Decode(src []byte) (WayEndpoint, error) { return decodeWayEndpoint(src) }
