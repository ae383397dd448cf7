package osmextract

import (
	"github.com/paulmach/osm"
)

// WayAttributes is result of profile evaluation of single way
type WayAttributes struct {
	// ForwardSpeed is speed (km/h) along the way. Zero means way can't be traversed forward
	ForwardSpeed float64
	// BackwardSpeed is speed (km/h) against the way. Zero means way can't be traversed backward
	BackwardSpeed float64
	Class         LinkType
	Roundabout    bool
}

// WayProfile evaluates raw way attributes. Second return value is false when way is not routable
type WayProfile interface {
	EvaluateWay(wayID osm.WayID, name string, tags osm.Tags) (WayAttributes, bool)
}

// ProfileFunc is an adapter to allow the use of ordinary functions as WayProfile
type ProfileFunc func(wayID osm.WayID, name string, tags osm.Tags) (WayAttributes, bool)

// EvaluateWay calls f(wayID, name, tags)
func (f ProfileFunc) EvaluateWay(wayID osm.WayID, name string, tags osm.Tags) (WayAttributes, bool) {
	return f(wayID, name, tags)
}
