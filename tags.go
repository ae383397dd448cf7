package osmextract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
)

var (
	junctionTypes = map[string]struct{}{
		"circular":   {},
		"roundabout": {},
	}

	negligibleHighwayTags = map[string]struct{}{
		"path":         {},
		"construction": {},
		"proposed":     {},
		"raceway":      {},
		"bridleway":    {},
		"rest_area":    {},
		"su":           {},
		"road":         {},
		"abandoned":    {},
		"planned":      {},
		"trailhead":    {},
		"stairs":       {},
		"dismantled":   {},
		"disused":      {},
		"razed":        {},
		"access":       {},
		"corridor":     {},
		"stop":         {},
		"bus_stop":     {},
		"platform":     {},
	}

	// See ref.: https://wiki.openstreetmap.org/wiki/Tag:oneway%3Dreversible
	onewayReversible = map[string]struct{}{
		"reversible":  {},
		"alternating": {},
	}

	// Barriers which do not block vehicles
	permeableBarriers = map[string]struct{}{
		"":               {},
		"no":             {},
		"border_control": {},
		"cattle_grid":    {},
		"entrance":       {},
		"toll_booth":     {},
		"sump_buster":    {},
	}
)

var (
	mphRegExp   = regexp.MustCompile(`^(\d+\.?\d*)\s*mph$`)
	kmhRegExp   = regexp.MustCompile(`^(\d+\.?\d*)\s*(km/h|kmh|kph)?$`)
	mphToKmh    = 1.609344
	noMaxSpeeds = map[string]struct{}{
		"none":    {},
		"signals": {},
	}
)

// parseMaxSpeed returns speed limit in km/h. Second value is false when value is absent or can't be parsed
func parseMaxSpeed(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if _, ok := noMaxSpeeds[value]; ok {
		return 0, false
	}
	if found := kmhRegExp.FindStringSubmatch(value); found != nil {
		speed, err := strconv.ParseFloat(found[1], 64)
		if err != nil || speed <= 0 {
			return 0, false
		}
		return speed, true
	}
	if found := mphRegExp.FindStringSubmatch(value); found != nil {
		speed, err := strconv.ParseFloat(found[1], 64)
		if err != nil || speed <= 0 {
			return 0, false
		}
		return speed * mphToKmh, true
	}
	return 0, false
}

// parseOneway returns oneway flags of way.
// Reversible and alternating ways depend on time conditions and are treated as bidirectional
func parseOneway(tags osm.Tags) (oneway bool, isReversed bool, known bool) {
	onewayText := tags.Find("oneway")
	switch onewayText {
	case "yes", "1", "true":
		return true, false, true
	case "no", "0", "false":
		return false, false, true
	case "-1", "reverse":
		return true, true, true
	case "":
		if _, ok := junctionTypes[tags.Find("junction")]; ok {
			return true, false, true
		}
		if tags.Find("highway") == "motorway" {
			return true, false, true
		}
		return false, false, true
	}
	if _, ok := onewayReversible[onewayText]; ok {
		return false, false, true
	}
	return false, false, false
}

// isBarrier reports whether node tags describe barrier blocking vehicles
func isBarrier(tags osm.Tags) bool {
	_, permeable := permeableBarriers[tags.Find("barrier")]
	return !permeable
}
