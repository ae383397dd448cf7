package osmextract

import (
	"github.com/paulmach/osm"
)

type AgentType uint16

const (
	AGENT_AUTO = AgentType(iota + 1)
	AGENT_BIKE
	AGENT_WALK
	AGENT_UNDEFINED = AgentType(0)
)

func (iotaIdx AgentType) String() string {
	return [...]string{"undefined", "auto", "bike", "walk"}[iotaIdx]
}

// ParseAgentType returns agent type by its name
func ParseAgentType(str string) AgentType {
	switch str {
	case "auto":
		return AGENT_AUTO
	case "bike":
		return AGENT_BIKE
	case "walk":
		return AGENT_WALK
	default:
		return AGENT_UNDEFINED
	}
}

var (
	agentsAccessIncludeValues = map[AgentType]map[AccessType]map[string]struct{}{
		AGENT_AUTO: {
			ACCESS_MOTOR_VEHICLE: {
				"yes": struct{}{},
			},
			ACCESS_MOTORCAR: {
				"yes": struct{}{},
			},
		},
		AGENT_BIKE: {
			ACCESS_BICYCLE: {
				"yes": struct{}{},
			},
		},
		AGENT_WALK: {
			ACCESS_FOOT: {
				"yes": struct{}{},
			},
		},
	}

	agentsAccessExcludeValues = map[AgentType]map[AccessType]map[string]struct{}{
		AGENT_AUTO: {
			ACCESS_HIGHWAY: {
				"cycleway":   struct{}{},
				"footway":    struct{}{},
				"pedestrian": struct{}{},
				"steps":      struct{}{},
				"track":      struct{}{},
				"corridor":   struct{}{},
				"elevator":   struct{}{},
				"escalator":  struct{}{},
			},
			ACCESS_MOTOR_VEHICLE: {
				"no": struct{}{},
			},
			ACCESS_MOTORCAR: {
				"no": struct{}{},
			},
			ACCESS_OSM_ACCESS: {
				"private": struct{}{},
				"no":      struct{}{},
			},
			ACCESS_SERVICE: {
				"parking":          struct{}{},
				"parking_aisle":    struct{}{},
				"driveway":         struct{}{},
				"private":          struct{}{},
				"emergency_access": struct{}{},
			},
		},
		AGENT_BIKE: {
			ACCESS_HIGHWAY: {
				"footway":       struct{}{},
				"steps":         struct{}{},
				"corridor":      struct{}{},
				"elevator":      struct{}{},
				"escalator":     struct{}{},
				"motor":         struct{}{},
				"motorway":      struct{}{},
				"motorway_link": struct{}{},
			},
			ACCESS_BICYCLE: {
				"no": struct{}{},
			},
			ACCESS_SERVICE: {
				"private": struct{}{},
			},
			ACCESS_OSM_ACCESS: {
				"private": struct{}{},
				"no":      struct{}{},
			},
		},
		AGENT_WALK: {
			ACCESS_HIGHWAY: {
				"cycleway":      struct{}{},
				"motor":         struct{}{},
				"motorway":      struct{}{},
				"motorway_link": struct{}{},
			},
			ACCESS_FOOT: {
				"no": struct{}{},
			},
			ACCESS_SERVICE: {
				"private": struct{}{},
			},
			ACCESS_OSM_ACCESS: {
				"private": struct{}{},
				"no":      struct{}{},
			},
		},
	}
)

// agentAllowed reports whether agent may use way with given tags.
// Explicit permission (e.g. `motorcar=yes`) wins over any exclusion
func agentAllowed(agentType AgentType, tags osm.Tags) bool {
	for accessType, values := range agentsAccessIncludeValues[agentType] {
		if _, ok := values[tags.Find(accessType.String())]; ok {
			return true
		}
	}
	for accessType, values := range agentsAccessExcludeValues[agentType] {
		if _, ok := values[tags.Find(accessType.String())]; ok {
			return false
		}
	}
	return true
}
