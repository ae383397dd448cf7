package osmextract

import (
	"github.com/paulmach/osm"
)

const (
	bikeSpeed = 15.0
	walkSpeed = 5.0
)

// AgentProfile is default WayProfile for given agent type built on highway classification
type AgentProfile struct {
	agentType AgentType
}

// NewAgentProfile returns profile for given agent type
func NewAgentProfile(agentType AgentType) *AgentProfile {
	return &AgentProfile{agentType: agentType}
}

// EvaluateWay rejects non-highways, negligible highways, areas and ways forbidden for agent
func (profile *AgentProfile) EvaluateWay(wayID osm.WayID, name string, tags osm.Tags) (WayAttributes, bool) {
	highway := tags.Find("highway")
	if highway == "" {
		return WayAttributes{}, false
	}
	if _, ok := negligibleHighwayTags[highway]; ok {
		return WayAttributes{}, false
	}
	// Ignore ways `area` tag provided
	if area := tags.Find("area"); area != "" && area != "no" {
		return WayAttributes{}, false
	}
	linkType, ok := linkTypeByHighway[highway]
	if !ok {
		return WayAttributes{}, false
	}
	if !agentAllowed(profile.agentType, tags) {
		return WayAttributes{}, false
	}
	_, roundabout := junctionTypes[tags.Find("junction")]
	attributes := WayAttributes{
		Class:      linkType,
		Roundabout: roundabout,
	}
	switch profile.agentType {
	case AGENT_AUTO:
		speed := defaultSpeedByLinkType[linkType]
		if maxSpeed, ok := parseMaxSpeed(tags.Find("maxspeed")); ok {
			speed = maxSpeed
		}
		attributes.ForwardSpeed, attributes.BackwardSpeed = speed, speed
		if maxSpeed, ok := parseMaxSpeed(tags.Find("maxspeed:forward")); ok {
			attributes.ForwardSpeed = maxSpeed
		}
		if maxSpeed, ok := parseMaxSpeed(tags.Find("maxspeed:backward")); ok {
			attributes.BackwardSpeed = maxSpeed
		}
	case AGENT_BIKE:
		attributes.ForwardSpeed, attributes.BackwardSpeed = bikeSpeed, bikeSpeed
	case AGENT_WALK:
		attributes.ForwardSpeed, attributes.BackwardSpeed = walkSpeed, walkSpeed
	default:
		return WayAttributes{}, false
	}
	return attributes, true
}
