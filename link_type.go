package osmextract

// LinkType is road class of edge
type LinkType uint8

const (
	LINK_MOTORWAY = LinkType(iota + 1)
	LINK_TRUNK
	LINK_PRIMARY
	LINK_SECONDARY
	LINK_TERTIARY
	LINK_RESIDENTIAL
	LINK_LIVING_STREET
	LINK_SERVICE
	LINK_CYCLEWAY
	LINK_FOOTWAY
	LINK_TRACK
	LINK_UNCLASSIFIED
	LINK_UNDEFINED = LinkType(0)
)

func (iotaIdx LinkType) String() string {
	if iotaIdx > LINK_UNCLASSIFIED {
		return "undefined"
	}
	return [...]string{"undefined", "motorway", "trunk", "primary", "secondary", "tertiary", "residential", "living_street", "service", "cycleway", "footway", "track", "unclassified"}[iotaIdx]
}

var (
	linkTypeByHighway = map[string]LinkType{
		"motorway":         LINK_MOTORWAY,
		"motorway_link":    LINK_MOTORWAY,
		"trunk":            LINK_TRUNK,
		"trunk_link":       LINK_TRUNK,
		"primary":          LINK_PRIMARY,
		"primary_link":     LINK_PRIMARY,
		"secondary":        LINK_SECONDARY,
		"secondary_link":   LINK_SECONDARY,
		"tertiary":         LINK_TERTIARY,
		"tertiary_link":    LINK_TERTIARY,
		"residential":      LINK_RESIDENTIAL,
		"residential_link": LINK_RESIDENTIAL,
		"living_street":    LINK_LIVING_STREET,
		"service":          LINK_SERVICE,
		"services":         LINK_SERVICE,
		"cycleway":         LINK_CYCLEWAY,
		"footway":          LINK_FOOTWAY,
		"pedestrian":       LINK_FOOTWAY,
		"steps":            LINK_FOOTWAY,
		"track":            LINK_TRACK,
		"unclassified":     LINK_UNCLASSIFIED,
	}

	// km/h
	defaultSpeedByLinkType = map[LinkType]float64{
		LINK_MOTORWAY:      120,
		LINK_TRUNK:         100,
		LINK_PRIMARY:       80,
		LINK_SECONDARY:     60,
		LINK_TERTIARY:      40,
		LINK_RESIDENTIAL:   30,
		LINK_LIVING_STREET: 10,
		LINK_SERVICE:       30,
		LINK_CYCLEWAY:      5,
		LINK_FOOTWAY:       5,
		LINK_TRACK:         30,
		LINK_UNCLASSIFIED:  30,
	}
)
