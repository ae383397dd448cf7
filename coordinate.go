package osmextract

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// CoordinatePrecision is number of fixed-point units in one degree
const CoordinatePrecision = 1e6

// Coordinate is fixed-point representation of point on Earth
type Coordinate struct {
	Lon int32
	Lat int32
}

// NewCoordinate returns fixed-point coordinate for given degrees
func NewCoordinate(lon, lat float64) Coordinate {
	return Coordinate{
		Lon: int32(math.Round(lon * CoordinatePrecision)),
		Lat: int32(math.Round(lat * CoordinatePrecision)),
	}
}

// CoordinateFromPoint converts orb.Point (lon, lat) to fixed-point coordinate
func CoordinateFromPoint(pt orb.Point) Coordinate {
	return NewCoordinate(pt.Lon(), pt.Lat())
}

// Point returns coordinate as orb.Point
func (c Coordinate) Point() orb.Point {
	return orb.Point{float64(c.Lon) / CoordinatePrecision, float64(c.Lat) / CoordinatePrecision}
}

// String returns pretty printed value for Coordinate
func (c Coordinate) String() string {
	pt := c.Point()
	return fmt.Sprintf("Lon: %f | Lat: %f", pt.Lon(), pt.Lat())
}

// distanceMeters returns great-circle distance between two coordinates
func distanceMeters(p, q Coordinate) float64 {
	return geo.Distance(p.Point(), q.Point())
}
