package osmextract

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestCoordinateRoundTrip(t *testing.T) {
	pt := orb.Point{37.6417350769043, 55.751849391735284}
	c := CoordinateFromPoint(pt)
	if c.Lon != 37641735 || c.Lat != 55751849 {
		t.Errorf("Fixed-point coordinate must be (37641735, 55751849), but got (%d, %d)", c.Lon, c.Lat)
	}
	back := c.Point()
	if math.Abs(back.Lon()-pt.Lon()) > 1.0/CoordinatePrecision || math.Abs(back.Lat()-pt.Lat()) > 1.0/CoordinatePrecision {
		t.Errorf("Point must be close to %v, but got %v", pt, back)
	}
}

func TestNegativeCoordinate(t *testing.T) {
	c := NewCoordinate(-73.985656, -40.748433)
	if c.Lon != -73985656 || c.Lat != -40748433 {
		t.Errorf("Fixed-point coordinate must be (-73985656, -40748433), but got (%d, %d)", c.Lon, c.Lat)
	}
}

func TestDistanceMeters(t *testing.T) {
	p1 := NewCoordinate(37.6417350769043, 55.751849391735284)
	p2 := NewCoordinate(37.668514251708984, 55.73261980350401)
	res := 2719.91 // meters
	dist := distanceMeters(p1, p2)
	if math.Abs(dist-res) > 1.0 {
		t.Errorf("Distance must be %f, but got %f", res, dist)
	}
	if distanceMeters(p1, p1) != 0 {
		t.Errorf("Distance between the same points must be zero")
	}
}
