package domain

import (
	"fmt"
	"math"
)

// Immutable geographic point (longitude, latitude) in decimal degrees.
type GeoPoint struct {
	Lon float64
	Lat float64
}

// Valid reports whether the point lies inside the WGS84 coordinate ranges.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) {
		return false
	}
	return p.Lon >= -180 && p.Lon <= 180 && p.Lat >= -90 && p.Lat <= 90
}

// Return coordinates as [lon, lat] for external API compatibility.
func (p GeoPoint) CoordsToList() []float64 { return []float64{p.Lon, p.Lat} }

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lon, p.Lat)
}

// InvalidPoint stands in for a waypoint the backend sent but that cannot be
// drawn. The zero GeoPoint is a real place and must not be used for that.
var InvalidPoint = GeoPoint{Lon: math.NaN(), Lat: math.NaN()}

// GeoPointFromList parses a [lon, lat] pair as sent by the position feed.
func GeoPointFromList(c []float64) (GeoPoint, error) {
	if len(c) != 2 {
		return GeoPoint{}, fmt.Errorf("coordinate must have 2 elements, got %d", len(c))
	}

	p := GeoPoint{Lon: c[0], Lat: c[1]}
	if !p.Valid() {
		return GeoPoint{}, fmt.Errorf("coordinate %v out of range", p)
	}

	return p, nil
}
