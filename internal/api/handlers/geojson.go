package handlers

import (
	"fleet-playback-service/internal/domain"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// playbackGeoJSON renders a playback view as a FeatureCollection: the path
// as a LineString plus one Point per known endpoint.
func playbackGeoJSON(trip domain.Trip, v domain.PlaybackView) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if v.NoSpatialData {
		return fc
	}

	if len(v.Path) >= 2 {
		line := make(orb.LineString, 0, len(v.Path))
		for _, p := range v.Path {
			line = append(line, orb.Point{p.Lon, p.Lat})
		}

		f := geojson.NewFeature(line)
		f.Properties["trip_id"] = v.TripID
		f.Properties["approximate"] = v.IsApproximate
		f.Properties["ongoing"] = v.Ongoing
		fc.Append(f)
	}

	if trip.HasDeparture() {
		fc.Append(marker(trip.Departure, "departure", v.DepartureLabel))
	}
	if trip.HasArrival() {
		fc.Append(marker(*trip.Arrival, "arrival", v.ArrivalLabel))
	}

	return fc
}

func marker(p domain.GeoPoint, role, label string) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{p.Lon, p.Lat})
	f.Properties["role"] = role
	f.Properties["label"] = label
	return f
}
