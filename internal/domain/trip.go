package domain

import (
	"errors"
	"time"
)

// ErrNoSpatialData marks a trip whose boundary carries neither a usable
// departure point nor a usable arrival point.
var ErrNoSpatialData = errors.New("no spatial data for this trip")

// TripBoundary is the authoritative start/end record of a trip.
// Arrival and ArrivalAt are nil while the trip is still in progress.
type TripBoundary struct {
	TripID      string
	Departure   GeoPoint
	DepartureAt time.Time
	Arrival     *GeoPoint
	ArrivalAt   *time.Time
}

// IsOngoing is the one place that decides whether a trip is still running:
// a trip without an arrival timestamp has not ended.
func (b TripBoundary) IsOngoing() bool {
	return b.ArrivalAt == nil
}

// HasDeparture reports whether the departure waypoint is usable.
func (b TripBoundary) HasDeparture() bool {
	return b.Departure.Valid()
}

// HasArrival reports whether the arrival waypoint is present and usable.
func (b TripBoundary) HasArrival() bool {
	return b.Arrival != nil && b.Arrival.Valid()
}

// Validate returns ErrNoSpatialData when nothing about the trip can be drawn.
func (b TripBoundary) Validate() error {
	if !b.HasDeparture() && !b.HasArrival() {
		return ErrNoSpatialData
	}
	return nil
}

// Window returns the time range covering the trip. Ongoing trips end at now.
func (b TripBoundary) Window(now time.Time) (time.Time, time.Time) {
	end := now
	if b.ArrivalAt != nil {
		end = *b.ArrivalAt
	}
	if end.Before(b.DepartureAt) {
		end = b.DepartureAt
	}
	return b.DepartureAt, end
}

// Trip is a boundary as stored by the backend, tied to the vehicle that drove it.
type Trip struct {
	VehicleID string
	TripBoundary
}
