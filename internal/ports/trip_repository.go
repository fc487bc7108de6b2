package ports

import (
	"context"
	"errors"
	"fleet-playback-service/internal/domain"
)

var ErrTripNotFound = errors.New("trip not found")

// Port: a boundary for retrieving trip records from a data source.
type TripRepository interface {
	// Retrieve a single trip; returns ErrTripNotFound when it does not exist.
	GetTrip(ctx context.Context, tripID string) (domain.Trip, error)
}
