package ports

import (
	"context"
	"errors"
	"fleet-playback-service/internal/domain"
	"time"
)

// ErrSourceUnavailable wraps every network, server or decode failure of a
// position feed. An empty result is not a failure.
var ErrSourceUnavailable = errors.New("position source unavailable")

// Contract for retrieving recorded positions of a vehicle.
type PositionSource interface {
	// Return at most limit positions recorded in [windowStart, windowEnd].
	// Order is unspecified; callers sort.
	FetchPositions(
		ctx context.Context,
		vehicleID string,
		windowStart time.Time,
		windowEnd time.Time,
		limit int,
	) ([]domain.TimestampedPosition, error)
}
