package services

import (
	"fleet-playback-service/internal/domain"
	"slices"
)

// AssembleTrajectory stitches the trip boundary to the recorded positions.
//
// Positions are stably sorted by RecordedAt, so pings sharing a timestamp keep
// their fetch order and are never deduplicated. The departure point is
// prepended and, when the trip has ended, the arrival point is appended.
// Without any position the result degrades to a straight line between the
// known endpoints and is flagged approximate.
func AssembleTrajectory(boundary domain.TripBoundary, positions []domain.TimestampedPosition) domain.Trajectory {
	return BuildTrajectory(boundary, positions, nil)
}

// BuildTrajectory is AssembleTrajectory for a fetch that may have failed.
// A fetch error never propagates: it yields the approximate fallback.
func BuildTrajectory(
	boundary domain.TripBoundary,
	positions []domain.TimestampedPosition,
	fetchErr error,
) domain.Trajectory {
	if fetchErr != nil {
		positions = nil
	}

	sorted := slices.Clone(positions)
	slices.SortStableFunc(sorted, func(a, b domain.TimestampedPosition) int {
		return a.RecordedAt.Compare(b.RecordedAt)
	})

	path := make([]domain.GeoPoint, 0, len(sorted)+2)
	if boundary.HasDeparture() {
		path = append(path, boundary.Departure)
	}
	for _, p := range sorted {
		path = append(path, p.Point)
	}
	if boundary.HasArrival() {
		path = append(path, *boundary.Arrival)
	}

	return domain.Trajectory{
		TripID:        boundary.TripID,
		Path:          path,
		IsApproximate: len(sorted) == 0,
	}
}
