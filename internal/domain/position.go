package domain

import "time"

// A single recorded position ping from the backend feed. Read-only.
type TimestampedPosition struct {
	Point      GeoPoint
	RecordedAt time.Time
}
