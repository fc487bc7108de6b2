package domain

// Trajectory is the assembled, renderable path of one trip playback.
// Path always starts at the departure point and, once the trip has ended,
// finishes at the arrival point. IsApproximate marks a straight-line fallback
// built without position pings; renderers draw it differently (dashed).
type Trajectory struct {
	TripID        string
	Path          []GeoPoint
	IsApproximate bool
}

// PlaybackView is everything a map widget needs to draw one trip.
// It carries no fetch, cache or coalescing state.
type PlaybackView struct {
	TripID         string
	Path           []GeoPoint
	IsApproximate  bool
	DepartureLabel string
	ArrivalLabel   string
	Ongoing        bool

	// NoSpatialData is set instead of a path when the trip cannot be drawn.
	NoSpatialData bool
	Message       string
}
