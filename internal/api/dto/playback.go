package dto

type PlaybackResponse struct {
	TripID         string      `json:"trip_id"`
	Path           [][]float64 `json:"path"`
	IsApproximate  bool        `json:"is_approximate"`
	DepartureLabel string      `json:"departure_label"`
	ArrivalLabel   string      `json:"arrival_label"`
	Ongoing        bool        `json:"ongoing"`
	NoSpatialData  bool        `json:"no_spatial_data"`
	Message        string      `json:"message,omitempty"`
}

type SelectTripRequest struct {
	TripID string `json:"trip_id"`
}

type SessionResponse struct {
	SessionID string            `json:"session_id"`
	State     string            `json:"state"`
	Playback  *PlaybackResponse `json:"playback,omitempty"`
}
