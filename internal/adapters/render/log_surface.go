package render

import (
	"fleet-playback-service/internal/domain"
	"log"
)

// LogSurface writes one line per playback frame. It is the surface used by
// dashboard sessions, whose clients read state by polling.
type LogSurface struct {
	Session string
}

func NewLogSurface(session string) *LogSurface {
	return &LogSurface{Session: session}
}

func (s *LogSurface) Render(v domain.PlaybackView) {
	if v.NoSpatialData {
		log.Printf("session=%s trip=%s render: %s", s.Session, v.TripID, v.Message)
		return
	}
	log.Printf(
		"session=%s trip=%s render points=%d approximate=%t ongoing=%t from=%q to=%q",
		s.Session, v.TripID, len(v.Path), v.IsApproximate, v.Ongoing, v.DepartureLabel, v.ArrivalLabel,
	)
}

func (s *LogSurface) Clear() {
	log.Printf("session=%s render cleared", s.Session)
}
