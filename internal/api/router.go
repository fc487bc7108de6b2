package api

import (
	"fleet-playback-service/internal/api/handlers"
	"fleet-playback-service/internal/metrics"
	"fleet-playback-service/internal/ports"
	"fleet-playback-service/internal/services"
	"net/http"
	"time"
)

type RouterDeps struct {
	Trips           ports.TripRepository
	NewPlayback     func() *services.Playback
	Sessions        *services.SessionRegistry
	Metrics         *metrics.Collector
	PlaybackTimeout time.Duration
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	playbackHandler := &handlers.PlaybackHandler{
		Trips:       deps.Trips,
		NewPlayback: deps.NewPlayback,
		Timeout:     deps.PlaybackTimeout,
	}
	sessionHandler := &handlers.SessionHandler{
		Registry: deps.Sessions,
		Trips:    deps.Trips,
	}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.HandleFunc("GET /trips/{tripID}/playback", playbackHandler.Get)
	mux.HandleFunc("GET /trips/{tripID}/playback.geojson", playbackHandler.GeoJSON)
	mux.HandleFunc("POST /sessions", sessionHandler.Create)
	mux.HandleFunc("GET /sessions/{sessionID}", sessionHandler.Get)
	mux.HandleFunc("PUT /sessions/{sessionID}/trip", sessionHandler.SelectTrip)
	mux.HandleFunc("DELETE /sessions/{sessionID}", sessionHandler.Delete)

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	return requestIDMiddleware(loggingMiddleware(mux))
}
