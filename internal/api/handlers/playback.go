package handlers

import (
	"context"
	"errors"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/platform/obs"
	"fleet-playback-service/internal/ports"
	"fleet-playback-service/internal/services"
	"log"
	"net/http"
	"strings"
	"time"
)

const defaultPlaybackTimeout = 30 * time.Second

// PlaybackHandler answers one-shot playback requests for a trip ID.
type PlaybackHandler struct {
	Trips       ports.TripRepository
	NewPlayback func() *services.Playback
	Timeout     time.Duration
}

func (h *PlaybackHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, view, ok := h.load(w, r)
	if !ok {
		return
	}

	writeJSON(w, r, http.StatusOK, toPlaybackResponse(view))
}

func (h *PlaybackHandler) GeoJSON(w http.ResponseWriter, r *http.Request) {
	trip, view, ok := h.load(w, r)
	if !ok {
		return
	}

	body, err := playbackGeoJSON(trip, view).MarshalJSON()
	if err != nil {
		log.Printf("req_id=%s geojson encode failed: %v", obs.RequestID(r.Context()), err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// load looks the trip up and drives a fresh playback to Ready. It writes the
// error response itself and reports whether the caller should continue.
func (h *PlaybackHandler) load(w http.ResponseWriter, r *http.Request) (domain.Trip, domain.PlaybackView, bool) {
	trip, ok := lookupTrip(w, r, h.Trips, r.PathValue("tripID"))
	if !ok {
		return domain.Trip{}, domain.PlaybackView{}, false
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultPlaybackTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	p := h.NewPlayback()
	defer p.Close()

	p.Select(ctx, trip)
	view, err := p.Wait(ctx)
	if err != nil {
		log.Printf("req_id=%s trip=%s playback wait failed: %v", obs.RequestID(ctx), trip.TripID, err)
		writeError(w, r, http.StatusGatewayTimeout, "playback timed out")
		return domain.Trip{}, domain.PlaybackView{}, false
	}

	return trip, view, true
}

func lookupTrip(w http.ResponseWriter, r *http.Request, trips ports.TripRepository, tripID string) (domain.Trip, bool) {
	tripID = strings.TrimSpace(tripID)
	if tripID == "" {
		writeError(w, r, http.StatusBadRequest, "trip id is required")
		return domain.Trip{}, false
	}

	trip, err := trips.GetTrip(r.Context(), tripID)
	switch {
	case errors.Is(err, ports.ErrTripNotFound):
		writeError(w, r, http.StatusNotFound, "trip not found")
		return domain.Trip{}, false
	case err != nil:
		log.Printf("req_id=%s trip=%s lookup failed: %v", obs.RequestID(r.Context()), tripID, err)
		writeError(w, r, http.StatusBadGateway, "trip backend unavailable")
		return domain.Trip{}, false
	}

	return trip, true
}
