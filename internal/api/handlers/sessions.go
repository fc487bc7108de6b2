package handlers

import (
	"encoding/json"
	"fleet-playback-service/internal/api/dto"
	"fleet-playback-service/internal/ports"
	"fleet-playback-service/internal/services"
	"io"
	"net/http"
)

// SessionHandler manages long-lived dashboard playback sessions. Selecting a
// trip returns at once; clients poll GET until the state is "ready".
type SessionHandler struct {
	Registry *services.SessionRegistry
	Trips    ports.TripRepository
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := h.Registry.Open()
	writeJSON(w, r, http.StatusCreated, dto.SessionResponse{
		SessionID: id,
		State:     services.StateIdle.String(),
	})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sessionID")
	p, ok := h.Registry.Get(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}

	res := dto.SessionResponse{SessionID: id, State: p.State().String()}
	if view, ready := p.View(); ready {
		pb := toPlaybackResponse(view)
		res.Playback = &pb
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *SessionHandler) SelectTrip(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sessionID")
	if _, ok := h.Registry.Get(id); !ok {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}

	var req dto.SelectTripRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	trip, ok := lookupTrip(w, r, h.Trips, req.TripID)
	if !ok {
		return
	}

	// The session may have been deleted while the trip was looked up.
	state, ok := h.Registry.Select(r.Context(), id, trip)
	if !ok {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, r, http.StatusAccepted, dto.SessionResponse{
		SessionID: id,
		State:     state.String(),
	})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.Registry.Close(r.PathValue("sessionID")) {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
