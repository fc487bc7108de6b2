package handlers

import (
	"encoding/json"
	"fleet-playback-service/internal/api/dto"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/platform/obs"
	"log"
	"net/http"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("req_id=%s encode failed: method=%s path=%s err=%v",
			obs.RequestID(r.Context()), r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

func toPlaybackResponse(v domain.PlaybackView) dto.PlaybackResponse {
	path := make([][]float64, 0, len(v.Path))
	for _, p := range v.Path {
		path = append(path, p.CoordsToList())
	}

	return dto.PlaybackResponse{
		TripID:         v.TripID,
		Path:           path,
		IsApproximate:  v.IsApproximate,
		DepartureLabel: v.DepartureLabel,
		ArrivalLabel:   v.ArrivalLabel,
		Ongoing:        v.Ongoing,
		NoSpatialData:  v.NoSpatialData,
		Message:        v.Message,
	}
}
