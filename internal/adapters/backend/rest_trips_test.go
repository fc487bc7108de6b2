package backend

import (
	"context"
	"errors"
	"fleet-playback-service/internal/platform/httpx"
	"fleet-playback-service/internal/ports"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func tripServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/trips/done":
			w.Write([]byte(`{
				"id": "done", "vehicleId": "v-1",
				"departure": {"coordinate": [11.50, 3.85], "at": "2026-01-01T08:00:00Z"},
				"arrival": {"coordinate": [11.52, 3.86], "at": "2026-01-01T08:30:00Z"}
			}`))
		case "/trips/running":
			w.Write([]byte(`{
				"id": "running", "vehicleId": "v-2",
				"departure": {"coordinate": [11.50, 3.85], "at": "2026-01-01T08:00:00Z"},
				"arrival": null
			}`))
		case "/trips/broken":
			w.Write([]byte(`{
				"id": "broken", "vehicleId": "v-3",
				"departure": {"coordinate": [], "at": "2026-01-01T08:00:00Z"},
				"arrival": null
			}`))
		case "/trips/flaky":
			http.Error(w, "oops", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestRESTTripClientGetTrip(t *testing.T) {
	srv := tripServer(t)
	defer srv.Close()

	c, err := NewRESTTripClient(srv.URL, "", 0, httpx.WithRetry(1, time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trip, err := c.GetTrip(context.Background(), "done")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.VehicleID != "v-1" || trip.TripID != "done" {
		t.Fatalf("trip = %+v", trip)
	}
	if trip.IsOngoing() || !trip.HasArrival() {
		t.Fatalf("ended trip reported as ongoing")
	}
	if got := trip.ArrivalAt.Sub(trip.DepartureAt); got != 30*time.Minute {
		t.Fatalf("duration = %v, want 30m", got)
	}

	running, err := c.GetTrip(context.Background(), "running")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !running.IsOngoing() {
		t.Fatalf("trip without arrival should be ongoing")
	}

	broken, err := c.GetTrip(context.Background(), "broken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if broken.HasDeparture() || broken.Validate() == nil {
		t.Fatalf("broken departure should fail validation")
	}
}

func TestRESTTripClientErrors(t *testing.T) {
	srv := tripServer(t)
	defer srv.Close()

	c, _ := NewRESTTripClient(srv.URL, "", 0, httpx.WithRetry(1, time.Millisecond))

	if _, err := c.GetTrip(context.Background(), "nope"); !errors.Is(err, ports.ErrTripNotFound) {
		t.Fatalf("err = %v, want ErrTripNotFound", err)
	}
	if _, err := c.GetTrip(context.Background(), "flaky"); !errors.Is(err, ports.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
}
