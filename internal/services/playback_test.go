package services

import (
	"context"
	"errors"
	"fleet-playback-service/internal/adapters/backend"
	"fleet-playback-service/internal/adapters/geocode"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/metrics"
	"fleet-playback-service/internal/ports"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingSurface struct {
	mu       sync.Mutex
	rendered []domain.PlaybackView
	clears   int
}

func (s *recordingSurface) Render(v domain.PlaybackView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rendered = append(s.rendered, v)
}

func (s *recordingSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
}

func (s *recordingSurface) snapshot() ([]domain.PlaybackView, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PlaybackView(nil), s.rendered...), s.clears
}

func tripOf(id, vehicleID string, b domain.TripBoundary) domain.Trip {
	b.TripID = id
	return domain.Trip{VehicleID: vehicleID, TripBoundary: b}
}

func testGeocoder() *geocode.MockReverseGeocoder {
	b := endedBoundary()
	return geocode.NewMockReverseGeocoder(map[domain.GeoPoint]ports.Address{
		b.Departure: {Road: "Rue Nachtigal", City: "Yaoundé"},
		*b.Arrival:  {Neighbourhood: "Bastos"},
	})
}

type playbackFixture struct {
	playback  *Playback
	positions *backend.MockPositionSource
	surface   *recordingSurface
	metrics   *metrics.Collector
}

func newPlaybackFixture(byVehicle map[string][]domain.TimestampedPosition, now time.Time) playbackFixture {
	m := metrics.NewCollector()
	src := backend.NewMockPositionSource(byVehicle)
	surface := &recordingSurface{}
	resolver := NewPlaceNameResolver(testGeocoder(), WithResolverMetrics(m))

	p := NewPlayback(src, resolver, PlaybackConfig{
		PositionLimit: 100,
		Now:           func() time.Time { return now },
		Surface:       surface,
		Metrics:       m,
	})

	return playbackFixture{playback: p, positions: src, surface: surface, metrics: m}
}

func waitView(t *testing.T, p *Playback) domain.PlaybackView {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := p.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait error = %v", err)
	}
	return v
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestPlaybackSelectReachesReady(t *testing.T) {
	f := newPlaybackFixture(map[string][]domain.TimestampedPosition{
		"veh-1": {
			ping(11.510, 3.855, t0.Add(20*time.Minute)),
			ping(11.505, 3.852, t0.Add(10*time.Minute)),
		},
	}, t0.Add(time.Hour))

	if got := f.playback.State(); got != StateIdle {
		t.Fatalf("initial state = %v, want idle", got)
	}

	f.playback.Select(context.Background(), tripOf("trip-1", "veh-1", endedBoundary()))
	v := waitView(t, f.playback)

	if f.playback.State() != StateReady {
		t.Fatalf("state = %v, want ready", f.playback.State())
	}
	if len(v.Path) != 4 {
		t.Fatalf("path len = %d, want 4", len(v.Path))
	}
	if v.IsApproximate {
		t.Fatalf("IsApproximate = true, want false")
	}
	if v.DepartureLabel != "Rue Nachtigal, Yaoundé" {
		t.Fatalf("DepartureLabel = %q", v.DepartureLabel)
	}
	if v.ArrivalLabel != "Bastos" {
		t.Fatalf("ArrivalLabel = %q", v.ArrivalLabel)
	}

	rendered, _ := f.surface.snapshot()
	if len(rendered) != 1 || rendered[0].TripID != "trip-1" {
		t.Fatalf("rendered = %+v, want one view of trip-1", rendered)
	}

	q := f.positions.Queries()
	if len(q) != 1 {
		t.Fatalf("queries = %d, want 1", len(q))
	}
	if !q[0].From.Equal(t0) || !q[0].To.Equal(t0.Add(30*time.Minute)) || q[0].Limit != 100 {
		t.Fatalf("query = %+v, want window of the trip with limit 100", q[0])
	}
}

func TestPlaybackLastSelectionWins(t *testing.T) {
	f := newPlaybackFixture(map[string][]domain.TimestampedPosition{
		"veh-a": {ping(11.505, 3.852, t0.Add(10*time.Minute))},
		"veh-b": {
			ping(11.506, 3.853, t0.Add(5*time.Minute)),
			ping(11.507, 3.854, t0.Add(6*time.Minute)),
		},
	}, t0.Add(time.Hour))

	release := f.positions.Hold("veh-a")

	f.playback.Select(context.Background(), tripOf("trip-a", "veh-a", endedBoundary()))
	f.playback.Select(context.Background(), tripOf("trip-b", "veh-b", endedBoundary()))

	v := waitView(t, f.playback)
	if v.TripID != "trip-b" {
		t.Fatalf("TripID = %q, want trip-b", v.TripID)
	}

	release()
	eventually(t, func() bool { return testutil.ToFloat64(f.metrics.PlaybackStale) == 1 }, "stale discard of trip-a")

	v, ok := f.playback.View()
	if !ok || v.TripID != "trip-b" || len(v.Path) != 4 {
		t.Fatalf("View() = %+v, %v; want trip-b with 4 points", v, ok)
	}

	rendered, _ := f.surface.snapshot()
	for _, r := range rendered {
		if r.TripID == "trip-a" {
			t.Fatalf("stale trip-a was rendered")
		}
	}
}

func TestPlaybackCloseDiscardsInFlightResult(t *testing.T) {
	f := newPlaybackFixture(map[string][]domain.TimestampedPosition{
		"veh-1": {ping(11.505, 3.852, t0.Add(10*time.Minute))},
	}, t0.Add(time.Hour))

	release := f.positions.Hold("veh-1")
	f.playback.Select(context.Background(), tripOf("trip-1", "veh-1", endedBoundary()))

	if got := f.playback.State(); got != StateLoading {
		t.Fatalf("state = %v, want loading", got)
	}

	f.playback.Close()
	release()
	eventually(t, func() bool { return testutil.ToFloat64(f.metrics.PlaybackStale) == 1 }, "stale discard")

	if got := f.playback.State(); got != StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}
	rendered, clears := f.surface.snapshot()
	if len(rendered) != 0 {
		t.Fatalf("rendered %d views after close, want 0", len(rendered))
	}
	if clears != 1 {
		t.Fatalf("clears = %d, want 1", clears)
	}
}

func TestPlaybackNoSpatialDataSkipsFetch(t *testing.T) {
	f := newPlaybackFixture(nil, t0.Add(time.Hour))

	broken := domain.TripBoundary{DepartureAt: t0}
	broken.Departure = domain.GeoPoint{Lon: 200, Lat: 3.85}

	f.playback.Select(context.Background(), tripOf("trip-x", "veh-1", broken))
	v := waitView(t, f.playback)

	if !v.NoSpatialData || v.Message != NoSpatialDataMessage {
		t.Fatalf("view = %+v, want no-spatial-data message", v)
	}
	if len(v.Path) != 0 {
		t.Fatalf("path = %v, want empty", v.Path)
	}
	if n := len(f.positions.Queries()); n != 0 {
		t.Fatalf("queries = %d, want 0", n)
	}
	if got := testutil.ToFloat64(f.metrics.PlaybackNoSpatial); got != 1 {
		t.Fatalf("no spatial counter = %v, want 1", got)
	}
}

func TestPlaybackFetchFailureFallsBackToEndpoints(t *testing.T) {
	f := newPlaybackFixture(nil, t0.Add(time.Hour))
	f.positions.Fail("veh-1", fmt.Errorf("fetch: %w", ports.ErrSourceUnavailable))

	f.playback.Select(context.Background(), tripOf("trip-1", "veh-1", endedBoundary()))
	v := waitView(t, f.playback)

	b := endedBoundary()
	if len(v.Path) != 2 || v.Path[0] != b.Departure || v.Path[1] != *b.Arrival {
		t.Fatalf("path = %v, want [departure, arrival]", v.Path)
	}
	if !v.IsApproximate {
		t.Fatalf("IsApproximate = false, want true")
	}
	if got := testutil.ToFloat64(f.metrics.PlaybackApproximate); got != 1 {
		t.Fatalf("approximate counter = %v, want 1", got)
	}
}

func TestPlaybackOngoingTripUsesNowAsWindowEnd(t *testing.T) {
	now := t0.Add(45 * time.Minute)
	f := newPlaybackFixture(map[string][]domain.TimestampedPosition{
		"veh-1": {ping(11.505, 3.852, t0.Add(10*time.Minute))},
	}, now)

	b := endedBoundary()
	b.Arrival, b.ArrivalAt = nil, nil

	f.playback.Select(context.Background(), tripOf("trip-1", "veh-1", b))
	v := waitView(t, f.playback)

	if !v.Ongoing {
		t.Fatalf("Ongoing = false, want true")
	}
	if v.ArrivalLabel != "" {
		t.Fatalf("ArrivalLabel = %q, want empty", v.ArrivalLabel)
	}
	if len(v.Path) != 2 || v.Path[0] != b.Departure {
		t.Fatalf("path = %v, want departure then one ping", v.Path)
	}
	if q := f.positions.Queries(); len(q) != 1 || !q[0].To.Equal(now) {
		t.Fatalf("queries = %+v, want window ending at now", q)
	}
}

func TestPlaybackWaitWhenIdle(t *testing.T) {
	f := newPlaybackFixture(nil, t0)

	_, err := f.playback.Wait(context.Background())
	if !errors.Is(err, ErrPlaybackIdle) {
		t.Fatalf("Wait error = %v, want ErrPlaybackIdle", err)
	}
}

func TestPlaybackSurvivesCallerCancellation(t *testing.T) {
	f := newPlaybackFixture(map[string][]domain.TimestampedPosition{
		"veh-1": {ping(11.505, 3.852, t0.Add(10*time.Minute))},
	}, t0.Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	release := f.positions.Hold("veh-1")
	f.playback.Select(ctx, tripOf("trip-1", "veh-1", endedBoundary()))
	cancel()
	release()

	v := waitView(t, f.playback)
	if v.IsApproximate || len(v.Path) != 3 {
		t.Fatalf("view = %+v, want exact path with 3 points", v)
	}
}
