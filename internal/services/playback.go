package services

import (
	"context"
	"errors"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/metrics"
	"fleet-playback-service/internal/platform/obs"
	"fleet-playback-service/internal/ports"
	"log"
	"sync"
	"time"
)

// NoSpatialDataMessage is the one-line text shown instead of a map.
const NoSpatialDataMessage = "No spatial data for this trip"

const defaultPositionLimit = 5000

// ErrPlaybackIdle is returned by Wait when nothing is selected or the
// playback was closed while waiting.
var ErrPlaybackIdle = errors.New("playback is idle")

type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StateLoading
	StateReady
)

func (s PlaybackState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "idle"
	}
}

// PlaceResolver resolves a point to a label and never fails.
type PlaceResolver interface {
	ResolvePlaceName(ctx context.Context, p domain.GeoPoint) string
}

type PlaybackConfig struct {
	// Upper bound on pings fetched per trip.
	PositionLimit int
	// Clock used to close the window of ongoing trips.
	Now func() time.Time
	// Optional; receives Render on Ready and Clear on Close.
	// Called with the playback lock held, so it must not call back into it.
	Surface ports.RenderSurface
	Metrics *metrics.Collector
}

// Playback drives one selected trip through Idle -> Loading -> Ready.
//
// Every Select bumps a monotonic token. Results are committed only while
// their token is still current, so the last selection wins and nothing
// changes state after Close. There is no error state: fetch and geocode
// failures degrade to approximate output and playback always reaches Ready.
type Playback struct {
	positions ports.PositionSource
	places    PlaceResolver
	surface   ports.RenderSurface
	metrics   *metrics.Collector
	limit     int
	now       func() time.Time

	mu     sync.Mutex
	token  uint64
	state  PlaybackState
	view   domain.PlaybackView
	cancel context.CancelFunc
	ready  chan struct{} // non-nil only while loading
}

func NewPlayback(positions ports.PositionSource, places PlaceResolver, cfg PlaybackConfig) *Playback {
	if cfg.PositionLimit <= 0 {
		cfg.PositionLimit = defaultPositionLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Playback{
		positions: positions,
		places:    places,
		surface:   cfg.Surface,
		metrics:   cfg.Metrics,
		limit:     cfg.PositionLimit,
		now:       cfg.Now,
	}
}

// Select starts loading trip and abandons any previous selection.
// Loading outlives ctx's cancellation (only its values are kept); it stops
// on the next Select or on Close. The returned token identifies this selection.
func (p *Playback) Select(ctx context.Context, trip domain.Trip) uint64 {
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.token++
	token := p.token
	p.cancel = cancel
	p.state = StateLoading
	p.view = domain.PlaybackView{}
	p.wake()
	p.ready = make(chan struct{})
	p.mu.Unlock()

	p.metrics.Selected()

	if err := trip.Validate(); err != nil {
		p.commit(loadCtx, token, domain.PlaybackView{
			TripID:        trip.TripID,
			Ongoing:       trip.IsOngoing(),
			NoSpatialData: true,
			Message:       NoSpatialDataMessage,
		})
		return token
	}

	go p.load(loadCtx, token, trip)

	return token
}

// Close returns to Idle. Results still in flight are discarded on arrival.
func (p *Playback) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.token++

	was := p.state
	p.state = StateIdle
	p.view = domain.PlaybackView{}
	p.wake()

	if p.surface != nil && was != StateIdle {
		p.surface.Clear()
	}
}

func (p *Playback) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// View returns the output of the current selection once it is Ready.
func (p *Playback) View() (domain.PlaybackView, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view, p.state == StateReady
}

// Wait blocks until the most recent selection is Ready. A newer Select
// while waiting moves the wait to that selection.
func (p *Playback) Wait(ctx context.Context) (domain.PlaybackView, error) {
	for {
		p.mu.Lock()
		switch p.state {
		case StateReady:
			v := p.view
			p.mu.Unlock()
			return v, nil
		case StateIdle:
			p.mu.Unlock()
			return domain.PlaybackView{}, ErrPlaybackIdle
		}
		ready := p.ready
		p.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return domain.PlaybackView{}, ctx.Err()
		}
	}
}

func (p *Playback) load(ctx context.Context, token uint64, trip domain.Trip) {
	windowStart, windowEnd := trip.Window(p.now())

	var (
		wg             sync.WaitGroup
		positions      []domain.TimestampedPosition
		fetchErr       error
		departureLabel string
		arrivalLabel   string
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		positions, fetchErr = p.positions.FetchPositions(ctx, trip.VehicleID, windowStart, windowEnd, p.limit)
	}()

	if trip.HasDeparture() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			departureLabel = p.places.ResolvePlaceName(ctx, trip.Departure)
		}()
	}

	if trip.HasArrival() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			arrivalLabel = p.places.ResolvePlaceName(ctx, *trip.Arrival)
		}()
	}

	wg.Wait()

	if fetchErr != nil && ctx.Err() == nil {
		log.Printf(
			"req_id=%s trip=%s vehicle=%s positions unavailable, drawing approximate path: %v",
			obs.RequestID(ctx), trip.TripID, trip.VehicleID, fetchErr,
		)
	}

	traj := BuildTrajectory(trip.TripBoundary, positions, fetchErr)

	p.commit(ctx, token, domain.PlaybackView{
		TripID:         traj.TripID,
		Path:           traj.Path,
		IsApproximate:  traj.IsApproximate,
		DepartureLabel: departureLabel,
		ArrivalLabel:   arrivalLabel,
		Ongoing:        trip.IsOngoing(),
	})
}

// commit publishes view if token still names the current selection.
func (p *Playback) commit(ctx context.Context, token uint64, view domain.PlaybackView) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token != p.token || p.state != StateLoading {
		p.metrics.Stale()
		log.Printf("req_id=%s trip=%s discarding stale playback result", obs.RequestID(ctx), view.TripID)
		return false
	}

	p.state = StateReady
	p.view = view
	p.wake()

	switch {
	case view.NoSpatialData:
		p.metrics.NoSpatialData()
	case view.IsApproximate:
		p.metrics.Approximate()
	}

	if p.surface != nil {
		p.surface.Render(view)
	}

	return true
}

// wake releases Wait callers of the current loading phase. Caller holds mu.
func (p *Playback) wake() {
	if p.ready != nil {
		close(p.ready)
		p.ready = nil
	}
}
