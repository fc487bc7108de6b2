package backend

import (
	"context"
	"fleet-playback-service/internal/domain"
	"sync"
	"time"
)

type PositionQuery struct {
	VehicleID string
	From, To  time.Time
	Limit     int
}

// MockPositionSource serves canned pings per vehicle and records queries.
// Held vehicles ignore context cancellation, like a request that cannot be
// aborted once sent.
type MockPositionSource struct {
	mu        sync.Mutex
	positions map[string][]domain.TimestampedPosition
	errs      map[string]error
	gates     map[string]chan struct{}
	queries   []PositionQuery
}

func NewMockPositionSource(byVehicle map[string][]domain.TimestampedPosition) *MockPositionSource {
	if byVehicle == nil {
		byVehicle = map[string][]domain.TimestampedPosition{}
	}
	return &MockPositionSource{
		positions: byVehicle,
		errs:      map[string]error{},
		gates:     map[string]chan struct{}{},
	}
}

func (m *MockPositionSource) Fail(vehicleID string, err error) {
	m.mu.Lock()
	m.errs[vehicleID] = err
	m.mu.Unlock()
}

// Hold blocks fetches for vehicleID until release is called.
func (m *MockPositionSource) Hold(vehicleID string) (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gates[vehicleID] = gate
	m.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (m *MockPositionSource) Queries() []PositionQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PositionQuery, len(m.queries))
	copy(out, m.queries)
	return out
}

func (m *MockPositionSource) FetchPositions(
	ctx context.Context,
	vehicleID string,
	windowStart time.Time,
	windowEnd time.Time,
	limit int,
) ([]domain.TimestampedPosition, error) {
	m.mu.Lock()
	m.queries = append(m.queries, PositionQuery{VehicleID: vehicleID, From: windowStart, To: windowEnd, Limit: limit})
	gate := m.gates[vehicleID]
	err := m.errs[vehicleID]
	all := m.positions[vehicleID]
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	if err != nil {
		return nil, err
	}

	out := make([]domain.TimestampedPosition, 0, len(all))
	for _, p := range all {
		if p.RecordedAt.Before(windowStart) || p.RecordedAt.After(windowEnd) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, p)
	}

	return out, nil
}
