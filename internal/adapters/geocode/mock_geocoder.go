package geocode

import (
	"context"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/ports"
	"fmt"
	"sync"
)

// MockReverseGeocoder serves canned addresses and counts outbound calls.
type MockReverseGeocoder struct {
	mu        sync.Mutex
	addresses map[domain.GeoPoint]ports.Address
	err       error
	gate      chan struct{}
	calls     int
}

func NewMockReverseGeocoder(addresses map[domain.GeoPoint]ports.Address) *MockReverseGeocoder {
	if addresses == nil {
		addresses = map[domain.GeoPoint]ports.Address{}
	}
	return &MockReverseGeocoder{addresses: addresses}
}

// Fail makes every following lookup return err.
func (m *MockReverseGeocoder) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Hold blocks lookups until the returned release func is called.
func (m *MockReverseGeocoder) Hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (m *MockReverseGeocoder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockReverseGeocoder) Reverse(ctx context.Context, p domain.GeoPoint) (ports.Address, error) {
	m.mu.Lock()
	m.calls++
	gate, err := m.gate, m.err
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ports.Address{}, ctx.Err()
		}
	}

	if err != nil {
		return ports.Address{}, err
	}

	a, ok := m.addresses[p]
	if !ok {
		return ports.Address{}, fmt.Errorf("no address for %v", p)
	}

	return a, nil
}
