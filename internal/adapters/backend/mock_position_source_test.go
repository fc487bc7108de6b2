package backend

import (
	"context"
	"fleet-playback-service/internal/domain"
	"testing"
	"time"
)

func TestMockPositionSourceWindowAndLimit(t *testing.T) {
	at := func(m int) domain.TimestampedPosition {
		return domain.TimestampedPosition{Point: domain.GeoPoint{Lon: 11.5, Lat: 3.85}, RecordedAt: t0.Add(time.Duration(m) * time.Minute)}
	}
	m := NewMockPositionSource(map[string][]domain.TimestampedPosition{
		"v-1": {at(-5), at(1), at(2), at(3), at(90)},
	})

	got, err := m.FetchPositions(context.Background(), "v-1", t0, t0.Add(time.Hour), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if q := m.Queries(); len(q) != 1 || q[0].Limit != 2 {
		t.Fatalf("queries = %+v", q)
	}
}
