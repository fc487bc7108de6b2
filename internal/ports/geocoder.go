package ports

import (
	"context"
	"errors"
	"fleet-playback-service/internal/domain"
)

// ErrLookupNotSent means the geocoder gave up before asking the remote
// service (for example while waiting for a rate-limit slot). Such a miss
// says nothing about the point and must not be remembered.
var ErrLookupNotSent = errors.New("reverse geocode lookup not sent")

// Structured address breakdown returned by a reverse geocoding service.
type Address struct {
	Road          string
	Neighbourhood string
	City          string
	Village       string
	County        string
	DisplayName   string
}

// Contract for a single outbound reverse geocoding lookup.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, p domain.GeoPoint) (Address, error)
}

// Optional persistent tier for resolved place labels, keyed by quantized point.
type PlaceLabelStore interface {
	GetLabel(ctx context.Context, key string) (label string, ok bool, err error)
	PutLabel(ctx context.Context, key string, label string) error
}
