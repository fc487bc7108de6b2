package backend

import (
	"errors"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/platform/httpx"
	"strings"
	"time"
)

// coordinate is the backend's [lon, lat] pair.
type coordinate []float64

type waypoint struct {
	Coordinate coordinate `json:"coordinate"`
	At         time.Time  `json:"at"`
}

func newBackendClient(baseURL, token string, timeout time.Duration, opts ...httpx.Option) (*httpx.Client, string, error) {
	if baseURL == "" {
		return nil, "", errors.New("backend base url is empty")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	base := []httpx.Option{}
	if token != "" {
		base = append(base, httpx.WithHeader("Authorization", "Bearer "+token))
	}

	return httpx.NewClient(timeout, append(base, opts...)...), strings.TrimRight(baseURL, "/"), nil
}

func (c coordinate) point() (domain.GeoPoint, error) {
	return domain.GeoPointFromList(c)
}
