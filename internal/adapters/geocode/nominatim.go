package geocode

import (
	"context"
	"errors"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/platform/httpx"
	"fleet-playback-service/internal/platform/obs"
	"fleet-playback-service/internal/ports"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		Road          string `json:"road"`
		Pedestrian    string `json:"pedestrian"`
		Neighbourhood string `json:"neighbourhood"`
		Suburb        string `json:"suburb"`
		Quarter       string `json:"quarter"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		Hamlet        string `json:"hamlet"`
		County        string `json:"county"`
	} `json:"address"`
}

// NominatimGeocoder implements ReverseGeocoder against an OSM Nominatim
// instance (/reverse). Requests are rate limited; the public instance
// allows one request per second and requires an identifying User-Agent.
type NominatimGeocoder struct {
	client   *httpx.Client
	baseURL  string
	language string
	zoom     int
}

type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Language  string
	Zoom      int
	Rate      float64 // requests per second
	Timeout   time.Duration
}

func NewNominatimGeocoder(cfg NominatimConfig, opts ...httpx.Option) (*NominatimGeocoder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("nominatim base url is empty")
	}
	if cfg.UserAgent == "" {
		return nil, errors.New("nominatim user agent is empty")
	}

	if cfg.Zoom <= 0 {
		cfg.Zoom = 18
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	base := []httpx.Option{
		httpx.WithHeader("User-Agent", cfg.UserAgent),
		httpx.WithRateLimit(cfg.Rate),
		// One HTTP request per lookup; a failed lookup is not retried.
		httpx.WithRetry(1, 0),
	}

	return &NominatimGeocoder{
		client:   httpx.NewClient(cfg.Timeout, append(base, opts...)...),
		baseURL:  cfg.BaseURL,
		language: cfg.Language,
		zoom:     cfg.Zoom,
	}, nil
}

func (n *NominatimGeocoder) Reverse(ctx context.Context, p domain.GeoPoint) (_ ports.Address, err error) {
	defer obs.Time(ctx, "nominatim.Reverse")(&err)

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', -1, 64))
	q.Set("zoom", strconv.Itoa(n.zoom))
	q.Set("addressdetails", "1")
	if n.language != "" {
		q.Set("accept-language", n.language)
	}

	var decoded reverseResponse
	if err := n.client.GetJSON(ctx, n.baseURL+"/reverse?"+q.Encode(), &decoded); err != nil {
		if errors.Is(err, httpx.ErrNotSent) {
			return ports.Address{}, fmt.Errorf("reverse geocode %v: %w: %w", p, ports.ErrLookupNotSent, err)
		}
		return ports.Address{}, fmt.Errorf("reverse geocode %v: %w", p, err)
	}

	if decoded.Error != "" {
		return ports.Address{}, fmt.Errorf("reverse geocode %v: %s", p, decoded.Error)
	}

	a := decoded.Address
	return ports.Address{
		Road:          firstNonEmpty(a.Road, a.Pedestrian),
		Neighbourhood: firstNonEmpty(a.Neighbourhood, a.Suburb, a.Quarter),
		City:          firstNonEmpty(a.City, a.Town),
		Village:       firstNonEmpty(a.Village, a.Hamlet),
		County:        a.County,
		DisplayName:   decoded.DisplayName,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
