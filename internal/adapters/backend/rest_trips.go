package backend

import (
	"context"
	"errors"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/platform/httpx"
	"fleet-playback-service/internal/platform/obs"
	"fleet-playback-service/internal/ports"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

type tripRecord struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicleId"`
	Departure waypoint  `json:"departure"`
	Arrival   *waypoint `json:"arrival"`
}

type RESTTripClient struct {
	client  *httpx.Client
	baseURL string
}

func NewRESTTripClient(baseURL, token string, timeout time.Duration, opts ...httpx.Option) (*RESTTripClient, error) {
	client, base, err := newBackendClient(baseURL, token, timeout, opts...)
	if err != nil {
		return nil, err
	}
	return &RESTTripClient{client: client, baseURL: base}, nil
}

func (c *RESTTripClient) GetTrip(ctx context.Context, tripID string) (trip domain.Trip, err error) {
	defer obs.Time(ctx, "trips.rest.get")(&err)

	var rec tripRecord
	if err := c.client.GetJSON(ctx, c.baseURL+"/trips/"+url.PathEscape(tripID), &rec); err != nil {
		var he *httpx.StatusError
		if errors.As(err, &he) && he.Code == http.StatusNotFound {
			return domain.Trip{}, fmt.Errorf("get trip %s: %w", tripID, ports.ErrTripNotFound)
		}
		return domain.Trip{}, fmt.Errorf("get trip %s: %w: %w", tripID, ports.ErrSourceUnavailable, err)
	}

	return rec.toDomain(ctx), nil
}

// toDomain keeps malformed waypoints as invalid points; playback reports
// them as missing spatial data instead of failing the lookup.
func (r tripRecord) toDomain(ctx context.Context) domain.Trip {
	trip := domain.Trip{
		VehicleID: r.VehicleID,
		TripBoundary: domain.TripBoundary{
			TripID:      r.ID,
			DepartureAt: r.Departure.At,
		},
	}

	if p, err := r.Departure.Coordinate.point(); err == nil {
		trip.Departure = p
	} else {
		log.Printf("req_id=%s trip=%s unusable departure: %v", obs.RequestID(ctx), r.ID, err)
		trip.Departure = domain.InvalidPoint
	}

	if r.Arrival != nil {
		at := r.Arrival.At
		trip.ArrivalAt = &at
		if p, err := r.Arrival.Coordinate.point(); err == nil {
			trip.Arrival = &p
		} else {
			log.Printf("req_id=%s trip=%s unusable arrival: %v", obs.RequestID(ctx), r.ID, err)
		}
	}

	return trip
}
