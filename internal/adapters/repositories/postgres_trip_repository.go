package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/platform/obs"
	"fleet-playback-service/internal/ports"
	"fmt"
)

// Postgres-backed implementation of the TripRepository port.
type PostgresTripRepository struct{ DB *sql.DB }

func NewPostgresTripRepository(db *sql.DB) *PostgresTripRepository {
	return &PostgresTripRepository{DB: db}
}

func (r *PostgresTripRepository) GetTrip(ctx context.Context, tripID string) (trip domain.Trip, err error) {
	defer obs.Time(ctx, "trips.postgres.get")(&err)

	if r.DB == nil {
		return domain.Trip{}, errors.New("postgres trip repository: DB is nil")
	}

	query := `
	SELECT
		trip_id,
		vehicle_id,
		departure_lon,
		departure_lat,
		departed_at,
		arrival_lon,
		arrival_lat,
		arrived_at
	FROM trips
	WHERE trip_id = $1;
	`

	var (
		depLon, depLat, arrLon, arrLat sql.NullFloat64
		arrivedAt                      sql.NullTime
	)
	err = r.DB.QueryRowContext(ctx, query, tripID).Scan(
		&trip.TripID,
		&trip.VehicleID,
		&depLon,
		&depLat,
		&trip.DepartureAt,
		&arrLon,
		&arrLat,
		&arrivedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trip{}, fmt.Errorf("get trip %s: %w", tripID, ports.ErrTripNotFound)
	}
	if err != nil {
		return domain.Trip{}, fmt.Errorf("get trip %s: %w: %w", tripID, ports.ErrSourceUnavailable, err)
	}

	trip.Departure = domain.InvalidPoint
	if depLon.Valid && depLat.Valid {
		trip.Departure = domain.GeoPoint{Lon: depLon.Float64, Lat: depLat.Float64}
	}

	if arrivedAt.Valid {
		at := arrivedAt.Time
		trip.ArrivalAt = &at
		if arrLon.Valid && arrLat.Valid {
			trip.Arrival = &domain.GeoPoint{Lon: arrLon.Float64, Lat: arrLat.Float64}
		}
	}

	return trip, nil
}
