package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fleet-playback-service/internal/domain"
	"fmt"
	"os"
	"strings"
	"time"
)

// Initialize the Postgres schema used by the trip repository, the position
// feed and the place label store.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createTripsQuery := `
	CREATE TABLE IF NOT EXISTS trips (
		trip_id TEXT PRIMARY KEY,
		vehicle_id TEXT NOT NULL,
		departure_lon DOUBLE PRECISION,
		departure_lat DOUBLE PRECISION,
		departed_at TIMESTAMPTZ NOT NULL,
		arrival_lon DOUBLE PRECISION,
		arrival_lat DOUBLE PRECISION,
		arrived_at TIMESTAMPTZ
	);
	`

	createPositionsQuery := `
	CREATE TABLE IF NOT EXISTS vehicle_positions (
		id BIGSERIAL PRIMARY KEY,
		vehicle_id TEXT NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	);
	`

	createPlaceLabelsQuery := `
	CREATE TABLE IF NOT EXISTS place_labels (
		coord_key TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_vehicle_positions_vehicle_recorded
	ON vehicle_positions(vehicle_id, recorded_at);
	`

	statements := []string{
		createTripsQuery,
		createPositionsQuery,
		createPlaceLabelsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type WaypointSeed struct {
	Coordinate []float64 `json:"coordinate"`
	At         time.Time `json:"at"`
}

type TripSeed struct {
	ID        string        `json:"id"`
	VehicleID string        `json:"vehicle_id"`
	Departure WaypointSeed  `json:"departure"`
	Arrival   *WaypointSeed `json:"arrival"`
}

type PositionSeed struct {
	VehicleID  string    `json:"vehicle_id"`
	Coordinate []float64 `json:"coordinate"`
	RecordedAt time.Time `json:"recorded_at"`
}

type Seed struct {
	Trips     []TripSeed     `json:"trips"`
	Positions []PositionSeed `json:"positions"`
}

// Populate the database with trips and positions from a JSON file.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	if err := data.validate(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	return insertSeed(ctx, db, data)
}

func (s Seed) validate() error {
	for i, t := range s.Trips {
		if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.VehicleID) == "" {
			return fmt.Errorf("trip at index %d: id and vehicle_id are required", i+1)
		}
		if t.Departure.At.IsZero() {
			return fmt.Errorf("trip %s: departure time is required", t.ID)
		}
		if t.Arrival != nil && t.Arrival.At.Before(t.Departure.At) {
			return fmt.Errorf("trip %s: arrival before departure", t.ID)
		}
	}

	for i, p := range s.Positions {
		if strings.TrimSpace(p.VehicleID) == "" {
			return fmt.Errorf("position at index %d: vehicle_id is required", i+1)
		}
		if _, err := domain.GeoPointFromList(p.Coordinate); err != nil {
			return fmt.Errorf("position at index %d: %w", i+1, err)
		}
	}

	return nil
}

func insertSeed(ctx context.Context, db *sql.DB, data Seed) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tripStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO trips (
		trip_id, vehicle_id,
		departure_lon, departure_lat, departed_at,
		arrival_lon, arrival_lat, arrived_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (trip_id) DO UPDATE
	SET vehicle_id = EXCLUDED.vehicle_id,
		departure_lon = EXCLUDED.departure_lon,
		departure_lat = EXCLUDED.departure_lat,
		departed_at = EXCLUDED.departed_at,
		arrival_lon = EXCLUDED.arrival_lon,
		arrival_lat = EXCLUDED.arrival_lat,
		arrived_at = EXCLUDED.arrived_at;
	`)
	if err != nil {
		return fmt.Errorf("seed: prepare trip insert: %w", err)
	}
	defer tripStmt.Close()

	for _, t := range data.Trips {
		depLon, depLat := nullableCoordinate(t.Departure.Coordinate)
		var arrLon, arrLat sql.NullFloat64
		var arrAt sql.NullTime
		if t.Arrival != nil {
			arrLon, arrLat = nullableCoordinate(t.Arrival.Coordinate)
			arrAt = sql.NullTime{Time: t.Arrival.At, Valid: true}
		}

		if _, err := tripStmt.ExecContext(ctx,
			t.ID, t.VehicleID,
			depLon, depLat, t.Departure.At,
			arrLon, arrLat, arrAt,
		); err != nil {
			return fmt.Errorf("seed: insert trip_id=%s: %w", t.ID, err)
		}
	}

	posStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO vehicle_positions (vehicle_id, lon, lat, recorded_at)
	VALUES ($1, $2, $3, $4);
	`)
	if err != nil {
		return fmt.Errorf("seed: prepare position insert: %w", err)
	}
	defer posStmt.Close()

	for _, p := range data.Positions {
		if _, err := posStmt.ExecContext(ctx, p.VehicleID, p.Coordinate[0], p.Coordinate[1], p.RecordedAt); err != nil {
			return fmt.Errorf("seed: insert position vehicle_id=%s: %w", p.VehicleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}

// nullableCoordinate stores unusable waypoints as NULL.
func nullableCoordinate(c []float64) (lon, lat sql.NullFloat64) {
	p, err := domain.GeoPointFromList(c)
	if err != nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lon, Valid: true}, sql.NullFloat64{Float64: p.Lat, Valid: true}
}
