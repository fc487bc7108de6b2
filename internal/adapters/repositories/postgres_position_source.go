package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/metrics"
	"fleet-playback-service/internal/platform/obs"
	"fleet-playback-service/internal/ports"
	"fmt"
	"log"
	"time"
)

// PostgresPositionSource reads pings straight from vehicle_positions.
type PostgresPositionSource struct {
	DB      *sql.DB
	Metrics *metrics.Collector
}

func NewPostgresPositionSource(db *sql.DB, m *metrics.Collector) *PostgresPositionSource {
	return &PostgresPositionSource{DB: db, Metrics: m}
}

// FetchPositions returns at most limit pings recorded inside the window.
// Rows come back in storage order; callers sort.
func (s *PostgresPositionSource) FetchPositions(
	ctx context.Context,
	vehicleID string,
	windowStart time.Time,
	windowEnd time.Time,
	limit int,
) (out []domain.TimestampedPosition, err error) {
	defer obs.Time(ctx, "positions.postgres.fetch")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres position source: DB is nil")
	}
	if windowEnd.Before(windowStart) {
		return nil, fmt.Errorf("positions: window end %s before start %s",
			windowEnd.Format(time.RFC3339), windowStart.Format(time.RFC3339))
	}
	if limit <= 0 {
		return nil, errors.New("positions: limit must be positive")
	}

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.Metrics.PositionFetch(outcome, time.Since(start))
	}()

	query := `
	SELECT lon, lat, recorded_at
	FROM vehicle_positions
	WHERE vehicle_id = $1
		AND recorded_at BETWEEN $2 AND $3
	LIMIT $4;
	`

	rows, err := s.DB.QueryContext(ctx, query, vehicleID, windowStart, windowEnd, limit)
	if err != nil {
		return nil, fmt.Errorf("positions: query vehicle_positions: %w: %w", ports.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	out = make([]domain.TimestampedPosition, 0, 64)
	for rows.Next() {
		var pos domain.TimestampedPosition
		if err := rows.Scan(&pos.Point.Lon, &pos.Point.Lat, &pos.RecordedAt); err != nil {
			return nil, fmt.Errorf("positions: scan row: %w: %w", ports.ErrSourceUnavailable, err)
		}
		if !pos.Point.Valid() {
			log.Printf("req_id=%s vehicle=%s dropping ping %v", obs.RequestID(ctx), vehicleID, pos.Point)
			continue
		}
		out = append(out, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("positions: row iteration: %w: %w", ports.ErrSourceUnavailable, err)
	}

	return out, nil
}
