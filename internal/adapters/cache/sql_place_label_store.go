package cache

import (
	"context"
	"database/sql"
	"errors"
	"fleet-playback-service/internal/platform/obs"
	"fmt"
	"strings"
)

// SQLPlaceLabelStore is a SQL-backed store mapping quantized points to
// resolved place labels.
type SQLPlaceLabelStore struct {
	DB *sql.DB
}

func NewSQLPlaceLabelStore(db *sql.DB) *SQLPlaceLabelStore {
	return &SQLPlaceLabelStore{DB: db}
}

func (s *SQLPlaceLabelStore) GetLabel(ctx context.Context, key string) (label string, ok bool, err error) {
	defer obs.Time(ctx, "labels.sql.get")(&err)

	if s.DB == nil {
		return "", false, errors.New("place label store: db is nil")
	}

	q := `
	SELECT label
	FROM place_labels
	WHERE coord_key = $1;
	`

	err = s.DB.QueryRowContext(ctx, q, key).Scan(&label)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get place label key=%q: %w", key, err)
	}

	return label, true, nil
}

func (s *SQLPlaceLabelStore) PutLabel(ctx context.Context, key string, label string) (err error) {
	defer obs.Time(ctx, "labels.sql.put")(&err)

	if s.DB == nil {
		return errors.New("place label store: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("put place label: empty key")
	}

	q := `
	INSERT INTO place_labels (coord_key, label, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (coord_key) DO UPDATE
	SET label = EXCLUDED.label,
		updated_at = EXCLUDED.updated_at;
	`

	if _, err := s.DB.ExecContext(ctx, q, key, label); err != nil {
		return fmt.Errorf("put place label key=%q: %w", key, err)
	}

	return nil
}
