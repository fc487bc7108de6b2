package backend

import (
	"context"
	"errors"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/metrics"
	"fleet-playback-service/internal/platform/httpx"
	"fleet-playback-service/internal/platform/obs"
	"fleet-playback-service/internal/ports"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"
)

const defaultPageSize = 1000

type positionRecord struct {
	Coordinate coordinate `json:"coordinate"`
	RecordedAt time.Time  `json:"recordedAt"`
}

// RESTPositionFeed reads vehicle pings from the backend's positions endpoint,
// paging with limit/offset.
type RESTPositionFeed struct {
	client   *httpx.Client
	baseURL  string
	pageSize int
	metrics  *metrics.Collector
}

type RESTConfig struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	PageSize int
	Metrics  *metrics.Collector
}

func NewRESTPositionFeed(cfg RESTConfig, opts ...httpx.Option) (*RESTPositionFeed, error) {
	client, base, err := newBackendClient(cfg.BaseURL, cfg.Token, cfg.Timeout, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	return &RESTPositionFeed{
		client:   client,
		baseURL:  base,
		pageSize: cfg.PageSize,
		metrics:  cfg.Metrics,
	}, nil
}

func (f *RESTPositionFeed) FetchPositions(
	ctx context.Context,
	vehicleID string,
	windowStart time.Time,
	windowEnd time.Time,
	limit int,
) (out []domain.TimestampedPosition, err error) {
	defer obs.Time(ctx, "positions.rest.fetch")(&err)

	if err := validateWindow(windowStart, windowEnd, limit); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		f.metrics.PositionFetch(outcome, time.Since(start))
	}()

	out = make([]domain.TimestampedPosition, 0)
	for offset := 0; len(out) < limit; {
		size := min(f.pageSize, limit-len(out))

		var page []positionRecord
		if err := f.client.GetJSON(ctx, f.pageURL(vehicleID, windowStart, windowEnd, size, offset), &page); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("positions: vehicle=%s offset=%d: %w: %w", vehicleID, offset, ports.ErrSourceUnavailable, err)
		}

		for _, rec := range page {
			p, err := rec.Coordinate.point()
			if err != nil {
				log.Printf("req_id=%s vehicle=%s dropping ping at %s: %v",
					obs.RequestID(ctx), vehicleID, rec.RecordedAt.Format(time.RFC3339), err)
				continue
			}
			out = append(out, domain.TimestampedPosition{Point: p, RecordedAt: rec.RecordedAt})
		}

		// A short page means the window is exhausted.
		if len(page) < size {
			break
		}
		offset += len(page)
	}

	return out, nil
}

func (f *RESTPositionFeed) pageURL(vehicleID string, from, to time.Time, limit, offset int) string {
	q := url.Values{}
	q.Set("from", from.UTC().Format(time.RFC3339Nano))
	q.Set("to", to.UTC().Format(time.RFC3339Nano))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	return f.baseURL + "/vehicles/" + url.PathEscape(vehicleID) + "/positions?" + q.Encode()
}

func validateWindow(windowStart, windowEnd time.Time, limit int) error {
	if windowEnd.Before(windowStart) {
		return fmt.Errorf("positions: window end %s before start %s",
			windowEnd.Format(time.RFC3339), windowStart.Format(time.RFC3339))
	}
	if limit <= 0 {
		return errors.New("positions: limit must be positive")
	}
	return nil
}
