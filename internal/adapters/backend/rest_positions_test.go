package backend

import (
	"context"
	"errors"
	"fleet-playback-service/internal/platform/httpx"
	"fleet-playback-service/internal/ports"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

// pagedFeed serves total pings for vehicle v-1, honoring limit/offset.
func pagedFeed(t *testing.T, total int, requests *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		if r.URL.Path != "/vehicles/v-1/positions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}

		q := r.URL.Query()
		if q.Get("from") != "2026-01-01T08:00:00Z" || q.Get("to") != "2026-01-01T09:00:00Z" {
			t.Errorf("window = %q..%q", q.Get("from"), q.Get("to"))
		}
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		var items []string
		for i := offset; i < total && i < offset+limit; i++ {
			at := t0.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
			items = append(items, fmt.Sprintf(`{"coordinate":[11.5%d,3.85],"recordedAt":%q}`, i, at))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, "[%s]", strings.Join(items, ","))
	}))
}

func TestRESTPositionFeedPagesUntilShortPage(t *testing.T) {
	var requests int32
	srv := pagedFeed(t, 5, &requests)
	defer srv.Close()

	feed, err := NewRESTPositionFeed(RESTConfig{BaseURL: srv.URL + "/", Token: "secret", PageSize: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := feed.FetchPositions(context.Background(), "v-1", t0, t0.Add(time.Hour), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if n := atomic.LoadInt32(&requests); n != 3 {
		t.Fatalf("requests = %d, want 3", n)
	}
	if !got[4].RecordedAt.Equal(t0.Add(4 * time.Minute)) {
		t.Fatalf("last RecordedAt = %v", got[4].RecordedAt)
	}
}

func TestRESTPositionFeedStopsAtLimit(t *testing.T) {
	var requests int32
	srv := pagedFeed(t, 50, &requests)
	defer srv.Close()

	feed, _ := NewRESTPositionFeed(RESTConfig{BaseURL: srv.URL, Token: "secret", PageSize: 4})

	got, err := feed.FetchPositions(context.Background(), "v-1", t0, t0.Add(time.Hour), 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
	if n := atomic.LoadInt32(&requests); n != 2 {
		t.Fatalf("requests = %d, want 2", n)
	}
}

func TestRESTPositionFeedKeepsSubsecondWindow(t *testing.T) {
	window := make(chan [2]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		window <- [2]string{r.URL.Query().Get("from"), r.URL.Query().Get("to")}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	feed, _ := NewRESTPositionFeed(RESTConfig{BaseURL: srv.URL})

	start := t0.Add(250 * time.Millisecond)
	end := t0.Add(30*time.Minute + 700*time.Millisecond)
	if _, err := feed.FetchPositions(context.Background(), "v-1", start, end, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := <-window
	if got[0] != "2026-01-01T08:00:00.25Z" || got[1] != "2026-01-01T08:30:00.7Z" {
		t.Fatalf("window = %q..%q, want fractional seconds kept", got[0], got[1])
	}
}

func TestRESTPositionFeedEmptyWindow(t *testing.T) {
	var requests int32
	srv := pagedFeed(t, 0, &requests)
	defer srv.Close()

	feed, _ := NewRESTPositionFeed(RESTConfig{BaseURL: srv.URL, Token: "secret"})

	got, err := feed.FetchPositions(context.Background(), "v-1", t0, t0.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty non-nil slice", got)
	}
}

func TestRESTPositionFeedDropsOutOfRangePings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"coordinate":[11.5,3.85],"recordedAt":"2026-01-01T08:01:00Z"},
			{"coordinate":[181,3.85],"recordedAt":"2026-01-01T08:02:00Z"},
			{"coordinate":[11.5],"recordedAt":"2026-01-01T08:03:00Z"}
		]`))
	}))
	defer srv.Close()

	feed, _ := NewRESTPositionFeed(RESTConfig{BaseURL: srv.URL})

	got, err := feed.FetchPositions(context.Background(), "v-1", t0, t0.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestRESTPositionFeedUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not":"a list"`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			feed, _ := NewRESTPositionFeed(RESTConfig{BaseURL: srv.URL}, httpx.WithRetry(2, time.Millisecond))

			_, err := feed.FetchPositions(context.Background(), "v-1", t0, t0.Add(time.Hour), 10)
			if !errors.Is(err, ports.ErrSourceUnavailable) {
				t.Fatalf("err = %v, want ErrSourceUnavailable", err)
			}
		})
	}
}

func TestRESTPositionFeedValidatesArguments(t *testing.T) {
	feed, _ := NewRESTPositionFeed(RESTConfig{BaseURL: "http://unused.invalid"})

	if _, err := feed.FetchPositions(context.Background(), "v-1", t0.Add(time.Hour), t0, 10); err == nil {
		t.Fatalf("expected error for inverted window")
	}
	if _, err := feed.FetchPositions(context.Background(), "v-1", t0, t0, 0); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}

func TestNewRESTPositionFeedRequiresBaseURL(t *testing.T) {
	if _, err := NewRESTPositionFeed(RESTConfig{}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
