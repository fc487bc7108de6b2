package services

import (
	"context"
	"errors"
	"fleet-playback-service/internal/domain"
	"fleet-playback-service/internal/metrics"
	"fleet-playback-service/internal/platform/obs"
	"fleet-playback-service/internal/ports"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// UnknownPlace labels a point the geocoder knows nothing useful about.
const UnknownPlace = "Unknown place"

const defaultLookupTimeout = 8 * time.Second

// QuantizeKey rounds a point to 6 decimals (about 0.11 m) so repeated
// queries of the same place share one cache entry.
func QuantizeKey(p domain.GeoPoint) string {
	return fmt.Sprintf("%.6f,%.6f", quantize(p.Lat), quantize(p.Lon))
}

func quantize(v float64) float64 {
	q := math.Round(v*1e6) / 1e6
	if q == 0 {
		// Collapse -0 so it does not format as "-0.000000".
		return 0
	}
	return q
}

// CoordinateLabel is the label used when a point cannot be resolved.
func CoordinateLabel(p domain.GeoPoint) string {
	return fmt.Sprintf("%.4f, %.4f", p.Lat, p.Lon)
}

// PlaceLabel picks the most specific human-readable name of an address:
// road > neighbourhood > city > village > county > display name.
// A road inside a known city is labeled "road, city".
func PlaceLabel(a ports.Address) string {
	road := strings.TrimSpace(a.Road)
	city := strings.TrimSpace(a.City)

	switch {
	case road != "" && city != "":
		return road + ", " + city
	case road != "":
		return road
	}

	for _, v := range []string{a.Neighbourhood, a.City, a.Village, a.County} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	if first, _, _ := strings.Cut(a.DisplayName, ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}

	return UnknownPlace
}

type placeEntry struct {
	label    string
	resolved bool
}

// PlaceNameResolver turns points into short place names.
//
// Entries live for the whole process and are never evicted: keys are bounded
// by distinct places visited, not by request volume. A failed lookup is cached
// too (as its coordinate label), so every quantized point costs at most one
// outbound geocoder call. A lookup the geocoder never sent (ErrLookupNotSent)
// is not cached and is tried again on the next miss. Concurrent misses on the
// same key share one lookup.
//
// The resolver is safe for concurrent use.
type PlaceNameResolver struct {
	geocoder ports.ReverseGeocoder
	store    ports.PlaceLabelStore
	metrics  *metrics.Collector
	timeout  time.Duration

	mu      sync.RWMutex
	entries map[string]placeEntry
	group   singleflight.Group
}

type PlaceNameOption func(*PlaceNameResolver)

// WithLabelStore adds a persistent tier consulted before the geocoder.
func WithLabelStore(store ports.PlaceLabelStore) PlaceNameOption {
	return func(r *PlaceNameResolver) { r.store = store }
}

func WithResolverMetrics(c *metrics.Collector) PlaceNameOption {
	return func(r *PlaceNameResolver) { r.metrics = c }
}

// WithLookupTimeout bounds one outbound lookup, independent of callers.
func WithLookupTimeout(d time.Duration) PlaceNameOption {
	return func(r *PlaceNameResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewPlaceNameResolver(geocoder ports.ReverseGeocoder, opts ...PlaceNameOption) *PlaceNameResolver {
	r := &PlaceNameResolver{
		geocoder: geocoder,
		timeout:  defaultLookupTimeout,
		entries:  make(map[string]placeEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolvePlaceName never fails: any problem yields the coordinate label.
// A caller whose context ends while waiting gets the coordinate label, while
// the shared lookup keeps running and still fills the cache.
func (r *PlaceNameResolver) ResolvePlaceName(ctx context.Context, p domain.GeoPoint) string {
	key := QuantizeKey(p)

	if e, ok := r.entry(key); ok {
		r.metrics.CacheHit()
		return e.label
	}
	r.metrics.CacheMiss()

	// Only the caller whose func runs leads the flight; the rest waited on it.
	led := false
	ch := r.group.DoChan(key, func() (any, error) {
		led = true
		return r.fill(ctx, key, p), nil
	})

	select {
	case res := <-ch:
		if !led {
			r.metrics.Coalesced()
		}
		return res.Val.(placeEntry).label
	case <-ctx.Done():
		return CoordinateLabel(p)
	}
}

// Cached returns the cached label for p, if any.
func (r *PlaceNameResolver) Cached(p domain.GeoPoint) (string, bool) {
	e, ok := r.entry(QuantizeKey(p))
	return e.label, ok
}

// Len returns the number of cached points.
func (r *PlaceNameResolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *PlaceNameResolver) entry(key string) (placeEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return e, ok
}

func (r *PlaceNameResolver) put(key string, e placeEntry) {
	r.mu.Lock()
	r.entries[key] = e
	r.mu.Unlock()
}

// fill runs once per in-flight key.
func (r *PlaceNameResolver) fill(ctx context.Context, key string, p domain.GeoPoint) placeEntry {
	// A flight that finished between the caller's miss and DoChan already
	// stored the entry.
	if e, ok := r.entry(key); ok {
		return e
	}

	reqID := obs.RequestID(ctx)
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if r.store != nil {
		label, ok, err := r.store.GetLabel(lookupCtx, key)
		if err != nil {
			log.Printf("req_id=%s place label store read failed key=%s err=%v", reqID, key, err)
		} else if ok {
			e := placeEntry{label: label, resolved: true}
			r.put(key, e)
			r.metrics.Lookup("store")
			return e
		}
	}

	addr, err := r.geocoder.Reverse(lookupCtx, p)
	if errors.Is(err, ports.ErrLookupNotSent) {
		log.Printf("req_id=%s reverse geocode skipped key=%s err=%v", reqID, key, err)
		r.metrics.Lookup("skipped")
		return placeEntry{label: CoordinateLabel(p)}
	}
	if err != nil {
		log.Printf("req_id=%s reverse geocode unresolved key=%s err=%v", reqID, key, err)
		e := placeEntry{label: CoordinateLabel(p)}
		r.put(key, e)
		r.metrics.Lookup("unresolved")
		return e
	}

	e := placeEntry{label: PlaceLabel(addr), resolved: true}
	r.put(key, e)
	r.metrics.Lookup("resolved")

	if r.store != nil {
		if err := r.store.PutLabel(lookupCtx, key, e.label); err != nil {
			log.Printf("req_id=%s place label store write failed key=%s err=%v", reqID, key, err)
		}
	}

	return e
}
