package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they need.
// A nil *Collector is valid and records nothing.
type Collector struct {
	reg *prometheus.Registry

	GeocodeCacheHits   prometheus.Counter
	GeocodeCacheMisses prometheus.Counter
	GeocodeCoalesced   prometheus.Counter
	GeocodeLookups     *prometheus.CounterVec // outcome label: resolved|unresolved|store

	PositionFetches       *prometheus.CounterVec // outcome label: ok|empty|error
	PositionFetchDuration prometheus.Histogram

	PlaybackSelections  prometheus.Counter
	PlaybackStale       prometheus.Counter
	PlaybackApproximate prometheus.Counter
	PlaybackNoSpatial   prometheus.Counter
	PlaybackSessions    prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		GeocodeCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_geocode_cache_hits_total",
			Help: "Place-name resolutions answered from the in-memory cache.",
		}),
		GeocodeCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_geocode_cache_misses_total",
			Help: "Place-name resolutions that missed the in-memory cache.",
		}),
		GeocodeCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_geocode_coalesced_total",
			Help: "Resolutions that shared another caller's in-flight lookup.",
		}),
		GeocodeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playback_geocode_lookups_total",
			Help: "Cache fills by source and outcome.",
		}, []string{"outcome"}),
		PositionFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playback_position_fetches_total",
			Help: "Position feed requests by outcome.",
		}, []string{"outcome"}),
		PositionFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "playback_position_fetch_duration_seconds",
			Help:    "Duration of position feed requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		PlaybackSelections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_selections_total",
			Help: "Trips selected for playback.",
		}),
		PlaybackStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_stale_results_total",
			Help: "Results discarded because a newer selection or close happened first.",
		}),
		PlaybackApproximate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_approximate_total",
			Help: "Playbacks that fell back to a straight-line trajectory.",
		}),
		PlaybackNoSpatial: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_no_spatial_data_total",
			Help: "Playbacks of trips without any drawable waypoint.",
		}),
		PlaybackSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "playback_sessions",
			Help: "Open dashboard playback sessions.",
		}),
	}

	reg.MustRegister(
		c.GeocodeCacheHits, c.GeocodeCacheMisses, c.GeocodeCoalesced, c.GeocodeLookups,
		c.PositionFetches, c.PositionFetchDuration,
		c.PlaybackSelections, c.PlaybackStale, c.PlaybackApproximate, c.PlaybackNoSpatial,
		c.PlaybackSessions,
	)

	return c
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collector) CacheHit() {
	if c != nil {
		c.GeocodeCacheHits.Inc()
	}
}

func (c *Collector) CacheMiss() {
	if c != nil {
		c.GeocodeCacheMisses.Inc()
	}
}

func (c *Collector) Coalesced() {
	if c != nil {
		c.GeocodeCoalesced.Inc()
	}
}

func (c *Collector) Lookup(outcome string) {
	if c != nil {
		c.GeocodeLookups.WithLabelValues(outcome).Inc()
	}
}

func (c *Collector) PositionFetch(outcome string, d time.Duration) {
	if c != nil {
		c.PositionFetches.WithLabelValues(outcome).Inc()
		c.PositionFetchDuration.Observe(d.Seconds())
	}
}

func (c *Collector) Selected() {
	if c != nil {
		c.PlaybackSelections.Inc()
	}
}

func (c *Collector) Stale() {
	if c != nil {
		c.PlaybackStale.Inc()
	}
}

func (c *Collector) Approximate() {
	if c != nil {
		c.PlaybackApproximate.Inc()
	}
}

func (c *Collector) NoSpatialData() {
	if c != nil {
		c.PlaybackNoSpatial.Inc()
	}
}

func (c *Collector) SessionsOpen(n int) {
	if c != nil {
		c.PlaybackSessions.Set(float64(n))
	}
}
