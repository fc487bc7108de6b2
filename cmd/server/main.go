package main

import (
	"context"
	"database/sql"
	"errors"
	"fleet-playback-service/internal/adapters/backend"
	"fleet-playback-service/internal/adapters/cache"
	"fleet-playback-service/internal/adapters/geocode"
	"fleet-playback-service/internal/adapters/render"
	"fleet-playback-service/internal/adapters/repositories"
	"fleet-playback-service/internal/api"
	"fleet-playback-service/internal/config"
	"fleet-playback-service/internal/metrics"
	"fleet-playback-service/internal/platform/db"
	"fleet-playback-service/internal/ports"
	"fleet-playback-service/internal/services"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (REST or Postgres backend, Nominatim, label
// stores) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewCollector()

	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" && (cfg.Backend == config.BackendPostgres || cfg.LabelStore == config.LabelStorePostgres) {
		sqlDB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer sqlDB.Close()
	}

	trips, positions, err := buildBackend(cfg, sqlDB, m)
	if err != nil {
		log.Fatal(err)
	}

	geocoder, err := geocode.NewNominatimGeocoder(geocode.NominatimConfig{
		BaseURL:   cfg.GeocoderURL,
		UserAgent: cfg.GeocoderUserAgent,
		Language:  cfg.GeocoderLanguage,
		Zoom:      cfg.GeocoderZoom,
		Rate:      cfg.GeocoderRate,
		Timeout:   cfg.GeocodeTimeout,
	})
	if err != nil {
		log.Fatal(err)
	}

	resolverOpts := []services.PlaceNameOption{
		services.WithResolverMetrics(m),
		services.WithLookupTimeout(cfg.GeocodeTimeout),
	}

	store, closeStore, err := buildLabelStore(ctx, cfg, sqlDB)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()
	if store != nil {
		resolverOpts = append(resolverOpts, services.WithLabelStore(store))
	}

	// One resolver for the whole process so every session shares the cache.
	resolver := services.NewPlaceNameResolver(geocoder, resolverOpts...)

	newPlayback := func() *services.Playback {
		return services.NewPlayback(positions, resolver, services.PlaybackConfig{
			PositionLimit: cfg.PositionLimit,
			Metrics:       m,
		})
	}
	sessions := services.NewSessionRegistry(func(sessionID string) *services.Playback {
		return services.NewPlayback(positions, resolver, services.PlaybackConfig{
			PositionLimit: cfg.PositionLimit,
			Surface:       render.NewLogSurface(sessionID),
			Metrics:       m,
		})
	}, m)
	sessions.StartSweeper(ctx, time.Minute, cfg.SessionIdleTimeout)

	router := api.NewRouter(api.RouterDeps{
		Trips:       trips,
		NewPlayback: newPlayback,
		Sessions:    sessions,
		Metrics:     m,
	})

	// Write timeout leaves room for a cold geocode cache at 1 req/s.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("Server listening addr=:%s backend=%s label_store=%s", cfg.Port, cfg.Backend, cfg.LabelStore)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}

func buildBackend(cfg *config.Config, sqlDB *sql.DB, m *metrics.Collector) (ports.TripRepository, ports.PositionSource, error) {
	if cfg.Backend == config.BackendPostgres {
		return repositories.NewPostgresTripRepository(sqlDB), repositories.NewPostgresPositionSource(sqlDB, m), nil
	}

	trips, err := backend.NewRESTTripClient(cfg.BackendURL, cfg.BackendToken, cfg.BackendTimeout)
	if err != nil {
		return nil, nil, err
	}
	positions, err := backend.NewRESTPositionFeed(backend.RESTConfig{
		BaseURL:  cfg.BackendURL,
		Token:    cfg.BackendToken,
		Timeout:  cfg.BackendTimeout,
		PageSize: cfg.PositionPageSize,
		Metrics:  m,
	})
	if err != nil {
		return nil, nil, err
	}

	return trips, positions, nil
}

// buildLabelStore returns nil when no second cache tier is configured.
func buildLabelStore(ctx context.Context, cfg *config.Config, sqlDB *sql.DB) (ports.PlaceLabelStore, func(), error) {
	switch cfg.LabelStore {
	case config.LabelStoreRedis:
		client, err := cache.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedisPlaceLabelStore(client, cfg.LabelTTL), func() { closeRedis(client) }, nil
	case config.LabelStorePostgres:
		return cache.NewSQLPlaceLabelStore(sqlDB), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		log.Printf("close redis: %v", err)
	}
}
