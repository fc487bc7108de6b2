package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"

	LabelStoreNone     = "none"
	LabelStoreRedis    = "redis"
	LabelStorePostgres = "postgres"
)

type Config struct {
	Port string

	// Where trips and position pings come from.
	Backend        string
	BackendURL     string
	BackendToken   string
	BackendTimeout time.Duration
	DatabaseURL    string

	PositionLimit    int
	PositionPageSize int

	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderLanguage  string
	GeocoderZoom      int
	GeocoderRate      float64 // requests per second
	GeocodeTimeout    time.Duration

	LabelStore string
	RedisURL   string
	// Zero keeps Redis labels forever.
	LabelTTL time.Duration

	SessionIdleTimeout time.Duration
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              Get("PORT", "8080"),
		Backend:           strings.ToLower(Get("POSITION_BACKEND", BackendREST)),
		BackendURL:        strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),
		BackendToken:      os.Getenv("BACKEND_API_TOKEN"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		GeocoderURL:       strings.TrimRight(Get("GEOCODER_URL", "https://nominatim.openstreetmap.org"), "/"),
		GeocoderUserAgent: Get("GEOCODER_USER_AGENT", "fleet-playback-service/1.0"),
		GeocoderLanguage:  Get("GEOCODER_LANGUAGE", "fr"),
		LabelStore:        strings.ToLower(Get("LABEL_STORE", LabelStoreNone)),
		RedisURL:          Get("REDIS_URL", "redis://localhost:6379/0"),
	}

	var err error
	if cfg.PositionLimit, err = positiveInt("POSITION_LIMIT", 5000); err != nil {
		return nil, err
	}
	if cfg.PositionPageSize, err = positiveInt("POSITION_PAGE_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.GeocoderZoom, err = positiveInt("GEOCODER_ZOOM", 18); err != nil {
		return nil, err
	}

	timeoutMs, err := positiveInt("GEOCODE_TIMEOUT_MS", 8000)
	if err != nil {
		return nil, err
	}
	cfg.GeocodeTimeout = time.Duration(timeoutMs) * time.Millisecond

	backendMs, err := positiveInt("BACKEND_TIMEOUT_MS", 15000)
	if err != nil {
		return nil, err
	}
	cfg.BackendTimeout = time.Duration(backendMs) * time.Millisecond

	if cfg.SessionIdleTimeout, err = duration("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LabelTTL, err = duration("LABEL_TTL", 0); err != nil {
		return nil, err
	}

	cfg.GeocoderRate = 1.0
	if v := os.Getenv("GEOCODER_RATE_PER_SEC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid GEOCODER_RATE_PER_SEC: %q", v)
		}
		cfg.GeocoderRate = f
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendREST:
		if c.BackendURL == "" {
			return errors.New("BACKEND_URL is required when POSITION_BACKEND=rest")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required when POSITION_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("invalid POSITION_BACKEND: %q", c.Backend)
	}

	switch c.LabelStore {
	case LabelStoreNone, LabelStoreRedis:
	case LabelStorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required when LABEL_STORE=postgres")
		}
	default:
		return fmt.Errorf("invalid LABEL_STORE: %q", c.LabelStore)
	}

	return nil
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func positiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
