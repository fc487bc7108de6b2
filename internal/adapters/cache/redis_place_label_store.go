package cache

import (
	"context"
	"errors"
	"fleet-playback-service/internal/platform/obs"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultLabelPrefix = "playback:label:"

// RedisPlaceLabelStore shares resolved labels between service instances.
type RedisPlaceLabelStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPlaceLabelStore wraps client. A zero ttl keeps labels forever.
func NewRedisPlaceLabelStore(client *redis.Client, ttl time.Duration) *RedisPlaceLabelStore {
	return &RedisPlaceLabelStore{client: client, prefix: defaultLabelPrefix, ttl: ttl}
}

// OpenRedis parses url (redis://host:port/db) and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func (s *RedisPlaceLabelStore) GetLabel(ctx context.Context, key string) (label string, ok bool, err error) {
	defer obs.Time(ctx, "labels.redis.get")(&err)

	label, err = s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get place label key=%q: %w", key, err)
	}

	return label, true, nil
}

func (s *RedisPlaceLabelStore) PutLabel(ctx context.Context, key string, label string) (err error) {
	defer obs.Time(ctx, "labels.redis.put")(&err)

	if strings.TrimSpace(key) == "" {
		return errors.New("put place label: empty key")
	}

	if err := s.client.Set(ctx, s.prefix+key, label, s.ttl).Err(); err != nil {
		return fmt.Errorf("put place label key=%q: %w", key, err)
	}

	return nil
}
