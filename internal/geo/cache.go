package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BradenHooton/autentica/internal/models"
)

const (
	cacheKeyPrefix  = "geo:"
	DefaultCacheTTL = 24 * time.Hour
)

// Resolver is anything that can geolocate an IP
type Resolver interface {
	Locate(ctx context.Context, ip string) (models.Location, error)
}

// Cache is the subset of redis commands the cache needs
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedResolver memoizes successful lookups in redis.
// Redis errors degrade to a direct lookup.
type CachedResolver struct {
	next   Resolver
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedResolver(next Resolver, cache Cache, ttl time.Duration, log *slog.Logger) *CachedResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedResolver{next: next, cache: cache, ttl: ttl, logger: log}
}

func (c *CachedResolver) Locate(ctx context.Context, ip string) (models.Location, error) {
	key := cacheKeyPrefix + ip

	raw, err := c.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var loc models.Location
		if jsonErr := json.Unmarshal(raw, &loc); jsonErr == nil {
			return loc, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "geo cache read failed", slog.Any("error", err))
	}

	loc, err := c.next.Locate(ctx, ip)
	if err != nil {
		return loc, err
	}

	encoded, err := json.Marshal(loc)
	if err == nil {
		if err := c.cache.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "geo cache write failed", slog.Any("error", err))
		}
	}
	return loc, nil
}

// NewRedisClient connects to redis at url (redis:// or rediss://) and pings it
func NewRedisClient(ctx context.Context, url string, poolSize int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
