package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opencare/opencare/internal/labextract"
)

// store is the part of the go-redis client the cache uses.
type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache keeps extraction results in Redis as JSON.
type RedisCache struct {
	client store
	closer func() error
	ttl    time.Duration
}

// Options controls how the client connects at startup.
type Options struct {
	URL          string
	TTL          time.Duration
	PingAttempts uint
	PingDelay    time.Duration
	Logger       zerolog.Logger
}

// NewRedisCache parses a redis:// URL and pings the server, retrying while
// it comes up.
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(ropts)

	attempts := opts.PingAttempts
	if attempts == 0 {
		attempts = 5
	}
	delay := opts.PingDelay
	if delay == 0 {
		delay = 500 * time.Millisecond
	}

	err = retry.Do(
		func() error {
			return client.Ping(ctx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			opts.Logger.Warn().Err(err).Uint("attempt", n+1).Msg("redis not ready")
		}),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, closer: client.Close, ttl: opts.TTL}, nil
}

// Get returns the cached values for key. A miss is (nil, false, nil).
func (r *RedisCache) Get(ctx context.Context, key string) ([]labextract.ExtractedValue, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get from cache: %w", err)
	}

	var values []labextract.ExtractedValue
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, false, fmt.Errorf("decode cached values: %w", err)
	}
	if values == nil {
		values = []labextract.ExtractedValue{}
	}
	return values, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, values []labextract.ExtractedValue) error {
	if values == nil {
		values = []labextract.ExtractedValue{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode values: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
