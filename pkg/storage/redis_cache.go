package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pcarana/rdap-server/pkg/domain"
)

const cacheKeyPrefix = "rdap:"

// CacheRecorder receives the result of every cache lookup: hit, miss or error.
type CacheRecorder interface {
	RecordCacheLookup(result string)
}

// RedisConfig configures the read-through cache.
type RedisConfig struct {
	URL          string
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisClient parses cfg.URL and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// CachedStore caches successful Get results of another store in Redis.
// Unredacted records are cached; redaction always runs on the copy a caller
// decodes. Cache failures are logged and the inner store answers instead.
type CachedStore struct {
	inner   RecordStore
	client  *redis.Client
	ttl     time.Duration
	logger  zerolog.Logger
	metrics CacheRecorder
}

// CachedStoreOption configures a CachedStore.
type CachedStoreOption func(*CachedStore)

// WithCacheMetrics records hit and miss counts.
func WithCacheMetrics(metrics CacheRecorder) CachedStoreOption {
	return func(s *CachedStore) {
		s.metrics = metrics
	}
}

// NewCachedStore decorates inner. A zero ttl keeps entries for five minutes.
func NewCachedStore(inner RecordStore, client *redis.Client, ttl time.Duration, logger zerolog.Logger, opts ...CachedStoreOption) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	s := &CachedStore{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "record_cache").Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func cacheKey(kind domain.Kind, key string) string {
	return cacheKeyPrefix + kind.Slug() + ":" + key
}

// Get serves from Redis when possible and fills it on a miss. Not-found
// results are not cached.
func (s *CachedStore) Get(ctx context.Context, kind domain.Kind, key string) (domain.Object, error) {
	ck := cacheKey(kind, key)

	data, err := s.client.Get(ctx, ck).Bytes()
	switch {
	case err == nil:
		obj, decodeErr := domain.Decode(kind, data)
		if decodeErr == nil {
			s.record("hit")
			return obj, nil
		}
		s.logger.Warn().Err(decodeErr).Str("key", ck).Msg("Discarding undecodable cache entry")
		s.record("error")
	case errors.Is(err, redis.Nil):
		s.record("miss")
	default:
		s.logger.Warn().Err(err).Str("key", ck).Msg("Cache lookup failed")
		s.record("error")
	}

	obj, err := s.inner.Get(ctx, kind, key)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(obj)
	if err != nil {
		return obj, nil
	}
	if err := s.client.Set(ctx, ck, body, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", ck).Msg("Cache fill failed")
	}
	return obj, nil
}

// Exists answers from the cache when the entry is present.
func (s *CachedStore) Exists(ctx context.Context, kind domain.Kind, key string) (bool, error) {
	n, err := s.client.Exists(ctx, cacheKey(kind, key)).Result()
	if err == nil && n > 0 {
		s.record("hit")
		return true, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Cache lookup failed")
		s.record("error")
	}
	return s.inner.Exists(ctx, kind, key)
}

// Search is not cached.
func (s *CachedStore) Search(ctx context.Context, q Query) ([]domain.Object, error) {
	return s.inner.Search(ctx, q)
}

// Invalidate drops the cached entry of one lookup key.
func (s *CachedStore) Invalidate(ctx context.Context, kind domain.Kind, key string) error {
	return s.client.Del(ctx, cacheKey(kind, key)).Err()
}

// Ping checks both Redis and the inner store.
func (s *CachedStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return s.inner.Ping(ctx)
}

// Close closes the Redis client and the inner store.
func (s *CachedStore) Close() error {
	return errors.Join(s.client.Close(), s.inner.Close())
}

func (s *CachedStore) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(result)
	}
}
