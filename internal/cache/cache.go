// Package cache stores JSON encoded read results. Entries are grouped in
// namespaces whose version number is bumped to invalidate them all at once.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"smartsahuji/internal/config"
	"smartsahuji/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}) error
	// Version returns the current generation of a namespace.
	Version(ctx context.Context, namespace string) int64
	// Invalidate moves the namespace to a new generation.
	Invalidate(ctx context.Context, namespace string) error
}

// Key builds a versioned cache key.
func Key(namespace string, version int64, parts ...string) string {
	return namespace + ":v" + strconv.FormatInt(version, 10) + ":" + strings.Join(parts, ":")
}

// New returns a redis backed cache, or a no-op cache when no address is
// configured or redis is unreachable.
func New(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) Cache {
	if cfg.Addr == "" {
		return Noop{}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, caching disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = rdb.Close()
		return Noop{}
	}

	log.Info("redis cache enabled", zap.String("addr", cfg.Addr))
	return &redisCache{rdb: rdb, ttl: cfg.TTL, log: log}
}

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) bool {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		}
		metrics.CacheMisses.Inc()
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		metrics.CacheMisses.Inc()
		return false
	}
	metrics.CacheHits.Inc()
	return true
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}

func (c *redisCache) Version(ctx context.Context, namespace string) int64 {
	v, err := c.rdb.Get(ctx, namespace+":version").Int64()
	if err != nil {
		return 0
	}
	return v
}

func (c *redisCache) Invalidate(ctx context.Context, namespace string) error {
	return c.rdb.Incr(ctx, namespace+":version").Err()
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string, interface{}) bool { return false }
func (Noop) Set(context.Context, string, interface{}) error { return nil }
func (Noop) Version(context.Context, string) int64 { return 0 }
func (Noop) Invalidate(context.Context, string) error { return nil }

// Memory is an in-process cache used by tests and single-node setups.
type Memory struct {
	mu       sync.Mutex
	entries  map[string][]byte
	versions map[string]int64
}

func NewMemory() *Memory {
	return &Memory{entries: map[string][]byte{}, versions: map[string]int64{}}
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) bool {
	m.mu.Lock()
	data, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (m *Memory) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Version(_ context.Context, namespace string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[namespace]
}

func (m *Memory) Invalidate(_ context.Context, namespace string) error {
	m.mu.Lock()
	m.versions[namespace]++
	m.mu.Unlock()
	return nil
}
