package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores successful classifications keyed by question text.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, res *Result, ttl time.Duration) error
}

// MemoryCache is a process-local Cache. Entries do not expire.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Result)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (*Result, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &res, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, res *Result, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = *res
	return nil
}

// RedisCache shares classifications between processes.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed cache. Keys are namespaced by prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "bloomsbot:classify"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(k string) string {
	return fmt.Sprintf("%s:%s", c.prefix, k)
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, err
	}
	return &res, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, res *Result, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// Cached memoises another classifier. Only successes are stored, so a
// failed question can be retried on a later run.
type Cached struct {
	inner  Classifier
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached wraps inner with cache. A nil logger disables cache error logs.
func NewCached(inner Classifier, cache Cache, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) Classify(ctx context.Context, in Input) (*Result, error) {
	key := CacheKey(c.inner.Name(), in.Text)
	res, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("classification cache read failed", zap.Error(err))
	}
	if ok {
		return res, nil
	}

	res, err = c.inner.Classify(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, res, c.ttl); err != nil {
		c.logger.Warn("classification cache write failed", zap.Error(err))
	}
	return res, nil
}

// CacheKey hashes the classifier name and normalised text.
func CacheKey(classifier, text string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(classifier + "\x00" + norm))
	return hex.EncodeToString(sum[:])
}
