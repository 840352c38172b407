// Package cache memoizes generated clouds in Redis. Identical documents with
// identical options share one entry, and concurrent requests for the same
// key are collapsed into a single generation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/source"
	pkgredis "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/resilience"
)

const keyPrefix = "cloud:"

// ErrMiss is returned by a Backend when a key does not exist.
var ErrMiss = errors.New("cache miss")

// Backend stores opaque values by key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
	CountByPattern(ctx context.Context, pattern string) (int64, error)
}

type redisBackend struct {
	*pkgredis.Client
}

func (b redisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.Client.Get(ctx, key)
	if pkgredis.IsNilError(err) {
		return nil, ErrMiss
	}
	return data, err
}

// Redis adapts a pkg/redis client to Backend.
func Redis(client *pkgredis.Client) Backend {
	return redisBackend{client}
}

// Key identifies one generation: the document digest plus every option that
// changes the result.
type Key struct {
	Digest    string
	Options   cloud.Options
	Format    source.Format
	Charset   string
	Normalize bool
}

// NewKey hashes doc and pairs it with the generation options.
func NewKey(doc []byte, opts cloud.Options, src source.Options) Key {
	sum := sha256.Sum256(doc)
	return Key{
		Digest:    hex.EncodeToString(sum[:]),
		Options:   opts,
		Format:    src.Format,
		Charset:   src.Charset,
		Normalize: src.Normalize,
	}
}

func (k Key) String() string {
	raw := fmt.Sprintf("%s:words=%d:min=%d:max=%d:format=%s:charset=%s:nfc=%t",
		k.Digest, k.Options.Words, k.Options.Weights.Min, k.Options.Weights.Max,
		k.Format, k.Charset, k.Normalize)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	Enabled bool   `json:"enabled"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Errors  int64  `json:"errors"`
	Keys    int64  `json:"keys"`
	Breaker string `json:"breaker"`
}

// CloudCache is safe for concurrent use. A CloudCache without a backend
// computes every request.
type CloudCache struct {
	backend  Backend
	ttl      time.Duration
	breaker  *resilience.CircuitBreaker
	group    singleflight.Group
	logger   *slog.Logger
	hits     atomic.Int64
	misses   atomic.Int64
	failures atomic.Int64
}

// Config tunes a CloudCache. OnBreakerChange observes the Redis circuit
// breaker and may be nil.
type Config struct {
	TTL             time.Duration
	OnBreakerChange func(name string, from, to resilience.State)
}

func New(backend Backend, cfg Config) *CloudCache {
	return &CloudCache{
		backend: backend,
		ttl:     cfg.TTL,
		breaker: resilience.NewCircuitBreaker("cloud-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			OnStateChange:    cfg.OnBreakerChange,
		}),
		logger: slog.Default().With("component", "cloud-cache"),
	}
}

// Enabled reports whether a backend is configured.
func (c *CloudCache) Enabled() bool {
	return c.backend != nil
}

// Get returns the cached cloud for key. Backend failures count as misses.
func (c *CloudCache) Get(ctx context.Context, key Key) (*cloud.Cloud, bool) {
	if c.backend == nil {
		return nil, false
	}
	k := key.String()
	var data []byte
	err := c.breaker.ExecuteIf(func() error {
		var err error
		data, err = c.backend.Get(ctx, k)
		return err
	}, func(err error) bool { return !errors.Is(err, ErrMiss) })
	if err != nil {
		c.misses.Add(1)
		if !errors.Is(err, ErrMiss) {
			c.failures.Add(1)
			c.logger.Warn("cache get failed", "key", k, "error", err)
		}
		return nil, false
	}
	var result cloud.Cloud
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", k)
	return &result, true
}

// Set stores result under key for the configured TTL. Failures are logged.
func (c *CloudCache) Set(ctx context.Context, key Key, result *cloud.Cloud) {
	if c.backend == nil {
		return
	}
	k := key.String()
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	if err := c.breaker.Execute(func() error {
		return c.backend.Set(ctx, k, data, c.ttl)
	}); err != nil {
		c.failures.Add(1)
		c.logger.Warn("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached cloud for key or runs computeFn once for
// all concurrent callers of the same key. The bool reports a cache hit.
// Errors from computeFn are returned and never cached.
func (c *CloudCache) GetOrCompute(
	ctx context.Context,
	key Key,
	computeFn func() (*cloud.Cloud, error),
) (*cloud.Cloud, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (any, error) {
		if result, ok := c.Get(ctx, key); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*cloud.Cloud), false, nil
}

// Invalidate deletes every cached cloud and returns the number removed.
func (c *CloudCache) Invalidate(ctx context.Context) (int64, error) {
	if c.backend == nil {
		return 0, nil
	}
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns counters and, when the backend answers, the key count.
func (c *CloudCache) Stats(ctx context.Context) Stats {
	s := Stats{
		Enabled: c.backend != nil,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.failures.Load(),
		Breaker: c.breaker.GetState().String(),
	}
	if c.backend != nil {
		if n, err := c.backend.CountByPattern(ctx, keyPrefix+"*"); err == nil {
			s.Keys = n
		}
	}
	return s
}
