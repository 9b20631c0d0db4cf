// Package rescache caches raw backend responses in a key-value store.
package rescache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/multiid/internal/db"
	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/params"
)

var cacheKeyPrefix = domain.KeyPrefix + "result:"

// defaultCallTimeout bounds a shared backend call, which no longer follows any one caller's context.
const defaultCallTimeout = 30 * time.Second

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// executor is the decorated backend.
type executor interface {
	Execute(ctx context.Context, handler string, p *params.Bag) (domain.Result, error)
}

// CachedExecutor serves repeated backend requests from a key-value store.
// Concurrent misses for the same request share one backend call.
type CachedExecutor struct {
	inner      executor
	store      store
	ttl        time.Duration
	timeout    time.Duration
	group      singleflight.Group
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner executor,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedExecutor {
	return &CachedExecutor{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		timeout:    defaultCallTimeout,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Execute returns a cached response or calls the inner executor.
// Only successful responses are cached; errors pass through unchanged.
// The shared call runs detached from ctx, so a caller that gives up does not fail
// the other callers waiting on the same key.
func (c *CachedExecutor) Execute(ctx context.Context, handler string, p *params.Bag) (domain.Result, error) {
	key := CacheKey(handler, p)

	if res, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return res, nil
	}

	c.incCache("miss")

	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		res, err := c.inner.Execute(callCtx, handler, p)
		if err != nil {
			return res, err
		}
		c.putToCache(callCtx, key, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return domain.Result{}, ctx.Err()
	case r := <-ch:
		if r.Shared {
			c.logger.Debug("Backend call shared", zap.String("handler", handler))
		}
		return r.Val.(domain.Result), r.Err //nolint:errcheck,forcetypeassert // always domain.Result
	}
}

// CacheKey derives the store key for a backend request.
func CacheKey(handler string, p *params.Bag) string {
	var encoded string
	if p != nil {
		encoded = p.Encode()
	}
	h := sha256.Sum256([]byte(handler + "?" + encoded))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedExecutor) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedExecutor) getFromCache(ctx context.Context, key string) (domain.Result, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached result", zap.String("key", key), zap.Error(err))
		}
		return domain.Result{}, false
	}
	if len(data) == 0 {
		return domain.Result{}, false
	}

	var res domain.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("Failed to parse cached result", zap.String("key", key), zap.Error(err))
		return domain.Result{}, false
	}
	return res, true
}

func (c *CachedExecutor) putToCache(ctx context.Context, key string, res domain.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("Failed to encode result for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache result", zap.String("key", key), zap.Error(err))
	}
}
