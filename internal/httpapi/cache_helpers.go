package httpapi

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/godilite/booth-feedback/pkg/cache"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
	refreshSuffix       = ":refresh"
)

// refreshDelay spreads background refreshes of a hot key.
var refreshDelay = func() time.Duration {
	return time.Duration(rand.Intn(1000)) * time.Millisecond
}

// addTTLJitter adds up to ±15s random jitter to TTL to avoid mass expiration.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 30*time.Second {
		return ttl
	}
	jitter := time.Duration(rand.Intn(30)-15) * time.Second
	return ttl + jitter
}

// keyVersions counts invalidations per cache key. A value computed while its
// key was invalidated is returned to the caller but never stored.
type keyVersions struct {
	mu   sync.Mutex
	keys map[string]*keyVersion
}

type keyVersion struct {
	mu sync.Mutex
	n  uint64
}

func newKeyVersions() *keyVersions {
	return &keyVersions{keys: make(map[string]*keyVersion)}
}

func (v *keyVersions) entry(key string) *keyVersion {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.keys[key]
	if !ok {
		e = &keyVersion{}
		v.keys[key] = e
	}
	return e
}

func (v *keyVersions) current(key string) uint64 {
	e := v.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.n
}

// storeIfCurrent sets key unless it was invalidated after version was read.
// The check and the write happen under the key's lock so an invalidation
// cannot slip in between.
func (v *keyVersions) storeIfCurrent(ctx context.Context, c Cacher, key string, version uint64, value any, ttl time.Duration) (bool, error) {
	e := v.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.n != version {
		return false, nil
	}
	return true, c.Set(ctx, key, value, ttl)
}

// loadAndStore runs fn and caches its result if key stayed valid meanwhile.
func loadAndStore[T any](
	ctx context.Context,
	c Cacher,
	versions *keyVersions,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T

	version := versions.current(key)
	value, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultSetTimeout)
	defer cancel()

	ttl = addTTLJitter(ttl)
	stored, err := versions.storeIfCurrent(setCtx, c, key, version, value, ttl)
	switch {
	case err != nil:
		logger.Warn("failed to set cache", zap.String("key", key), zap.Error(err))
	case !stored:
		logger.Debug("key invalidated during fetch, result not cached", zap.String("key", key))
	default:
		logger.Debug("cache populated", zap.String("key", key), zap.Duration("ttl", ttl))
	}
	return value, nil
}

func triggerBackgroundRefresh[T any](
	c Cacher,
	sf *singleflight.Group,
	versions *keyVersions,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) {
	go func() {
		time.Sleep(refreshDelay())

		_, _, _ = sf.Do(key+refreshSuffix, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			v, err := loadAndStore(ctx, c, versions, key, ttl, logger, fn)
			if err != nil {
				logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
			}
			return v, err
		})
	}()
}

// FindAndCache implements read-through caching with singleflight and
// refresh-ahead. Errors from fn are returned and never cached, and a result
// whose key was invalidated while fn ran is not cached either.
func FindAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	versions *keyVersions,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}

	var cached T
	err := c.Get(ctx, key, &cached)
	switch {
	case err == nil:
		logger.Debug("cache hit", zap.String("key", key))
		triggerBackgroundRefresh(c, sf, versions, key, ttl, logger, fn)
		return cached, nil

	case errors.Is(err, cache.ErrMiss):
		logger.Debug("cache miss", zap.String("key", key))

	default:
		logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := sf.Do(key, func() (any, error) {
		return loadAndStore(ctx, c, versions, key, ttl, logger, fn)
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}

	if shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}

	return value, nil
}

// invalidate drops keys after a write. In-flight loads of those keys keep
// their result out of the cache, and later callers start a fresh load.
// Delete failures only cost freshness until the TTL expires.
func invalidate(ctx context.Context, c Cacher, sf *singleflight.Group, versions *keyVersions, logger *zap.Logger, keys ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultSetTimeout)
	defer cancel()

	for _, key := range keys {
		e := versions.entry(key)
		e.mu.Lock()
		e.n++
		err := c.Delete(ctx, key)
		e.mu.Unlock()

		sf.Forget(key)
		sf.Forget(key + refreshSuffix)
		if err != nil {
			logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
}
