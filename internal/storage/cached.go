package storage

import (
	"context"
	"time"

	"atelier/internal/cache"
	"atelier/internal/middleware"
	"atelier/internal/observability"

	"github.com/redis/go-redis/v9"
)

// CachedSigner serves signed URLs from Redis and signs only the misses, in
// one inner batch call. Entries expire after half the URL lifetime, so a
// cached URL always has at least that much validity left. Redis failures
// fall through to signing.
type CachedSigner struct {
	inner URLSigner
	rdb   redis.Cmdable
	ttl   time.Duration
}

// NewCachedSigner wraps inner. urlTTL is the lifetime of URLs inner issues.
func NewCachedSigner(inner URLSigner, rdb redis.Cmdable, urlTTL time.Duration) *CachedSigner {
	return &CachedSigner{inner: inner, rdb: rdb, ttl: urlTTL / 2}
}

func (s *CachedSigner) Sign(ctx context.Context, path string) (string, error) {
	urls, err := s.SignBatch(ctx, []string{path})
	if err != nil {
		return "", err
	}
	return urls[path], nil
}

func (s *CachedSigner) SignBatch(ctx context.Context, paths []string) (map[string]string, error) {
	paths = dedupe(paths)
	urls := make(map[string]string, len(paths))
	if len(paths) == 0 {
		return urls, nil
	}

	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = cache.SignedURLKey(p)
	}

	misses := paths
	cached, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "signed url cache lookup failed", "error", err)
	} else {
		misses = make([]string, 0, len(paths))
		for i, v := range cached {
			if u, ok := v.(string); ok && u != "" {
				urls[paths[i]] = u
				continue
			}
			misses = append(misses, paths[i])
		}
	}
	observability.SignedURLCache.WithLabelValues("hit").Add(float64(len(urls)))
	observability.SignedURLCache.WithLabelValues("miss").Add(float64(len(misses)))

	if len(misses) == 0 {
		return urls, nil
	}

	fresh, err := s.inner.SignBatch(ctx, misses)
	if err != nil {
		return nil, err
	}

	pipe := s.rdb.Pipeline()
	for p, u := range fresh {
		urls[p] = u
		pipe.Set(ctx, cache.SignedURLKey(p), u, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "signed url cache write failed", "error", err)
	}
	return urls, nil
}
