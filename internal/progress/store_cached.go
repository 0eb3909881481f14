package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DocCache is the slice of the Redis cache the cached store needs.
type DocCache interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedStore reads through a cache in front of another Store. Writes go to
// the inner store and then drop the cached document, since the merged result
// is only known to the inner store. Cache failures degrade to the inner store.
type CachedStore struct {
	inner Store
	cache DocCache
	ttl   time.Duration
}

// NewCachedStore wraps inner with cache. ttl bounds how long a document may
// be served from the cache.
func NewCachedStore(inner Store, cache DocCache, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, cache: cache, ttl: ttl}
}

func cacheKey(terminalID, studentName string) string {
	return "progress:" + Key(terminalID, studentName)
}

func (s *CachedStore) Load(ctx context.Context, terminalID, studentName string) (*StudentProgress, error) {
	key := cacheKey(terminalID, studentName)

	var cached StudentProgress
	found, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		slog.Warn("progress cache read failed", "key", key, "error", err)
	} else if found {
		return &cached, nil
	}

	p, err := s.inner.Load(ctx, terminalID, studentName)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, p, s.ttl); err != nil {
		slog.Warn("progress cache fill failed", "key", key, "error", err)
	}
	return p, nil
}

func (s *CachedStore) Save(ctx context.Context, terminalID, studentName string, p StudentProgress) error {
	if err := s.inner.Save(ctx, terminalID, studentName, p); err != nil {
		return err
	}
	key := cacheKey(terminalID, studentName)
	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

// List is served by the inner store when it can list.
func (s *CachedStore) List(ctx context.Context, terminalID string) ([]Record, error) {
	l, ok := s.inner.(Lister)
	if !ok {
		return nil, fmt.Errorf("progress store cannot list")
	}
	return l.List(ctx, terminalID)
}
