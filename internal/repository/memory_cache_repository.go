package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	lru "github.com/hashicorp/golang-lru"

	appErrors "github.com/noah-isme/campus-slot-api/pkg/errors"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCacheRepository is an in-process LRU cache with per-entry expiry,
// used when Redis is not configured. Values are stored JSON encoded so that
// callers never share mutable state with the cache.
type MemoryCacheRepository struct {
	cache *lru.Cache
	now   func() time.Time
}

// NewMemoryCacheRepository builds a cache holding at most size entries.
func NewMemoryCacheRepository(size int) (*MemoryCacheRepository, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &MemoryCacheRepository{cache: cache, now: time.Now}, nil
}

// Get decodes the cached value for key into dest.
func (r *MemoryCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := r.cache.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	entry := raw.(memoryEntry)
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		r.cache.Remove(key)
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value under key; a non-positive ttl never expires.
func (r *MemoryCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.cache.Add(key, entry)
	return nil
}

// DeleteByPattern removes every key matching the glob pattern.
func (r *MemoryCacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid cache pattern %s: %w", pattern, err)
	}
	for _, raw := range r.cache.Keys() {
		key, ok := raw.(string)
		if !ok {
			continue
		}
		if matched, _ := path.Match(pattern, key); matched {
			r.cache.Remove(key)
		}
	}
	return nil
}

// Len reports the number of cached entries, expired ones included.
func (r *MemoryCacheRepository) Len() int {
	return r.cache.Len()
}
