// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"foodshare_backend/internal/feature/listing/domain/entity"
	"foodshare_backend/internal/feature/listing/usecase"
)

// tombstoneTTL is how long an invalidated key refuses refills. A lookup that read
// the store before a write and tries to cache the result after it finds the
// tombstone in place and leaves the key alone.
const tombstoneTTL = 5 * time.Second

// tombstone marks an invalidated key. Reads treat it as a miss.
const tombstone = ""

// CachingListingRepository decorates a ListingRepository with a Redis
// read-through cache for single-listing lookups. List queries are not cached.
type CachingListingRepository struct {
	inner     usecase.ListingRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.ListingRepository = (*CachingListingRepository)(nil)

// NewCachingListingRepository decorates a ListingRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "listings".
func NewCachingListingRepository(rdb *redis.Client, ttl time.Duration, inner usecase.ListingRepository, namespace string) *CachingListingRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "listings"
	}
	return &CachingListingRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

func (c *CachingListingRepository) Create(ctx context.Context, l *entity.Listing) error {
	return c.inner.Create(ctx, l)
}

// FindByID checks the cache first then falls back to the store.
func (c *CachingListingRepository) FindByID(ctx context.Context, id string) (*entity.Listing, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.FindByID(ctx, id)
	}

	key := c.cacheKey(id)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.Listing
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the store
	out, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort). SETNX never replaces a tombstone
	// left by a write that raced with this lookup.
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.SetNX(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

func (c *CachingListingRepository) List(ctx context.Context, f entity.Filter) iter.Seq2[*entity.Listing, error] {
	return c.inner.List(ctx, f)
}

func (c *CachingListingRepository) Update(ctx context.Context, id string, expected entity.Status, p entity.Patch) (*entity.Listing, error) {
	defer c.invalidate(ctx, id)
	return c.inner.Update(ctx, id, expected, p)
}

func (c *CachingListingRepository) Transition(ctx context.Context, id string, from, to entity.Status, claimant string) (*entity.Listing, error) {
	defer c.invalidate(ctx, id)
	return c.inner.Transition(ctx, id, from, to, claimant)
}

func (c *CachingListingRepository) AddImage(ctx context.Context, id, key string) (*entity.Listing, error) {
	defer c.invalidate(ctx, id)
	return c.inner.AddImage(ctx, id, key)
}

func (c *CachingListingRepository) Delete(ctx context.Context, id string) error {
	defer c.invalidate(ctx, id)
	return c.inner.Delete(ctx, id)
}

// ExpireBefore touches an unknown set of rows, so every cached listing is dropped.
func (c *CachingListingRepository) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := c.inner.ExpireBefore(ctx, cutoff)
	if err != nil || n == 0 || c.rdb == nil {
		return n, err
	}
	if err := c.tombstoneByPattern(ctx, c.namespace+":id:*"); err != nil {
		slog.Warn("listing cache invalidation failed", "error", err)
	}
	return n, nil
}

// invalidate runs after the write whether or not it succeeded; a failed
// conditional write still means the cached status may be stale.
// The key is replaced by a short-lived tombstone rather than deleted.
func (c *CachingListingRepository) invalidate(ctx context.Context, id string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, c.cacheKey(id), tombstone, tombstoneTTL).Err(); err != nil {
		slog.Warn("listing cache invalidation failed", "listing_id", id, "error", err)
	}
}

func (c *CachingListingRepository) cacheKey(id string) string {
	return fmt.Sprintf("%s:id:%s", c.namespace, safe(id))
}

// tombstoneByPattern replaces all cache keys matching a given pattern with tombstones using SCAN.
func (c *CachingListingRepository) tombstoneByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
				for _, k := range keys {
					p.Set(ctx, k, tombstone, tombstoneTTL)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "*", "_")
	return s
}
