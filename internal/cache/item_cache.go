package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	dom "github.com/ko-tarou/DeadLine/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyList     = "items:list:"
	keyOverdue  = "items:overdue:"
	keyUpcoming = "items:upcoming:"
	keySearch   = "items:search:"
)

// ItemCache caches per-user item query results in Redis.
type ItemCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewItemCache returns a new ItemCache.
func NewItemCache(rdb *redis.Client, ttl time.Duration) *ItemCache {
	return &ItemCache{rdb: rdb, ttl: ttl}
}

func (c *ItemCache) get(ctx context.Context, key string) ([]dom.DeadlineItem, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeItems(b)
}

func (c *ItemCache) set(ctx context.Context, key string, list []dom.DeadlineItem) error {
	b, err := encodeItems(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// encodeItems always writes a JSON array. A nil slice would encode as null,
// which decodes back to nil and is indistinguishable from a cache miss.
func encodeItems(list []dom.DeadlineItem) ([]byte, error) {
	if list == nil {
		list = []dom.DeadlineItem{}
	}
	return json.Marshal(list)
}

// decodeItems returns a non-nil slice for any stored array, so callers can
// tell a cached empty result from a miss.
func decodeItems(b []byte) ([]dom.DeadlineItem, error) {
	list := []dom.DeadlineItem{}
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []dom.DeadlineItem{}
	}
	return list, nil
}

func uid(userID int64) string { return strconv.FormatInt(userID, 10) }

// GetList returns the cached list or nil on miss.
func (c *ItemCache) GetList(ctx context.Context, userID int64) ([]dom.DeadlineItem, error) {
	return c.get(ctx, keyList+uid(userID))
}

// SetList stores the list in cache.
func (c *ItemCache) SetList(ctx context.Context, userID int64, list []dom.DeadlineItem) error {
	return c.set(ctx, keyList+uid(userID), list)
}

// GetOverdue returns the cached overdue list or nil on miss.
func (c *ItemCache) GetOverdue(ctx context.Context, userID int64) ([]dom.DeadlineItem, error) {
	return c.get(ctx, keyOverdue+uid(userID))
}

// SetOverdue stores the overdue list in cache.
func (c *ItemCache) SetOverdue(ctx context.Context, userID int64, list []dom.DeadlineItem) error {
	return c.set(ctx, keyOverdue+uid(userID), list)
}

// GetUpcoming returns the cached upcoming list or nil on miss.
func (c *ItemCache) GetUpcoming(ctx context.Context, userID int64) ([]dom.DeadlineItem, error) {
	return c.get(ctx, keyUpcoming+uid(userID))
}

// SetUpcoming stores the upcoming list in cache.
func (c *ItemCache) SetUpcoming(ctx context.Context, userID int64, list []dom.DeadlineItem) error {
	return c.set(ctx, keyUpcoming+uid(userID), list)
}

// GetSearch returns the cached search result for query q, or nil on miss.
func (c *ItemCache) GetSearch(ctx context.Context, userID int64, q string) ([]dom.DeadlineItem, error) {
	return c.get(ctx, keySearch+uid(userID)+":"+normalizeQuery(q))
}

// SetSearch stores the search result in cache.
func (c *ItemCache) SetSearch(ctx context.Context, userID int64, q string, list []dom.DeadlineItem) error {
	return c.set(ctx, keySearch+uid(userID)+":"+normalizeQuery(q), list)
}

// InvalidateAll removes every cached query of the user (cache invalidation on write).
func (c *ItemCache) InvalidateAll(ctx context.Context, userID int64) error {
	if err := c.rdb.Del(ctx,
		keyList+uid(userID), keyOverdue+uid(userID), keyUpcoming+uid(userID)).Err(); err != nil {
		return err
	}
	iter := c.rdb.Scan(ctx, 0, keySearch+uid(userID)+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func normalizeQuery(q string) string {
	return strings.TrimSpace(strings.ToLower(q))
}
