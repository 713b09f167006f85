package persistence

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates the counter is cold for a recipient; callers fall
// back to a storage count and re-seed.
var ErrCacheMiss = errors.New("unread counter not cached")

const unreadKeyPrefix = "notif:unread:"

// unreadCounterTTL bounds staleness if a write path ever bypasses the cache.
const unreadCounterTTL = 12 * time.Hour

// UnreadCache keeps per-recipient unread notification counters in Redis so
// the 30-second badge poll does not hit Postgres.
type UnreadCache struct {
	redis *Redis
}

// NewUnreadCache builds the cache around an existing Redis wrapper.
func NewUnreadCache(r *Redis) *UnreadCache {
	return &UnreadCache{redis: r}
}

// Get returns the cached unread count, or ErrCacheMiss when cold.
func (c *UnreadCache) Get(ctx context.Context, recipientID string) (int64, error) {
	val, err := c.redis.Client.Get(ctx, unreadKeyPrefix+recipientID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// Set seeds the counter for a recipient.
func (c *UnreadCache) Set(ctx context.Context, recipientID string, count int64) error {
	return c.redis.Client.Set(ctx, unreadKeyPrefix+recipientID, count, unreadCounterTTL).Err()
}

// Incr bumps the counter when a notification is created. Cold counters are
// left cold; the next Get misses and re-seeds from storage.
func (c *UnreadCache) Incr(ctx context.Context, recipientID string) error {
	key := unreadKeyPrefix + recipientID
	exists, err := c.redis.Client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return nil
	}
	return c.redis.Client.Incr(ctx, key).Err()
}

// Reset zeroes the counter after a markAllRead.
func (c *UnreadCache) Reset(ctx context.Context, recipientID string) error {
	return c.redis.Client.Set(ctx, unreadKeyPrefix+recipientID, 0, unreadCounterTTL).Err()
}
