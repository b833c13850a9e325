package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"builders-core/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// unlockScript deletes a lock key only when it still holds the caller's
// token, so one holder cannot release another holder's lock.
const unlockScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

const featuredSlotKey = "featured:current"

type Client struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:      rdb,
		unlockSc: redis.NewScript(unlockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// CacheFeatured stores the current featured entry until its expiry instant.
// Callers treat failures as soft; the database stays authoritative.
func (c *Client) CacheFeatured(ctx context.Context, entry *models.FeaturedEntry, now time.Time) error {
	if entry.ExpiresAt == nil {
		return nil
	}
	ttl := entry.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal featured entry: %w", err)
	}
	return c.rdb.Set(ctx, featuredSlotKey, payload, ttl).Err()
}

// GetCachedFeatured returns the cached featured entry, or nil on miss.
func (c *Client) GetCachedFeatured(ctx context.Context) (*models.FeaturedEntry, error) {
	payload, err := c.rdb.Get(ctx, featuredSlotKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry models.FeaturedEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached featured entry: %w", err)
	}
	return &entry, nil
}

// InvalidateFeatured drops the cached featured slot.
func (c *Client) InvalidateFeatured(ctx context.Context) error {
	return c.rdb.Del(ctx, featuredSlotKey).Err()
}

// MarkEventSeen stores a webhook event id with a TTL as a fast-path duplicate
// check ahead of the database record.
func (c *Client) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("webhook:seen:%s", eventID), "1", ttl).Err()
}

// EventSeen checks the fast-path duplicate marker.
func (c *Client) EventSeen(ctx context.Context, eventID string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("webhook:seen:%s", eventID)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// AcquireLock acquires a distributed lock and returns a release function.
// Release is conditional on the token, safe to call multiple times.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (func(), bool, error) {
	token := uuid.New().String()
	key := fmt.Sprintf("lock:%s", lockKey)

	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		// Background context so release works even after the caller's
		// context is cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.unlockSc.Run(releaseCtx, c.rdb, []string{key}, token).Err()
	}

	return release, true, nil
}
