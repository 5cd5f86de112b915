// Package cache provides a best-effort Redis layer in front of the durable
// classification cache. When Redis is unreachable all operations degrade to
// no-ops so classification falls back to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const classificationTTL = 7 * 24 * time.Hour

// Classification caches classification payloads keyed per user and content
// hash.
type Classification struct {
	client *redis.Client
}

// NewClassification connects to Redis at the given URL. A connection failure
// is logged and returns a disabled cache, not an error; Redis being down
// must not take the service down.
func NewClassification(redisURL string) *Classification {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("[Cache] Invalid REDIS_URL, running without Redis: %v", err)
		return &Classification{}
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[Cache] Redis unavailable, using DB-only cache: %v", err)
		return &Classification{}
	}

	log.Printf("[Cache] Redis connected")
	return &Classification{client: client}
}

// Enabled reports whether a Redis connection is live.
func (c *Classification) Enabled() bool {
	return c != nil && c.client != nil
}

func key(userID, contentHash string) string {
	return fmt.Sprintf("class:%s:%s", userID, contentHash)
}

// Get returns the cached payload for the user and hash, or nil on miss,
// error, or disabled cache.
func (c *Classification) Get(ctx context.Context, userID, contentHash string, dest interface{}) bool {
	if !c.Enabled() {
		return false
	}
	data, err := c.client.Get(ctx, key(userID, contentHash)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[Cache] Redis get error: %v", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("[Cache] Corrupt cache entry, ignoring: %v", err)
		return false
	}
	return true
}

// Set stores the payload with the classification TTL. Failures are logged
// and swallowed.
func (c *Classification) Set(ctx context.Context, userID, contentHash string, value interface{}) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(userID, contentHash), data, classificationTTL).Err(); err != nil {
		log.Printf("[Cache] Redis set error: %v", err)
	}
}

// Invalidate removes one entry.
func (c *Classification) Invalidate(ctx context.Context, userID, contentHash string) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Del(ctx, key(userID, contentHash)).Err(); err != nil {
		log.Printf("[Cache] Redis delete error: %v", err)
	}
}

// InvalidateUser removes every cached classification for the user. Used by
// the cache reset endpoint before a reprocess run.
func (c *Classification) InvalidateUser(ctx context.Context, userID string) {
	if !c.Enabled() {
		return
	}
	pattern := fmt.Sprintf("class:%s:*", userID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("[Cache] Redis delete error: %v", err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("[Cache] Redis scan error: %v", err)
	}
}

// Stats reports connection status and key count for the stats endpoint.
func (c *Classification) Stats(ctx context.Context) map[string]interface{} {
	if !c.Enabled() {
		return map[string]interface{}{"status": "unavailable"}
	}
	size, err := c.client.DBSize(ctx).Result()
	if err != nil {
		return map[string]interface{}{"status": "error", "error": err.Error()}
	}
	return map[string]interface{}{"status": "connected", "keys": size}
}
