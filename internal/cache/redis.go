package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BinListKeyFmt formats per-warehouse bin list keys
const BinListKeyFmt = "bins:list:%s"

var client *redis.Client

// Init connects to Redis. On failure the client stays nil and every helper
// below becomes a no-op, so callers fall through to the database.
func Init(addr, password string) error {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		client = nil
		return err
	}
	client = c
	return nil
}

// SetClient installs an already connected client (nil disables caching)
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client, or nil when caching is disabled
func GetClient() *redis.Client {
	return client
}

// Close releases the connection
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// BinListKey is the cache key for one warehouse's bin list ("all" when empty)
func BinListKey(warehouse string) string {
	if warehouse == "" {
		warehouse = "all"
	}
	return fmt.Sprintf(BinListKeyFmt, warehouse)
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	keys, err := client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// InvalidateBinCaches clears every cached bin list.
// Called when: bulk import
func InvalidateBinCaches(ctx context.Context) {
	InvalidatePattern(ctx, "bins:*")
}

// InvalidateWarehouseBins clears one warehouse's list and the unscoped list.
// Called when: CreateBin
func InvalidateWarehouseBins(ctx context.Context, warehouse string) {
	InvalidateKeys(ctx, BinListKey(warehouse), BinListKey(""))
}

// IsHealthy returns true if the Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
