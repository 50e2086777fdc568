package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Client wraps a Redis connection. It is a process-wide singleton per the
// teacher's "process-wide singletons, init-on-first-use, explicit shutdown"
// convention (DESIGN NOTES §9).
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

var client *Client

// Connect initializes the process-wide cache client.
func Connect(url string, ttlSeconds int) (*Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	client = &Client{rdb: rdb, ttl: time.Duration(ttlSeconds) * time.Second}
	return client, nil
}

// Get returns the process-wide cache client.
func Get() *Client {
	return client
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func tenantKey(slug string) string {
	return fmt.Sprintf("factory:slug:%s", slug)
}

func deviceKey(tenantID int64, key string) string {
	return fmt.Sprintf("device:%d:%s", tenantID, key)
}

// get reads a raw cache entry and JSON-decodes it into dest. It returns
// ok=false on a miss, a Redis error, or a decode error (in which case the
// corrupt key is evicted). The cache is an optimization only — callers
// must tolerate Redis being unavailable and fall back to the datastore.
func (c *Client) get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("cache read failed, falling back to datastore")
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.rdb.Del(ctx, key)
		return false
	}
	return true
}

func (c *Client) set(ctx context.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// GetTenantJSON reads the tenant-by-slug cache into dest, reporting a hit.
func GetTenantJSON(ctx context.Context, slug string, dest interface{}) bool {
	return client.get(ctx, tenantKey(slug), dest)
}

// SetTenantJSON populates the tenant-by-slug cache.
func SetTenantJSON(ctx context.Context, slug string, value interface{}) {
	client.set(ctx, tenantKey(slug), value)
}

// InvalidateTenant evicts a tenant's cache entry after a write.
func InvalidateTenant(ctx context.Context, slug string) {
	if client == nil {
		return
	}
	client.rdb.Del(ctx, tenantKey(slug))
}

// GetDeviceJSON reads the device-by-key cache into dest, reporting a hit.
func GetDeviceJSON(ctx context.Context, tenantID int64, key string, dest interface{}) bool {
	return client.get(ctx, deviceKey(tenantID, key), dest)
}

// SetDeviceJSON populates the device-by-key cache.
func SetDeviceJSON(ctx context.Context, tenantID int64, key string, value interface{}) {
	client.set(ctx, deviceKey(tenantID, key), value)
}

// InvalidateDevice evicts a device's cache entry after a write.
func InvalidateDevice(ctx context.Context, tenantID int64, key string) {
	if client == nil {
		return
	}
	client.rdb.Del(ctx, deviceKey(tenantID, key))
}
