package rating

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const DefaultCacheTTL = 10 * time.Minute

// Cache keeps driver summaries in Redis. A nil *Cache is valid and caches
// nothing.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(driverID string) string {
	return "driver_rating:" + driverID
}

// Get returns the cached summary. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, driverID string) (s Summary, ok bool, err error) {
	if c == nil {
		return Summary{}, false, nil
	}

	data, err := c.client.Get(ctx, cacheKey(driverID)).Result()
	if errors.Is(err, redis.Nil) {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, err
	}

	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return Summary{}, false, err
	}
	return s, true, nil
}

// GetMany returns the cached summaries of the given drivers. Misses are left
// out of the map.
func (c *Cache) GetMany(ctx context.Context, driverIDs []string) (map[string]Summary, error) {
	found := make(map[string]Summary, len(driverIDs))
	if c == nil || len(driverIDs) == 0 {
		return found, nil
	}

	keys := make([]string, len(driverIDs))
	for i, id := range driverIDs {
		keys[i] = cacheKey(id)
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return found, err
	}

	for i, v := range vals {
		data, ok := v.(string)
		if !ok {
			continue
		}
		var s Summary
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return found, err
		}
		found[driverIDs[i]] = s
	}
	return found, nil
}

func (c *Cache) Set(ctx context.Context, driverID string, s Summary) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(driverID), string(data), c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, driverID string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, cacheKey(driverID)).Err()
}
