package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tubegate/tubegate/pkg/models"
)

// Cache provides the metadata cache tier using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

func mediaKey(videoID, streamKind string) string {
	return fmt.Sprintf("media:%s:%s", videoID, streamKind)
}

// Media Cache Operations

// SetMedia caches a media record. The TTL doubles as the source URL
// lifetime: an entry still present is assumed to hold a live URL.
func (c *Cache) SetMedia(ctx context.Context, rec *models.MediaRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal media record: %w", err)
	}

	key := mediaKey(rec.VideoID, rec.StreamKind)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetMedia retrieves a media record from cache
func (c *Cache) GetMedia(ctx context.Context, videoID, streamKind string) (*models.MediaRecord, error) {
	key := mediaKey(videoID, streamKind)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get media record from cache: %w", err)
	}

	var rec models.MediaRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal media record: %w", err)
	}

	return &rec, nil
}

// DeleteMedia removes a media record from cache
func (c *Cache) DeleteMedia(ctx context.Context, videoID, streamKind string) error {
	key := mediaKey(videoID, streamKind)
	return c.client.Del(ctx, key).Err()
}

// Locking Operations

// AcquireLock attempts to acquire a distributed lock
func (c *Cache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.SetNX(ctx, key, "locked", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Cache) ReleaseLock(ctx context.Context, resource string) error {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.Del(ctx, key).Err()
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
