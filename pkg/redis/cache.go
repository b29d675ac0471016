package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores raw upstream response bodies
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = TTLDaily
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached body for key. A miss is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !c.client.Enabled() {
		return nil, false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return data, true, nil
}

// Set stores body under key with the cache TTL
func (c *Cache) Set(ctx context.Context, key string, body []byte) error {
	if !c.client.Enabled() {
		return nil
	}
	if err := c.client.Redis().Set(ctx, c.fullKey(key), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// GetOrFetch returns the cached body or calls fetch and stores its result.
// Cache write failures are ignored; the fetched body is still returned.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch func() ([]byte, error)) ([]byte, error) {
	if body, ok, err := c.Get(ctx, key); err == nil && ok {
		return body, nil
	}

	body, err := fetch()
	if err != nil {
		return nil, err
	}

	_ = c.Set(ctx, key, body)
	return body, nil
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Predefined TTLs
const (
	TTLMedium = 10 * time.Minute // 종목 목록
	TTLDaily  = 24 * time.Hour   // 일별 데이터
)

// RequestKey builds a stable key for an upstream request: the endpoint id
// plus a digest of its encoded parameters (url.Values encodes sorted by key).
func RequestKey(endpoint string, params url.Values) string {
	sum := sha1.Sum([]byte(params.Encode()))
	return fmt.Sprintf("%s:%s", endpoint, hex.EncodeToString(sum[:8]))
}
