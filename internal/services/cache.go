package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "eguard:cache:"
	// DefaultCacheTTL applies when a non-positive TTL is passed
	DefaultCacheTTL = 15 * time.Minute
)

// CacheService is a JSON cache over Redis. A nil client disables it: reads miss
// and writes are dropped.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

func (c *CacheService) Enabled() bool {
	return c != nil && c.client != nil
}

// Get reports whether key was found and decoded into dest.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	val, err := c.client.Get(ctx, CacheKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("cache decode: %w", err)
	}
	return true, nil
}

func (c *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	return c.client.Set(ctx, CacheKeyPrefix+key, data, ttl).Err()
}

// CacheKey builds "resource:identifier". Identifiers that are personal data
// are hashed so they never appear in Redis in clear text.
func CacheKey(resource string, identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return resource + ":" + hex.EncodeToString(sum[:])
}
