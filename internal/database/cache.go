package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

const (
	// Cache key prefixes
	CacheKeySettings  = "tikguard:settings"
	CacheKeySetting   = "tikguard:setting:"
	CacheKeyRouter    = "tikguard:router:active"
	CacheKeyUser      = "tikguard:user:"
	CacheKeyBlacklist = "tikguard:token:blacklist:"

	// Cache TTLs
	CacheTTLSettings = 5 * time.Minute
	CacheTTLRouter   = 2 * time.Minute
	CacheTTLUser     = 2 * time.Minute
)

// CacheGet retrieves a value from Redis cache and unmarshals it into dest
func CacheGet(key string, dest interface{}) error {
	ctx := context.Background()
	data, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// CacheSet stores a value in Redis cache with TTL
func CacheSet(key string, value interface{}, ttl time.Duration) error {
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, ttl).Err()
}

// CacheDelete removes a key from Redis cache
func CacheDelete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Del(ctx, keys...).Err()
}

// CacheDeletePattern deletes all keys matching a pattern (use with caution)
func CacheDeletePattern(pattern string) error {
	ctx := context.Background()
	iter := Redis.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return Redis.Del(ctx, keys...).Err()
	}
	return nil
}

// InvalidateSettingsCache clears all settings-related caches
func InvalidateSettingsCache() {
	CacheDelete(CacheKeySettings)
	CacheDeletePattern(CacheKeySetting + "*")
}

// InvalidateRouterCache clears the active router config cache
func InvalidateRouterCache() {
	CacheDelete(CacheKeyRouter)
}

// InvalidateUserCache clears cached user lookups
func InvalidateUserCache(userID string) {
	CacheDelete(CacheKeyUser + userID)
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return CacheKeyBlacklist + hex.EncodeToString(sum[:])
}

// BlacklistToken marks a JWT as revoked until it would have expired anyway
func BlacklistToken(token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return Redis.Set(context.Background(), tokenKey(token), "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a JWT was revoked by logout
func IsTokenBlacklisted(token string) bool {
	n, err := Redis.Exists(context.Background(), tokenKey(token)).Result()
	return err == nil && n > 0
}
