package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kintai-dev/kintai-api/internal/models"
)

const (
	tokenCacheKeyPrefix  = "token:claims:"
	tokenRevokedPrefix   = "token:revoked:"
	revokedRetentionSlop = time.Minute
)

// TokenCache caches validated access-token claims in Redis and tracks revoked
// tokens until they would have expired anyway. Redis being down degrades to a
// cache miss, never to a rejected request.
type TokenCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTokenCache constructs the cache.
func NewTokenCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *TokenCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenCache{client: client, ttl: ttl, logger: logger}
}

// Get returns cached claims for the token, or a miss.
func (c *TokenCache) Get(ctx context.Context, token string) (*models.JWTClaims, bool) {
	raw, err := c.client.Get(ctx, tokenCacheKeyPrefix+cacheKey(token)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("token cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var claims models.JWTClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		c.logger.Debug("token cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return &claims, true
}

// Set stores validated claims. The entry lives for the configured TTL, capped
// at the token's own expiry.
func (c *TokenCache) Set(ctx context.Context, token string, claims *models.JWTClaims) {
	raw, err := json.Marshal(claims)
	if err != nil {
		return
	}
	ttl := c.ttl
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, tokenCacheKeyPrefix+cacheKey(token), raw, ttl).Err(); err != nil {
		c.logger.Debug("token cache write failed", zap.Error(err))
	}
}

// Revoke marks a token rejected and drops any cached claims for it.
func (c *TokenCache) Revoke(ctx context.Context, token string) error {
	key := cacheKey(token)
	retention := c.ttl + revokedRetentionSlop
	if err := c.client.Set(ctx, tokenRevokedPrefix+key, "1", retention).Err(); err != nil {
		return err
	}
	if err := c.client.Del(ctx, tokenCacheKeyPrefix+key).Err(); err != nil {
		c.logger.Debug("token cache delete failed", zap.Error(err))
	}
	return nil
}

// IsRevoked reports whether the token was explicitly revoked.
func (c *TokenCache) IsRevoked(ctx context.Context, token string) bool {
	n, err := c.client.Exists(ctx, tokenRevokedPrefix+cacheKey(token)).Result()
	if err != nil {
		c.logger.Debug("token revocation check failed", zap.Error(err))
		return false
	}
	return n > 0
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
