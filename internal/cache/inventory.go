package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogapi/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix         = "user:%d"
	PostKeyPrefix         = "post:%d"
	RevokedTokenKeyPrefix = "revoked_token:%s"
)

const (
	UserTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(RevokedTokenKeyPrefix, jti)
}

// Aside reads key into dest, and on a miss calls fetch (which must populate
// dest) and stores the result with ttl. Redis failures degrade to a miss.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	name := cacheName(key)
	if client != nil {
		raw, err := client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if json.Unmarshal(raw, dest) == nil {
				observability.CacheLookups.WithLabelValues(name, "hit").Inc()
				return nil
			}
			observability.CacheLookups.WithLabelValues(name, "error").Inc()
		case errors.Is(err, redis.Nil):
			observability.CacheLookups.WithLabelValues(name, "miss").Inc()
		default:
			observability.CacheLookups.WithLabelValues(name, "error").Inc()
		}
	}

	if err := fetch(); err != nil {
		return err
	}

	if client != nil {
		if b, err := json.Marshal(dest); err == nil {
			client.Set(ctx, key, b, ttl)
		}
	}
	return nil
}

func cacheName(key string) string {
	name, _, _ := strings.Cut(key, ":")
	return name
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

// RevokeToken marks a bearer token id as revoked until it would have expired.
func RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if client == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return client.Set(ctx, RevokedTokenKey(jti), "1", ttl).Err()
}

// IsTokenRevoked reports whether jti was revoked. Without Redis nothing is revoked.
func IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if client == nil || jti == "" {
		return false, nil
	}
	n, err := client.Exists(ctx, RevokedTokenKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
