package utils

import (
	"context"
	"sync"
	"time"
)

const revokedKeyPrefix = "jwt:revoked:"

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.RWMutex
)

// RevokeToken marks a token id revoked until it would have expired anyway.
func RevokeToken(ctx context.Context, jti string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if jti == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err(); err != nil {
			Sugar.Warnf("revoke token failed jti=%s err=%v", jti, err)
		}
		return
	}
	revokedMu.Lock()
	revoked[jti] = expiresAt
	revokedMu.Unlock()
}

// IsTokenRevoked reports whether jti was revoked. Redis errors fail open.
func IsTokenRevoked(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, revokedKeyPrefix+jti).Result()
		if err != nil {
			Sugar.Warnf("revocation check failed jti=%s err=%v", jti, err)
			return false
		}
		return n > 0
	}

	revokedMu.RLock()
	expiresAt, ok := revoked[jti]
	revokedMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		revokedMu.Lock()
		delete(revoked, jti)
		revokedMu.Unlock()
		return false
	}
	return true
}
