package utils

import (
	"context"
	"sync"
	"time"
)

const revokedTokenPrefix = "jwt:revoked:"

// revokedTokens is the in-process fallback: token id -> expiry.
var (
	revokedTokens   = map[string]time.Time{}
	revokedTokensMu sync.Mutex
)

// RevokeToken marks the token id as logged out until the token would have expired anyway.
func RevokeToken(tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if tokenID == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, revokedTokenPrefix+tokenID, "1", ttl).Err(); err != nil {
			Sugar.Warnw("token revoke write failed", "jti", tokenID, "error", err)
		}
		return
	}

	revokedTokensMu.Lock()
	defer revokedTokensMu.Unlock()
	now := time.Now()
	for id, exp := range revokedTokens {
		if now.After(exp) {
			delete(revokedTokens, id)
		}
	}
	revokedTokens[tokenID] = expiresAt
}

// IsTokenRevoked reports whether the token id was logged out. Redis lookup errors count as not revoked.
func IsTokenRevoked(tokenID string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, revokedTokenPrefix+tokenID).Result()
		if err != nil {
			Sugar.Warnw("token revoke lookup failed", "jti", tokenID, "error", err)
			return false
		}
		return n > 0
	}

	revokedTokensMu.Lock()
	defer revokedTokensMu.Unlock()
	exp, ok := revokedTokens[tokenID]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(revokedTokens, tokenID)
		return false
	}
	return true
}
