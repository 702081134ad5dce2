package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/genesishealth/genesis-api/config"
)

// The revocation denylist is the only sign-out mechanism: tokens are
// stateless, so an explicit Redis entry with a TTL equal to the token's
// remaining validity marks it dead early.

func denylistKey(token string) string {
	return fmt.Sprintf("revoked:%s", token)
}

// RevokeToken records the token as revoked until its natural expiry.
// A non-positive TTL means the token is already expired and there is
// nothing to deny.
func RevokeToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	rdb := config.GetRedisClient()
	if rdb == nil {
		return fmt.Errorf("redis not available")
	}
	return rdb.Set(ctx, denylistKey(token), "1", ttl).Err()
}

// IsTokenRevoked reports whether the token is on the denylist. Redis
// failures are logged and treated as not-revoked so an unavailable denylist
// cannot take the whole API down.
func IsTokenRevoked(ctx context.Context, token string) bool {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return false
	}
	err := rdb.Get(ctx, denylistKey(token)).Err()
	if err == nil {
		return true
	}
	if err != redis.Nil {
		LogAuditEvent(AuditEvent{
			EventType: EventSuspiciousActivity,
			Message:   fmt.Sprintf("Denylist check failed: %v", err),
		})
	}
	return false
}
