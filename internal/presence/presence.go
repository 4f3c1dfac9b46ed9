package presence

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL on a presence key. A client on the waiting screen is expected to
// heartbeat well inside this window.
const presenceTTL = 30 * time.Second

// Oracle reports whether a user is still actively waiting on the matching
// screen for a scheduled session. Any implementation of this single method
// is substitutable for the redis-backed one.
type Oracle interface {
	IsActive(ctx context.Context, userID, scheduledSessionID uint) bool
}

// Tracker is the redis-backed presence store. Keys are best-effort and
// expire on their own; there is no durability requirement.
type Tracker struct {
	rdb *redis.Client
}

// Connect creates a Tracker from a redis URL.
func Connect(redisURL string) *Tracker {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse redis URL: %v", err)
	}
	return &Tracker{rdb: redis.NewClient(opts)}
}

// NewTracker wraps an existing redis client.
func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

func presenceKey(userID, scheduledSessionID uint) string {
	return fmt.Sprintf("presence:%d:%d", userID, scheduledSessionID)
}

// Touch marks the user as present on the waiting screen, refreshing the TTL.
func (t *Tracker) Touch(ctx context.Context, userID, scheduledSessionID uint) error {
	return t.rdb.Set(ctx, presenceKey(userID, scheduledSessionID), 1, presenceTTL).Err()
}

// IsActive reports whether the user's presence key is still alive.
func (t *Tracker) IsActive(ctx context.Context, userID, scheduledSessionID uint) bool {
	n, err := t.rdb.Exists(ctx, presenceKey(userID, scheduledSessionID)).Result()
	if err != nil {
		log.Printf("presence lookup failed for user %d: %v", userID, err)
		return false
	}
	return n > 0
}

// Clear drops the user's presence key immediately.
func (t *Tracker) Clear(ctx context.Context, userID, scheduledSessionID uint) {
	if err := t.rdb.Del(ctx, presenceKey(userID, scheduledSessionID)).Err(); err != nil {
		log.Printf("presence clear failed for user %d: %v", userID, err)
	}
}
