// Package presence mirrors the gateway's in-memory roster into Redis so
// external services can see who is online. The mirror is write-only and
// best-effort; the relay registry stays the source of truth.
package presence

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"go-relay/internal/relay"
)

const opTimeout = 2 * time.Second

type RedisTracker struct {
	rdb *redis.Client
	key string
}

func NewRedisTracker(rdb *redis.Client, key string) *RedisTracker {
	return &RedisTracker{rdb: rdb, key: key}
}

func (t *RedisTracker) UserOnline(u relay.User) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := t.rdb.SAdd(ctx, t.key, strconv.Itoa(u.UserID)).Err(); err != nil {
		log.Printf("presence: failed to mirror online %s: %v", u.Username, err)
	}
}

func (t *RedisTracker) UserOffline(u relay.User) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := t.rdb.SRem(ctx, t.key, strconv.Itoa(u.UserID)).Err(); err != nil {
		log.Printf("presence: failed to mirror offline %s: %v", u.Username, err)
	}
}
