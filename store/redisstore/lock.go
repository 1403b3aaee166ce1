// Package redisstore provides the Redis-backed check-in lock.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/lifetrack/gamification"
)

// Lock is a gamification.DailyLock shared by every server instance.
type Lock struct {
	rdb    *redis.Client
	prefix string
}

func NewLock(rdb *redis.Client) *Lock {
	return &Lock{rdb: rdb, prefix: "lifetrack:"}
}

var _ gamification.DailyLock = (*Lock)(nil)

func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.prefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (l *Lock) Release(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
