package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := NewLock(rdb)
	ctx := context.Background()
	key := "checkin:lock:u:gym:2024-03-15"

	ok, err := l.Acquire(ctx, key, 30*time.Second)
	if err != nil || !ok {
		t.Fatalf("first acquire = %v, %v", ok, err)
	}
	if ok, _ := l.Acquire(ctx, key, 30*time.Second); ok {
		t.Fatal("second acquire succeeded while held")
	}
	if err := l.Release(ctx, key); err != nil {
		t.Fatal(err)
	}
	if ok, _ := l.Acquire(ctx, key, 30*time.Second); !ok {
		t.Fatal("acquire after release failed")
	}

	mr.FastForward(31 * time.Second)
	if ok, _ := l.Acquire(ctx, key, 30*time.Second); !ok {
		t.Fatal("lock did not expire")
	}
}
