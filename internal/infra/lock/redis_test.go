package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Runs against a real server when REDIS_ADDR is set.
func TestRedisTryLock(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0, time.Second, nil)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer r.Close()

	key := "analysis:test-" + uuid.NewString()
	unlock, ok, err := r.TryLock(ctx, key)
	if err != nil || !ok {
		t.Fatalf("first TryLock = %v, %v", ok, err)
	}
	if _, ok, err := r.TryLock(ctx, key); err != nil || ok {
		t.Fatalf("held key TryLock = %v, %v", ok, err)
	}
	unlock()
	unlock2, ok, err := r.TryLock(ctx, key)
	if err != nil || !ok {
		t.Fatalf("after release TryLock = %v, %v", ok, err)
	}

	// a stale unlock must not release someone else's lock
	unlock()
	if _, ok, _ := r.TryLock(ctx, key); ok {
		t.Fatal("stale unlock released the current holder")
	}
	unlock2()
}

func TestRedisLockExpires(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0, 200*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer r.Close()

	key := "analysis:test-" + uuid.NewString()
	if _, ok, err := r.TryLock(ctx, key); err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	time.Sleep(400 * time.Millisecond)
	unlock, ok, err := r.TryLock(ctx, key)
	if err != nil || !ok {
		t.Fatal("lock did not expire after ttl")
	}
	unlock()
}
