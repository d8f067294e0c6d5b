package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, limit int) (*AttemptLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewAttemptLimiter(rdb, "attempts:", limit, time.Hour), mr
}

func TestAttemptLimiterHit(t *testing.T) {
	ctx := context.Background()
	l, mr := newLimiter(t, 3)

	for _, want := range []int{2, 1, 0} {
		left, err := l.Hit(ctx, "s1")
		if err != nil {
			t.Fatalf("Hit() error: %v", err)
		}
		if left != want {
			t.Errorf("Hit() = %d, want %d", left, want)
		}
	}
	if _, err := l.Hit(ctx, "s1"); !IsKind(err, KindCapacity) {
		t.Errorf("Hit() past limit error = %v, want capacity", err)
	}
	if left, _ := l.Remaining(ctx, "s1"); left != 0 {
		t.Errorf("Remaining() = %d, want 0", left)
	}
	if ttl := mr.TTL("attempts:s1"); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	mr.FastForward(time.Hour + time.Second)
	if left, _ := l.Remaining(ctx, "s1"); left != 3 {
		t.Errorf("Remaining() after window = %d, want 3", left)
	}
}

func TestAttemptLimiterReset(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(t, 2)

	if _, err := l.Hit(ctx, "s1"); err != nil {
		t.Fatalf("Hit() error: %v", err)
	}
	if _, err := l.Hit(ctx, "s2"); err != nil {
		t.Fatalf("Hit() error: %v", err)
	}
	if err := l.Reset(ctx, "s1"); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if left, _ := l.Remaining(ctx, "s1"); left != 2 {
		t.Errorf("Remaining(s1) = %d, want 2", left)
	}
	if left, _ := l.Remaining(ctx, "s2"); left != 1 {
		t.Errorf("Remaining(s2) = %d, want 1", left)
	}
}
