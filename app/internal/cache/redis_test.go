package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gomodule/redigo/redis"
)

func newTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)

	pool := &redis.Pool{
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", mr.Addr())
		},
	}
	s := NewRedisStore(pool, "statuspage", time.Minute)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_SetGet(t *testing.T) {
	s, mr := newTestRedis(t)

	if err := s.Set(ctx, "log:website", "2024-01-01 10:00:00,success", 0); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get(ctx, "log:website")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if v != "2024-01-01 10:00:00,success" {
		t.Errorf("unexpected value %q", v)
	}
	if !mr.Exists("statuspage:log:website") {
		t.Error("expected namespaced key in redis")
	}
}

func TestRedisStore_Missing(t *testing.T) {
	s, _ := newTestRedis(t)

	_, ok, err := s.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("missing key should not be an error: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	s, mr := newTestRedis(t)

	_ = s.Set(ctx, "k", "v", 30*time.Second)
	mr.FastForward(31 * time.Second)

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expected key to expire")
	}
}

func TestRedisStore_DeletePrefix(t *testing.T) {
	s, _ := newTestRedis(t)

	_ = s.Set(ctx, "log:a", "1", 0)
	_ = s.Set(ctx, "log:b", "2", 0)
	_ = s.Set(ctx, "meta:c", "3", 0)

	if err := s.DeletePrefix(ctx, "log:"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "log:a"); ok {
		t.Error("log:a should be deleted")
	}
	if _, ok, _ := s.Get(ctx, "meta:c"); !ok {
		t.Error("meta:c should remain")
	}

	_ = s.Delete(ctx, "meta:c")
	if _, ok, _ := s.Get(ctx, "meta:c"); ok {
		t.Error("meta:c should be deleted")
	}
}
