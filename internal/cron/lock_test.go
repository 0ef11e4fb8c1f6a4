package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeLockStore struct {
	values map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeLockStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockAcquireRelease(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "sweep", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !ok {
		t.Fatalf("expected to acquire free lock")
	}
	if _, exists := store.values["ll:cron:lock:sweep"]; !exists {
		t.Fatalf("lock key not written under expected namespace")
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(store.values) != 0 {
		t.Fatalf("release left the lease behind")
	}
}

func TestRedisLockContention(t *testing.T) {
	store := newFakeLockStore()
	first, _ := NewRedisLock(store, "sweep", time.Minute)
	second, _ := NewRedisLock(store, "sweep", time.Minute)

	if ok, _ := first.Acquire(context.Background()); !ok {
		t.Fatalf("first acquire should win")
	}
	ok, err := second.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatalf("second acquire should lose while lease is held")
	}
}

func TestRedisLockReleaseLeavesStolenLease(t *testing.T) {
	store := newFakeLockStore()
	lock, _ := NewRedisLock(store, "sweep", time.Minute)
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatalf("acquire failed")
	}

	// TTL expired and another replica took the lease.
	store.values["ll:cron:lock:sweep"] = "someone-else"

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["ll:cron:lock:sweep"] != "someone-else" {
		t.Fatalf("release deleted a lease it no longer owned")
	}
}
