// Validates the cache and distributed-lock behaviour against a real Redis
// instance: TTL expiry, loader deduplication, negative caching, and the
// mutual exclusion the worker relies on when claiming sort runs.

package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/database/redis"
)

// ---------------------------------------------------------------------------
// Test: cache roundtrip and expiry
// ---------------------------------------------------------------------------

func TestCache_RoundtripAndExpiry(t *testing.T) {
	env := SetupTestEnvironment(t)
	RequireRedis(t, env)

	type profile struct {
		CID        string   `json:"cid"`
		Pictograms []string `json:"pictograms"`
	}

	key := NextTestID("cache:profile")
	stored := profile{CID: "702", Pictograms: []string{"Flammable", "Irritant"}}
	AssertNoError(t, env.Cache.Set(env.Ctx, key, stored, 2*time.Second))

	var loaded profile
	AssertNoError(t, env.Cache.Get(env.Ctx, key, &loaded))
	if loaded.CID != stored.CID || len(loaded.Pictograms) != 2 {
		t.Fatalf("cache returned %+v, stored %+v", loaded, stored)
	}

	exists, err := env.Cache.Exists(env.Ctx, key)
	AssertNoError(t, err)
	if !exists {
		t.Fatal("key must exist before its TTL elapses")
	}

	time.Sleep(2500 * time.Millisecond)
	err = env.Cache.Get(env.Ctx, key, &loaded)
	if !errors.Is(err, redis.ErrCacheMiss) {
		t.Fatalf("expected cache miss after expiry, got %v", err)
	}
}

func TestCache_GetOrSetDeduplicatesLoader(t *testing.T) {
	env := SetupTestEnvironment(t)
	RequireRedis(t, env)

	key := NextTestID("cache:loader")
	var calls atomic.Int32
	loader := func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return map[string]string{"cid": "962"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var dest map[string]string
			if err := env.Cache.GetOrSet(env.Ctx, key, &dest, time.Minute, loader); err != nil {
				t.Errorf("GetOrSet: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("loader ran %d times for concurrent callers, expected 1", n)
	}
}

func TestCache_NegativeCachingOnNilLoad(t *testing.T) {
	env := SetupTestEnvironment(t)
	RequireRedis(t, env)

	key := NextTestID("cache:absent")
	var calls atomic.Int32
	loader := func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		return nil, nil
	}

	var dest map[string]string
	err := env.Cache.GetOrSet(env.Ctx, key, &dest, time.Minute, loader)
	if !errors.Is(err, redis.ErrCacheMiss) {
		t.Fatalf("nil loader result must report a miss, got %v", err)
	}

	// The null sentinel answers the second call without re-invoking the
	// loader.
	err = env.Cache.GetOrSet(env.Ctx, key, &dest, time.Minute, loader)
	if !errors.Is(err, redis.ErrCacheMiss) {
		t.Fatalf("sentinel hit must still report a miss, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("loader ran %d times, expected 1 (negative cache)", n)
	}
}

// ---------------------------------------------------------------------------
// Test: distributed lock mutual exclusion
// ---------------------------------------------------------------------------

func TestLock_MutualExclusionAcrossHolders(t *testing.T) {
	env := SetupTestEnvironment(t)
	RequireRedis(t, env)

	name := NextTestID("sort-run")
	holder := env.Locks.NewMutex(name, redis.WithLockTTL(10*time.Second))
	rival := env.Locks.NewMutex(name, redis.WithLockTTL(10*time.Second))

	acquired, err := holder.TryLock(env.Ctx)
	AssertNoError(t, err)
	if !acquired {
		t.Fatal("first claimant must acquire the lock")
	}

	stolen, err := rival.TryLock(env.Ctx)
	AssertNoError(t, err)
	if stolen {
		t.Fatal("second claimant must not acquire a held lock")
	}

	ttl, err := holder.TTL(env.Ctx)
	AssertNoError(t, err)
	if ttl <= 0 || ttl > 10*time.Second {
		t.Fatalf("unexpected lock TTL %v", ttl)
	}

	AssertNoError(t, holder.Unlock(env.Ctx))

	reacquired, err := rival.TryLock(env.Ctx)
	AssertNoError(t, err)
	if !reacquired {
		t.Fatal("released lock must be claimable again")
	}
	AssertNoError(t, rival.Unlock(env.Ctx))
}

func TestLock_UnlockIsHolderOnly(t *testing.T) {
	env := SetupTestEnvironment(t)
	RequireRedis(t, env)

	name := NextTestID("sort-run")
	holder := env.Locks.NewMutex(name, redis.WithLockTTL(10*time.Second))
	stranger := env.Locks.NewMutex(name, redis.WithLockTTL(10*time.Second))

	acquired, err := holder.TryLock(env.Ctx)
	AssertNoError(t, err)
	if !acquired {
		t.Fatal("setup: lock not acquired")
	}
	defer func() { _ = holder.Unlock(context.Background()) }()

	// A claimant that never held the lock cannot release it out from under
	// the holder.
	if err := stranger.Unlock(env.Ctx); err == nil {
		t.Fatal("unlock by a non-holder must fail")
	}

	still, err := stranger.TryLock(env.Ctx)
	AssertNoError(t, err)
	if still {
		t.Fatal("lock must remain held after a foreign unlock attempt")
	}
}

//Personal.AI order the ending
