package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

type safetyRecord struct {
	CID        string   `json:"cid"`
	Pictograms []string `json:"pictograms"`
}

func testCache(t *testing.T) Cache {
	t.Helper()
	_, client := testClient(t)
	return NewRedisCache(client, logging.NewNopLogger(), WithPrefix("test:"))
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	want := safetyRecord{CID: "702", Pictograms: []string{"Flammable", "Irritant"}}
	require.NoError(t, cache.Set(ctx, "resolver:ethanol", want, time.Minute))

	var got safetyRecord
	require.NoError(t, cache.Get(ctx, "resolver:ethanol", &got))
	assert.Equal(t, want, got)
}

func TestCache_GetMiss(t *testing.T) {
	cache := testCache(t)

	var got safetyRecord
	err := cache.Get(context.Background(), "resolver:unknown", &got)
	assert.Equal(t, ErrCacheMiss, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestCache_SetAppliesJitteredTTL(t *testing.T) {
	mr, client := testClient(t)
	cache := NewRedisCache(client, logging.NewNopLogger(), WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", 10*time.Minute))

	ttl := mr.TTL("test:k")
	assert.GreaterOrEqual(t, ttl, 9*time.Minute)
	assert.LessOrEqual(t, ttl, 11*time.Minute)
}

func TestCache_SetZeroTTLUsesDefault(t *testing.T) {
	mr, client := testClient(t)
	cache := NewRedisCache(client, logging.NewNopLogger(),
		WithPrefix("test:"), WithDefaultTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", 0))

	ttl := mr.TTL("test:k")
	assert.GreaterOrEqual(t, ttl, 54*time.Minute)
	assert.LessOrEqual(t, ttl, 66*time.Minute)
}

func TestCache_DeleteAndExists(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k1", "v", time.Minute))
	require.NoError(t, cache.Set(ctx, "k2", "v", time.Minute))

	exists, err := cache.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, cache.Delete(ctx, "k1", "k2"))
	require.NoError(t, cache.Delete(ctx), "empty key list is a no-op")

	exists, err = cache.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCache_MGetSkipsMissesAndSentinels(t *testing.T) {
	mr, client := testClient(t)
	cache := NewRedisCache(client, logging.NewNopLogger(), WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "1", time.Minute))
	mr.Set("test:b", nullSentinel)

	got, err := cache.MGet(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.JSONEq(t, `"1"`, string(got["a"]))
}

func TestCache_GetOrSet_LoadsOnceThenServesCached(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		return &safetyRecord{CID: "702"}, nil
	}

	var first safetyRecord
	require.NoError(t, cache.GetOrSet(ctx, "resolver:ethanol", &first, time.Minute, loader))
	assert.Equal(t, "702", first.CID)

	var second safetyRecord
	require.NoError(t, cache.GetOrSet(ctx, "resolver:ethanol", &second, time.Minute, loader))
	assert.Equal(t, "702", second.CID)

	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_GetOrSet_ConcurrentCallersShareOneLoad(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		<-release
		return &safetyRecord{CID: "962"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var dest safetyRecord
			assert.NoError(t, cache.GetOrSet(ctx, "resolver:water", &dest, time.Minute, loader))
			assert.Equal(t, "962", dest.CID)
		}()
	}

	// Give the goroutines time to pile onto the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_GetOrSet_NilResultNegativeCached(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		return nil, nil
	}

	var dest safetyRecord
	err := cache.GetOrSet(ctx, "resolver:nothing", &dest, time.Minute, loader)
	assert.Equal(t, ErrCacheMiss, err)

	// Second lookup is answered by the sentinel without invoking the loader.
	err = cache.GetOrSet(ctx, "resolver:nothing", &dest, time.Minute, loader)
	assert.Equal(t, ErrCacheMiss, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_GetOrSet_LoaderErrorPropagates(t *testing.T) {
	cache := testCache(t)

	wantErr := errors.New(errors.ErrCodeResolverUpstreamFailed, "pubchem unavailable")
	loader := func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	}

	var dest safetyRecord
	err := cache.GetOrSet(context.Background(), "resolver:flaky", &dest, time.Minute, loader)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeResolverUpstreamFailed))

	// Errors are not cached.
	exists, existsErr := cache.Exists(context.Background(), "resolver:flaky")
	require.NoError(t, existsErr)
	assert.False(t, exists)
}

func TestCache_DeleteByPrefix(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "resolver:a", "1", time.Minute))
	require.NoError(t, cache.Set(ctx, "resolver:b", "2", time.Minute))
	require.NoError(t, cache.Set(ctx, "thermal:a", "3", time.Minute))

	deleted, err := cache.DeleteByPrefix(ctx, "resolver:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	exists, err := cache.Exists(ctx, "thermal:a")
	require.NoError(t, err)
	assert.True(t, exists, "other prefixes untouched")
}

func TestCache_Counters(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	n, err := cache.Incr(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = cache.IncrBy(ctx, "hits", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestCache_ExpireAndTTL(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", time.Hour))
	require.NoError(t, cache.Expire(ctx, "k", time.Minute))

	ttl, err := cache.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)
}
//Personal.AI order the ending
