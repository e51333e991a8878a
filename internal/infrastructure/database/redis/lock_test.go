package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
)

func testLockFactory(t *testing.T) (*Client, LockFactory) {
	t.Helper()
	_, client := testClient(t)
	return client, NewLockFactory(client, logging.NewNopLogger())
}

func TestMutex_LockUnlock(t *testing.T) {
	client, factory := testLockFactory(t)
	ctx := context.Background()

	lock := factory.NewMutex("sort-run", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))

	exists, err := client.Exists(ctx, "chemstor:lock:sort-run").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	require.NoError(t, lock.Unlock(ctx))

	exists, err = client.Exists(ctx, "chemstor:lock:sort-run").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}

func TestMutex_Contention(t *testing.T) {
	_, factory := testLockFactory(t)
	ctx := context.Background()

	lock1 := factory.NewMutex("sort-run", WithRetryCount(2), WithRetryDelay(5*time.Millisecond))
	lock2 := factory.NewMutex("sort-run", WithRetryCount(2), WithRetryDelay(5*time.Millisecond))

	require.NoError(t, lock1.Lock(ctx))

	err := lock2.Lock(ctx)
	assert.Equal(t, ErrLockNotAcquired, err)

	ok, err := lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock1.Unlock(ctx))
	require.NoError(t, lock2.Lock(ctx))
}

func TestMutex_UnlockOnlyReleasesOwnToken(t *testing.T) {
	_, factory := testLockFactory(t)
	ctx := context.Background()

	holder := factory.NewMutex("sort-run")
	intruder := factory.NewMutex("sort-run")

	require.NoError(t, holder.Lock(ctx))

	err := intruder.Unlock(ctx)
	assert.Equal(t, ErrLockNotHeld, err)

	// The real holder can still release.
	assert.NoError(t, holder.Unlock(ctx))

	err = holder.Unlock(ctx)
	assert.Equal(t, ErrLockNotHeld, err, "double unlock reports the lost lock")
}

func TestMutex_ExtendRequiresOwnership(t *testing.T) {
	_, factory := testLockFactory(t)
	ctx := context.Background()

	lock := factory.NewMutex("sort-run", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))

	ok, err := lock.Extend(ctx, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err := lock.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Second)

	require.NoError(t, lock.Unlock(ctx))

	ok, err = lock.Extend(ctx, time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "released lock cannot be extended")
}

func TestMutex_LockHonorsContextCancel(t *testing.T) {
	_, factory := testLockFactory(t)

	holder := factory.NewMutex("sort-run")
	require.NoError(t, holder.Lock(context.Background()))

	waiter := factory.NewMutex("sort-run", WithRetryCount(100), WithRetryDelay(10*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := waiter.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMutex_WatchdogRenewsUntilUnlock(t *testing.T) {
	mr, client := testClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	lock := factory.NewMutex("sort-run",
		WithLockTTL(100*time.Millisecond),
		WithWatchdog(true),
		WithWatchdogInterval(20*time.Millisecond))
	require.NoError(t, lock.Lock(ctx))

	// Burn most of the TTL, then give the watchdog a tick to renew it.
	mr.FastForward(80 * time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	ttl, err := lock.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Millisecond, "watchdog reset the expiry")

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("chemstor:lock:sort-run"))
}
//Personal.AI order the ending
