package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChanLockBasic(t *testing.T) {
	ctx := context.Background()
	l := NewChanLock()

	require.NoError(t, l.Lock(ctx))

	ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Unlock(ctx))

	ok, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Unlock(ctx))
}

func TestChanLockCancelledContext(t *testing.T) {
	l := NewChanLock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context never acquires, even if the lock is free.
	err := l.Lock(ctx)
	require.ErrorIs(t, err, context.Canceled)

	ok, tryErr := l.TryLock(context.Background())
	require.NoError(t, tryErr)
	assert.True(t, ok, "lock should still be free after rejected acquisition")
}

func TestChanLockBlockedWaiterCancel(t *testing.T) {
	l := NewChanLock()
	require.NoError(t, l.Lock(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- l.Lock(ctx) }()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("waiter did not give up after cancellation")
	}
	require.NoError(t, l.Unlock(context.Background()))
}

func TestChanLockUnlockIdempotent(t *testing.T) {
	ctx := context.Background()
	l := NewChanLock()
	require.NoError(t, l.Unlock(ctx))
	require.NoError(t, l.Lock(ctx))
	require.NoError(t, l.Unlock(ctx))
	require.NoError(t, l.Unlock(ctx))
}

func TestWithLock(t *testing.T) {
	ctx := context.Background()
	l := NewChanLock()

	called := false
	require.NoError(t, WithLock(ctx, l, func() error {
		called = true
		ok, err := l.TryLock(ctx)
		require.NoError(t, err)
		assert.False(t, ok, "lock must be held inside fn")
		return nil
	}))
	assert.True(t, called)

	// Released on return.
	ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
