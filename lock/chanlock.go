package lock

import "context"

// compile-time interface check.
var _ Locker = (*ChanLock)(nil)

// ChanLock is an in-process mutex built on a size-1 buffered channel. A
// goroutine acquires the token by sending to ch and releases by receiving
// from it. Using a channel (rather than sync.Mutex) makes Lock interruptible
// by context cancellation and TryLock a non-blocking short-circuit.
type ChanLock struct {
	ch chan struct{}
}

// NewChanLock creates an unlocked ChanLock.
func NewChanLock() *ChanLock {
	return &ChanLock{ch: make(chan struct{}, 1)}
}

// Lock acquires the lock, blocking until available or ctx is cancelled.
// On cancellation the lock is not acquired and ctx.Err() is returned. An
// already-cancelled context never acquires, even if the lock is free.
func (l *ChanLock) Lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryLock attempts a non-blocking acquisition.
// Returns (false, nil) if the lock is currently held.
func (l *ChanLock) TryLock(_ context.Context) (bool, error) {
	select {
	case l.ch <- struct{}{}:
		return true, nil
	default:
		return false, nil
	}
}

// Unlock releases the lock. Unlocking an unlocked ChanLock is a no-op.
func (l *ChanLock) Unlock(_ context.Context) error {
	select {
	case <-l.ch:
	default:
	}
	return nil
}
