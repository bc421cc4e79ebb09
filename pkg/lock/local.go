package lock

import (
	"context"
	"sync"
)

type localRunLock struct {
	mu sync.Mutex
}

// NewLocalRunLock creates a process-local run lock. Suitable for
// single-instance deployments and tests; multi-instance deployments use the
// Redis lock.
func NewLocalRunLock() RunLock {
	return &localRunLock{}
}

func (l *localRunLock) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if !l.mu.TryLock() {
		return ErrLockHeld
	}
	defer l.mu.Unlock()
	return fn(ctx)
}
