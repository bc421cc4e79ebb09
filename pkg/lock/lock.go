package lock

import (
	"context"
	"errors"
)

// ErrLockHeld is returned when another run already holds the lock.
var ErrLockHeld = errors.New("lock already held")

// RunLock guards a critical region that must not run concurrently across
// workers. WithLock acquires, runs fn, and releases on every exit path.
type RunLock interface {
	WithLock(ctx context.Context, fn func(ctx context.Context) error) error
}
