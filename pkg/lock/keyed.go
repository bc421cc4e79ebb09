package lock

import "sync"

// KeyedMutex serializes operations per key. Offer creation uses it to
// guarantee a single writer per waitlist entry when the store lacks a true
// compare-and-swap.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entryLock)}
}

// Lock blocks until the key's mutex is held and returns the unlock func.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	el, ok := k.locks[key]
	if !ok {
		el = &entryLock{}
		k.locks[key] = el
	}
	el.refs++
	k.mu.Unlock()

	el.mu.Lock()

	return func() {
		el.mu.Unlock()
		k.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
