package repositorycache

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// KeyedMutex serialises callers per key. Entries are reference counted and dropped once the
// last holder unlocks, so the map only holds keys that are in use.
type KeyedMutex[K comparable] struct {
	locks *xsync.MapOf[K, *keyedLock]
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{locks: xsync.NewMapOf[K, *keyedLock]()}
}

// Lock blocks until key is free and returns the function releasing it.
func (m *KeyedMutex[K]) Lock(key K) (unlock func()) {
	l, _ := m.locks.Compute(key, func(old *keyedLock, loaded bool) (*keyedLock, bool) {
		if !loaded {
			old = &keyedLock{}
		}
		old.refs++
		return old, false
	})
	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			m.locks.Compute(key, func(old *keyedLock, loaded bool) (*keyedLock, bool) {
				if !loaded {
					return old, true
				}
				old.refs--
				return old, old.refs <= 0
			})
		})
	}
}

// Len reports how many keys are currently held or waited on.
func (m *KeyedMutex[K]) Len() int {
	return m.locks.Size()
}
