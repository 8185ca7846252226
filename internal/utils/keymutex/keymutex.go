package keymutex

import "sync"

// KeyMutex hands out one mutex per key, created on demand and dropped
// again once nobody holds or waits on it. It serializes work per operator
// without serializing unrelated operators.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New returns an empty KeyMutex.
func New() *KeyMutex {
	return &KeyMutex{locks: make(map[int64]*entry)}
}

// Lock acquires the mutex for key, blocking while another holder has it.
func (k *KeyMutex) Lock(key int64) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key. Unlocking a key that is not held is
// a programming error, same as sync.Mutex.
func (k *KeyMutex) Unlock(key int64) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		panic("keymutex: unlock of unheld key")
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}
