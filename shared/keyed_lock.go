package shared

import "sync"

// KeyedMutex serializes operations that share a key while letting operations
// on distinct keys proceed concurrently. The merge step uses it to guarantee
// that two concurrent upserts for the same (platform, source_id) identity
// never interleave and lose a price or last_seen update.
type KeyedMutex struct {
	mutex sync.Mutex
	locks map[string]*keyedLockEntry
}

type keyedLockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*keyedLockEntry),
	}
}

// Lock acquires the lock for key, blocking while another holder has it.
func (k *KeyedMutex) Lock(key string) {
	k.mutex.Lock()
	entry, exists := k.locks[key]
	if !exists {
		entry = &keyedLockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mutex.Unlock()

	entry.mu.Lock()
}

// Unlock releases the lock for key. Entries are removed once the last
// waiter is gone so the map does not grow with the identity space.
func (k *KeyedMutex) Unlock(key string) {
	k.mutex.Lock()
	entry, exists := k.locks[key]
	if exists {
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
	}
	k.mutex.Unlock()

	if exists {
		entry.mu.Unlock()
	}
}

// WithLock runs fn while holding the lock for key.
func (k *KeyedMutex) WithLock(key string, fn func()) {
	k.Lock(key)
	defer k.Unlock(key)
	fn()
}
