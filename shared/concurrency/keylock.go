// Package concurrency provides the per-entity locking primitive used by
// every versioned store in the trip orchestration core (Trip,
// TripRequest, DriverStatus): a fixed-size stripe of mutexes keyed by hash
// of the entity id, so mutation of one entity never blocks another, and no
// global lock is ever taken across entities.
package concurrency

import (
	"hash/fnv"
	"sync"
)

// KeyLocker stripes locks across a fixed number of buckets.
type KeyLocker struct {
	stripes []sync.Mutex
}

// NewKeyLocker creates a KeyLocker with the given number of stripes.
// stripes should be a power of two; 256 is a reasonable default for a
// single-process service.
func NewKeyLocker(stripes int) *KeyLocker {
	if stripes <= 0 {
		stripes = 256
	}
	return &KeyLocker{stripes: make([]sync.Mutex, stripes)}
}

func (k *KeyLocker) bucket(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &k.stripes[h.Sum32()%uint32(len(k.stripes))]
}

// Lock acquires the stripe guarding key.
func (k *KeyLocker) Lock(key string) {
	k.bucket(key).Lock()
}

// Unlock releases the stripe guarding key.
func (k *KeyLocker) Unlock(key string) {
	k.bucket(key).Unlock()
}

// WithLock runs fn while holding the stripe for key.
func (k *KeyLocker) WithLock(key string, fn func()) {
	k.Lock(key)
	defer k.Unlock(key)
	fn()
}
