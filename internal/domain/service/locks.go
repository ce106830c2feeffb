package service

import (
	"strconv"
	"sync"
)

// ownerLocks provides mutual exclusion per (owner, channel) queue.
// Concurrent cascade or batch operations on the same queue would
// interleave their snapshot reads and produce slot collisions, so every
// scheduling mutation holds its queue's lock for the whole transaction.
//
// Channel-scoped operations take the owner's scope shared plus their own
// channel lock; owner-wide operations (snapshot restore) take the owner's
// scope exclusively, which excludes every channel of that owner while
// leaving other owners untouched.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.RWMutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*refLock)}
}

func lockKey(ownerID int64, channelID string) string {
	return strconv.FormatInt(ownerID, 10) + "|" + channelID
}

// Lock acquires the lock for the given queue and returns its release
// function. channelID == "" locks the owner's whole scope.
func (l *ownerLocks) Lock(ownerID int64, channelID string) func() {
	ownerKey := lockKey(ownerID, "")

	if channelID == "" {
		owner := l.acquire(ownerKey)
		owner.mu.Lock()
		return func() {
			owner.mu.Unlock()
			l.release(ownerKey)
		}
	}

	chanKey := lockKey(ownerID, channelID)
	owner := l.acquire(ownerKey)
	owner.mu.RLock()
	ch := l.acquire(chanKey)
	ch.mu.Lock()
	return func() {
		ch.mu.Unlock()
		l.release(chanKey)
		owner.mu.RUnlock()
		l.release(ownerKey)
	}
}

func (l *ownerLocks) acquire(key string) *refLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk, ok := l.locks[key]
	if !ok {
		lk = &refLock{}
		l.locks[key] = lk
	}
	lk.refs++
	return lk
}

func (l *ownerLocks) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk, ok := l.locks[key]
	if !ok {
		return
	}
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}
