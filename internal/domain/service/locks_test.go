package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// tryLock reports whether the lock was acquired within the timeout,
// returning the release func when it was.
func tryLock(l *ownerLocks, ownerID int64, channelID string, timeout time.Duration) (func(), bool) {
	acquired := make(chan func(), 1)
	go func() {
		acquired <- l.Lock(ownerID, channelID)
	}()

	select {
	case release := <-acquired:
		return release, true
	case <-time.After(timeout):
		// Release the pending acquisition as soon as it lands so a timed
		// out attempt never leaves the lock held.
		go func() {
			release := <-acquired
			release()
		}()
		return nil, false
	}
}

func TestOwnerLocks_SameChannelExcludes(t *testing.T) {
	l := newOwnerLocks()

	release := l.Lock(1, "@news")

	_, ok := tryLock(l, 1, "@news", 50*time.Millisecond)
	assert.False(t, ok, "same queue must be exclusive")

	release()

	second, ok := tryLock(l, 1, "@news", time.Second)
	assert.True(t, ok, "released lock must be acquirable")
	if ok {
		second()
	}
}

func TestOwnerLocks_DifferentChannelsProceed(t *testing.T) {
	l := newOwnerLocks()

	releaseNews := l.Lock(1, "@news")
	defer releaseNews()

	releaseMemes, ok := tryLock(l, 1, "@memes", time.Second)
	assert.True(t, ok, "different channels of one owner must not block each other")
	if ok {
		releaseMemes()
	}
}

func TestOwnerLocks_DifferentOwnersProceed(t *testing.T) {
	l := newOwnerLocks()

	release := l.Lock(1, "")
	defer release()

	other, ok := tryLock(l, 2, "@news", time.Second)
	assert.True(t, ok, "owners must not block each other")
	if ok {
		other()
	}
}

func TestOwnerLocks_OwnerScopeExcludesChannels(t *testing.T) {
	l := newOwnerLocks()

	releaseChannel := l.Lock(1, "@news")

	_, ok := tryLock(l, 1, "", 50*time.Millisecond)
	assert.False(t, ok, "owner-wide lock must wait for channel operations")

	releaseChannel()

	releaseOwner, ok := tryLock(l, 1, "", time.Second)
	assert.True(t, ok)
	if !ok {
		return
	}

	_, ok = tryLock(l, 1, "@memes", 50*time.Millisecond)
	assert.False(t, ok, "channel operations must wait for the owner-wide lock")
	releaseOwner()
}

func TestOwnerLocks_ReleasedEntriesAreReclaimed(t *testing.T) {
	l := newOwnerLocks()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			release := l.Lock(int64(n%3), "@news")
			release()
		}(i)
	}
	wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks, "idle locks must not accumulate")
}
