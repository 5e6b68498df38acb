package sync

import "sync"

// entityLocks serializes operations per entity (per job id, per user id).
// Locks are created on demand and dropped once no goroutine holds or waits
// on them, so the table does not grow with the job history.
type entityLocks struct {
	mu    sync.Mutex
	locks map[string]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func newEntityLocks() *entityLocks {
	return &entityLocks{locks: make(map[string]*entityLock)}
}

// lock acquires the lock for key and returns its release func.
func (t *entityLocks) lock(key string) func() {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &entityLock{}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}

func jobKey(id string) string  { return "job:" + id }
func userKey(id string) string { return "user:" + id }
