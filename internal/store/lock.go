package store

import "sync"

// locker hands out one mutex per key. Entries live for the life of the
// process; the key space is bounded by the number of files in the data dir.
type locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLocker() *locker {
	return &locker{locks: make(map[string]*sync.Mutex)}
}

func (l *locker) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[key]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	l.locks[key] = lock
	return lock
}

// lock acquires the mutex for key and returns its release func.
func (l *locker) lock(key string) func() {
	lock := l.get(key)
	lock.Lock()
	return lock.Unlock
}
