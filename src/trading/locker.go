package trading

import (
	"sync"
)

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// accountLocker hands out one mutex per account and forgets it when nobody holds or waits for it.
type accountLocker struct {
	mu      sync.Mutex
	entries map[uint]*lockEntry
}

func newAccountLocker() *accountLocker {
	return &accountLocker{entries: make(map[uint]*lockEntry)}
}

// Lock blocks until the account is free and returns the matching unlock.
func (l *accountLocker) Lock(userID uint) func() {
	l.mu.Lock()
	e, ok := l.entries[userID]
	if !ok {
		e = &lockEntry{}
		l.entries[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, userID)
		}
		l.mu.Unlock()
	}
}
