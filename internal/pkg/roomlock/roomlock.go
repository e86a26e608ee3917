// Package roomlock serializes work on a single key while letting distinct
// keys proceed in parallel. Entries are dropped once nobody holds or waits
// on them.
package roomlock

import (
	"sync"

	"github.com/google/uuid"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

type Locker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

func New() *Locker {
	return &Locker{
		locks: make(map[uuid.UUID]*entry),
	}
}

// Lock blocks until the key is free and returns the matching unlock func.
func (l *Locker) Lock(key uuid.UUID) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
