package transfer

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes mutating operations per transfer ID. Completion
// aggregation and the state-machine guards read the full line set, so two
// mutations on the same transfer must never interleave; distinct transfers
// proceed independently.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*transferLock
}

type transferLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*transferLock)}
}

// Lock acquires the mutex for the given transfer ID, blocking until available
func (k *keyedMutex) Lock(id uuid.UUID) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &transferLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

// Unlock releases the mutex for the given transfer ID. The entry is removed
// once no goroutine holds or waits on it.
func (k *keyedMutex) Unlock(id uuid.UUID) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		k.mu.Unlock()
		return
	}
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}
