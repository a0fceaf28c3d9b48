package persistence

import (
	"context"
	"sync"
)

// RoomLocks serializes writers per room. Entries are reference counted and
// dropped once the last holder releases them.
type RoomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	ch   chan struct{}
	refs int
}

// NewRoomLocks returns an empty lock table.
func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[string]*roomLock)}
}

// Lock blocks until the room is held or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (l *RoomLocks) Lock(ctx context.Context, roomID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[roomID]
	if !ok {
		entry = &roomLock{ch: make(chan struct{}, 1)}
		l.locks[roomID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(roomID, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.release(roomID, entry)
		})
	}, nil
}

// LockPair holds two rooms in a fixed order so concurrent moves between the
// same rooms cannot deadlock.
func (l *RoomLocks) LockPair(ctx context.Context, a, b string) (func(), error) {
	if a == b {
		return l.Lock(ctx, a)
	}
	if b < a {
		a, b = b, a
	}
	unlockA, err := l.Lock(ctx, a)
	if err != nil {
		return nil, err
	}
	unlockB, err := l.Lock(ctx, b)
	if err != nil {
		unlockA()
		return nil, err
	}
	return func() {
		unlockB()
		unlockA()
	}, nil
}

func (l *RoomLocks) release(roomID string, entry *roomLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, roomID)
	}
	l.mu.Unlock()
}

// size reports the number of live entries.
func (l *RoomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
