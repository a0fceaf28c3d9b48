package application

import (
	"sync"
	"time"

	"github.com/example/room-booking/internal/booking"
)

// roomCache holds the last room listing so suggestion scans do not reload
// the catalog on every availability check. The catalog only changes when
// rooms are seeded, so a short TTL bounds staleness.
type roomCache struct {
	mu        sync.RWMutex
	now       func() time.Time
	ttl       time.Duration
	rooms     []booking.Room
	expiresAt time.Time
	loaded    bool
}

func newRoomCache(ttl time.Duration, now func() time.Time) *roomCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &roomCache{now: now, ttl: ttl}
}

func (c *roomCache) Get() ([]booking.Room, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || c.now().After(c.expiresAt) {
		return nil, false
	}
	return cloneRooms(c.rooms), true
}

func (c *roomCache) Store(rooms []booking.Room) {
	if c == nil {
		return
	}
	cloned := cloneRooms(rooms)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	c.rooms = cloned
	c.expiresAt = expiry
	c.loaded = true
	c.mu.Unlock()
}

func (c *roomCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rooms = nil
	c.loaded = false
	c.mu.Unlock()
}

func cloneRooms(rooms []booking.Room) []booking.Room {
	if rooms == nil {
		return nil
	}
	out := make([]booking.Room, len(rooms))
	for i, room := range rooms {
		out[i] = room
		out[i].Resources = append([]string(nil), room.Resources...)
	}
	return out
}
