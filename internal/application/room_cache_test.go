package application

import (
	"testing"
	"time"

	"github.com/example/room-booking/internal/booking"
)

func TestRoomCacheStoresAndReturnsCopies(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	current := fixed
	cache := newRoomCache(time.Minute, func() time.Time { return current })

	if _, ok := cache.Get(); ok {
		t.Fatalf("expected empty cache to miss")
	}

	original := []booking.Room{{ID: "alpha", Resources: []string{"tv"}}}
	cache.Store(original)

	// Mutating the original slice should not affect the cached copy.
	original[0].ID = "mutated"
	original[0].Resources[0] = "mutated"

	cached, ok := cache.Get()
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached[0].ID != "alpha" || cached[0].Resources[0] != "tv" {
		t.Fatalf("expected cached room to remain unchanged, got %+v", cached[0])
	}

	cached[0].Resources[0] = "changed"
	again, _ := cache.Get()
	if again[0].Resources[0] != "tv" {
		t.Fatalf("expected cache to return independent copy, got %v", again[0].Resources)
	}
}

func TestRoomCacheExpiresEntries(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newRoomCache(time.Second, func() time.Time { return current })

	cache.Store([]booking.Room{{ID: "alpha"}})
	if _, ok := cache.Get(); !ok {
		t.Fatalf("expected cache hit before expiry")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get(); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestRoomCacheInvalidate(t *testing.T) {
	cache := newRoomCache(time.Minute, time.Now)
	cache.Store([]booking.Room{{ID: "alpha"}})
	cache.Invalidate()
	if _, ok := cache.Get(); ok {
		t.Fatalf("expected cache to be empty after invalidation")
	}

	var nilCache *roomCache
	nilCache.Store(nil)
	if _, ok := nilCache.Get(); ok {
		t.Fatalf("expected nil cache to miss")
	}
}
