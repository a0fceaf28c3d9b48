package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/persistence/storetest"
	"github.com/example/room-booking/internal/testfixtures"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) persistence.Store {
		return testfixtures.NewSQLiteStore(t)
	})
}

func TestStoreMigrateIsIdempotent(t *testing.T) {
	store := testfixtures.NewSQLiteStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestStorePreservesInstants(t *testing.T) {
	ctx := context.Background()
	store := testfixtures.NewSQLiteStore(t)

	if err := store.UpsertRoom(ctx, booking.Room{ID: "r1", Name: "Room", Capacity: 4, Active: true}); err != nil {
		t.Fatalf("UpsertRoom failed: %v", err)
	}

	jst := time.FixedZone("JST", 9*60*60)
	start := time.Date(2024, time.May, 1, 9, 0, 0, 0, jst)
	meeting := booking.Meeting{
		ID:        "m1",
		Title:     "Standup",
		RoomID:    "r1",
		Range:     booking.TimeRange{Start: start, End: start.Add(30 * time.Minute)},
		Organizer: booking.Identity{ID: "u1", Email: "u1@example.com"},
		CreatedAt: start,
		UpdatedAt: start,
	}
	if _, err := store.CreateMeeting(ctx, meeting); err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	got, err := store.GetMeeting(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if !got.Range.Start.Equal(start) {
		t.Fatalf("expected start %v, got %v", start, got.Range.Start)
	}
	if got.Status != booking.MeetingScheduled {
		t.Fatalf("expected default status scheduled, got %s", got.Status)
	}

	// a range stored from another zone still conflicts
	utc := booking.TimeRange{Start: start.UTC().Add(15 * time.Minute), End: start.UTC().Add(time.Hour)}
	conflict, err := store.FindConflict(ctx, "r1", utc, "")
	if err != nil {
		t.Fatalf("FindConflict failed: %v", err)
	}
	if conflict == nil || conflict.ID != "m1" {
		t.Fatalf("expected conflict with m1, got %+v", conflict)
	}
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	if _, err := sqlite.Open(sqlite.Config{}); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestUpsertRoomRejectsInvalidCapacity(t *testing.T) {
	store := testfixtures.NewSQLiteStore(t)
	err := store.UpsertRoom(context.Background(), booking.Room{ID: "r1", Name: "Broken"})
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}
