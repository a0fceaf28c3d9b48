package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/example/room-booking/internal/booking"
)

type conflictFinderStub struct {
	calls int
}

func (c *conflictFinderStub) FindConflict(ctx context.Context, roomID string, r booking.TimeRange, excludeID string) (*booking.Meeting, error) {
	c.calls++
	return nil, nil
}

func TestAvailabilityService_CheckAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("free room has no suggestions", func(t *testing.T) {
		env := newTestEnv(t)
		env.book(t, "alpha", at(9, 0), at(10, 0))

		result, err := env.availability.CheckAvailability(ctx, AvailabilityQuery{
			RoomID: "alpha",
			Range:  booking.TimeRange{Start: at(10, 0), End: at(11, 0)},
		})
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if !result.Available || result.Conflict != nil || len(result.Suggestions) != 0 {
			t.Fatalf("expected available result without suggestions, got %+v", result)
		}
	})

	t.Run("conflict names the meeting and suggests rooms best fit first", func(t *testing.T) {
		env := newTestEnv(t)
		held := env.book(t, "alpha", at(9, 0), at(10, 0))
		env.book(t, "gamma", at(9, 30), at(9, 45))

		result, err := env.availability.CheckAvailability(ctx, AvailabilityQuery{
			RoomID: "alpha",
			Range:  booking.TimeRange{Start: at(9, 0), End: at(10, 0)},
		})
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if result.Available {
			t.Fatalf("expected room to be unavailable")
		}
		if result.Conflict == nil || result.Conflict.MeetingID != held.Meeting.ID {
			t.Fatalf("expected conflict with %s, got %+v", held.Meeting.ID, result.Conflict)
		}
		if result.Conflict.OrganizerName != "Owner" {
			t.Fatalf("expected organizer name, got %q", result.Conflict.OrganizerName)
		}
		// delta is too small, gamma is busy, closed is inactive
		if got := roomIDs(result.Suggestions); len(got) != 1 || got[0] != "beta" {
			t.Fatalf("expected [beta], got %v", got)
		}
	})

	t.Run("capacity hint widens suggestions", func(t *testing.T) {
		env := newTestEnv(t)
		env.book(t, "alpha", at(9, 0), at(10, 0))

		result, err := env.availability.CheckAvailability(ctx, AvailabilityQuery{
			RoomID:   "alpha",
			Range:    booking.TimeRange{Start: at(9, 0), End: at(10, 0)},
			Capacity: 3,
		})
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		got := roomIDs(result.Suggestions)
		want := []string{"delta", "gamma", "beta"}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("suggestions are capped", func(t *testing.T) {
		env := newTestEnv(t)
		env.book(t, "alpha", at(9, 0), at(10, 0))
		capped := NewAvailabilityServiceWithLogger(env.rooms, env.store, 2, quietLogger())

		result, err := capped.CheckAvailability(ctx, AvailabilityQuery{
			RoomID:   "alpha",
			Range:    booking.TimeRange{Start: at(9, 0), End: at(10, 0)},
			Capacity: 1,
		})
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if len(result.Suggestions) != 2 {
			t.Fatalf("expected 2 suggestions, got %v", roomIDs(result.Suggestions))
		}
	})

	t.Run("excluding the edited meeting frees its slot", func(t *testing.T) {
		env := newTestEnv(t)
		held := env.book(t, "alpha", at(9, 0), at(10, 0))

		result, err := env.availability.CheckAvailability(ctx, AvailabilityQuery{
			RoomID:           "alpha",
			Range:            booking.TimeRange{Start: at(9, 30), End: at(10, 30)},
			ExcludeMeetingID: held.Meeting.ID,
		})
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if !result.Available {
			t.Fatalf("expected room to be available when excluding %s", held.Meeting.ID)
		}
	})

	t.Run("invalid range is rejected before store access", func(t *testing.T) {
		rooms := &roomRepoStub{}
		finder := &conflictFinderStub{}
		svc := NewAvailabilityService(NewRoomService(rooms, nil), finder, 0)

		_, err := svc.CheckAvailability(ctx, AvailabilityQuery{
			RoomID: "alpha",
			Range:  booking.TimeRange{Start: at(10, 0), End: at(10, 0)},
		})
		if !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
		if rooms.listCalls != 0 || finder.calls != 0 {
			t.Fatalf("expected no store access, got %d list and %d conflict calls", rooms.listCalls, finder.calls)
		}
	})

	t.Run("unknown room", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.availability.CheckAvailability(ctx, AvailabilityQuery{
			RoomID: "nowhere",
			Range:  booking.TimeRange{Start: at(9, 0), End: at(10, 0)},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAvailabilityService_AvailableRooms(t *testing.T) {
	env := newTestEnv(t)
	env.book(t, "beta", at(9, 0), at(10, 0))

	rooms, err := env.availability.AvailableRooms(context.Background(), booking.TimeRange{Start: at(9, 0), End: at(10, 0)}, 5)
	if err != nil {
		t.Fatalf("AvailableRooms failed: %v", err)
	}
	if got := fmt.Sprint(roomIDs(rooms)); got != "[alpha gamma]" {
		t.Fatalf("expected [alpha gamma], got %s", got)
	}

	if _, err := env.availability.AvailableRooms(context.Background(), booking.TimeRange{Start: at(10, 0), End: at(9, 0)}, 0); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

type directoryStub struct {
	candidates []booking.Room
	asked      []int
	listCalls  int
}

func (d *directoryStub) ListRooms(ctx context.Context) ([]booking.Room, error) {
	d.listCalls++
	return d.candidates, nil
}

func (d *directoryStub) GetRoom(ctx context.Context, id string) (booking.Room, error) {
	for _, room := range d.candidates {
		if room.ID == id {
			return room, nil
		}
	}
	return booking.Room{}, ErrNotFound
}

func (d *directoryStub) RoomsWithCapacityAtLeast(ctx context.Context, n int) ([]booking.Room, error) {
	d.asked = append(d.asked, n)
	return d.candidates, nil
}

func TestAvailabilityService_CandidatesComeFromDirectory(t *testing.T) {
	dir := &directoryStub{candidates: []booking.Room{
		{ID: "small", Name: "Small", Capacity: 6, Active: true},
		{ID: "large", Name: "Large", Capacity: 12, Active: true},
	}}
	svc := NewAvailabilityService(dir, &conflictFinderStub{}, 0)
	window := booking.TimeRange{Start: at(9, 0), End: at(10, 0)}

	rooms, err := svc.AvailableRooms(context.Background(), window, 6)
	if err != nil {
		t.Fatalf("AvailableRooms failed: %v", err)
	}
	if got := fmt.Sprint(roomIDs(rooms)); got != "[small large]" {
		t.Fatalf("expected directory order [small large], got %s", got)
	}

	suggestions, err := svc.Suggest(context.Background(), dir.candidates[0], window, 0, "")
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if got := fmt.Sprint(roomIDs(suggestions)); got != "[large]" {
		t.Fatalf("expected the requested room to be skipped, got %s", got)
	}

	if fmt.Sprint(dir.asked) != "[6 6]" {
		t.Fatalf("expected capacity 6 asked twice, got %v", dir.asked)
	}
	if dir.listCalls != 0 {
		t.Fatalf("expected no full listing, got %d calls", dir.listCalls)
	}
}

func TestSortBySuitability(t *testing.T) {
	rooms := []booking.Room{
		{ID: "c", Name: "Zeta", Capacity: 4},
		{ID: "b", Name: "Alpha", Capacity: 4},
		{ID: "a", Name: "Alpha", Capacity: 4},
		{ID: "d", Name: "Aaa", Capacity: 10},
	}
	sortBySuitability(rooms)
	if got := fmt.Sprint(roomIDs(rooms)); got != "[a b c d]" {
		t.Fatalf("expected [a b c d], got %s", got)
	}
}

