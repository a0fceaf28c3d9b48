// Package storetest holds the behavioural contract every persistence.Store
// backend must satisfy. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
)

// Factory returns a fresh, empty store. Cleanup is registered on t.
type Factory func(t *testing.T) persistence.Store

var base = time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)

func slot(startHour, startMinute, endHour, endMinute int) booking.TimeRange {
	return booking.TimeRange{
		Start: base.Add(time.Duration(startHour)*time.Hour + time.Duration(startMinute)*time.Minute),
		End:   base.Add(time.Duration(endHour)*time.Hour + time.Duration(endMinute)*time.Minute),
	}
}

func seedRooms(t *testing.T, store persistence.Store) {
	t.Helper()
	rooms := []booking.Room{
		{ID: "alpha", Name: "Alpha", Capacity: 6, Color: booking.DefaultRoomColor, Resources: []string{"tv"}, Active: true},
		{ID: "beta", Name: "Beta", Capacity: 10, Color: "#10B981", Active: true},
	}
	for _, room := range rooms {
		if err := store.UpsertRoom(context.Background(), room); err != nil {
			t.Fatalf("UpsertRoom(%s) failed: %v", room.ID, err)
		}
	}
}

func newMeeting(id, roomID string, r booking.TimeRange, attendees ...string) booking.Meeting {
	m := booking.Meeting{
		ID:        id,
		Title:     "Meeting " + id,
		RoomID:    roomID,
		Range:     r,
		Organizer: booking.Identity{ID: "user-1", Email: "owner@example.com", Name: "Owner"},
		Status:    booking.MeetingScheduled,
		CreatedAt: base,
		UpdatedAt: base,
	}
	for _, email := range attendees {
		m.Attendees = append(m.Attendees, booking.Attendee{Email: email, Name: email, Status: booking.AttendeePending})
	}
	return m
}

// Run executes the contract suite against stores produced by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("rooms", func(t *testing.T) { testRooms(t, factory) })
	t.Run("create and conflicts", func(t *testing.T) { testCreate(t, factory) })
	t.Run("concurrent creates", func(t *testing.T) { testConcurrentCreates(t, factory) })
	t.Run("reschedule", func(t *testing.T) { testReschedule(t, factory) })
	t.Run("cancel", func(t *testing.T) { testCancel(t, factory) })
	t.Run("responses", func(t *testing.T) { testResponses(t, factory) })
	t.Run("list", func(t *testing.T) { testList(t, factory) })
}

func testRooms(t *testing.T, factory Factory) {
	ctx := context.Background()
	store := factory(t)
	seedRooms(t, store)

	rooms, err := store.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 2 || rooms[0].ID != "alpha" || rooms[1].ID != "beta" {
		t.Fatalf("expected rooms ordered by id, got %+v", rooms)
	}

	room, err := store.GetRoom(ctx, "alpha")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Capacity != 6 || !room.Active || len(room.Resources) != 1 || room.Resources[0] != "tv" {
		t.Fatalf("unexpected room: %+v", room)
	}

	room.Capacity = 8
	room.Active = false
	if err := store.UpsertRoom(ctx, room); err != nil {
		t.Fatalf("UpsertRoom update failed: %v", err)
	}
	updated, err := store.GetRoom(ctx, "alpha")
	if err != nil {
		t.Fatalf("GetRoom after update failed: %v", err)
	}
	if updated.Capacity != 8 || updated.Active {
		t.Fatalf("expected upsert to replace room, got %+v", updated)
	}

	if _, err := store.GetRoom(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testCreate(t *testing.T, factory Factory) {
	ctx := context.Background()
	store := factory(t)
	seedRooms(t, store)

	first, err := store.CreateMeeting(ctx, newMeeting("m1", "alpha", slot(9, 0, 10, 0), "Ana@Example.com"))
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	if first.Status != booking.MeetingScheduled {
		t.Fatalf("expected scheduled status, got %q", first.Status)
	}
	if len(first.Attendees) != 1 || first.Attendees[0].Email != "ana@example.com" {
		t.Fatalf("expected lower-cased attendee email, got %+v", first.Attendees)
	}

	_, err = store.CreateMeeting(ctx, newMeeting("m2", "alpha", slot(9, 30, 10, 30)))
	var conflict *persistence.ConflictError
	if !errors.As(err, &conflict) || !errors.Is(err, persistence.ErrSlotTaken) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Meeting.ID != "m1" {
		t.Fatalf("expected conflict with m1, got %s", conflict.Meeting.ID)
	}

	if _, err := store.CreateMeeting(ctx, newMeeting("m3", "alpha", slot(10, 0, 11, 0))); err != nil {
		t.Fatalf("expected touching meeting to succeed, got %v", err)
	}
	if _, err := store.CreateMeeting(ctx, newMeeting("m4", "beta", slot(9, 0, 10, 0))); err != nil {
		t.Fatalf("expected other room to be free, got %v", err)
	}

	found, err := store.FindConflict(ctx, "alpha", slot(9, 45, 10, 15), "")
	if err != nil {
		t.Fatalf("FindConflict failed: %v", err)
	}
	if found == nil || found.ID != "m1" {
		t.Fatalf("expected earliest overlapping meeting m1, got %+v", found)
	}

	found, err = store.FindConflict(ctx, "alpha", slot(9, 0, 10, 0), "m1")
	if err != nil {
		t.Fatalf("FindConflict with exclusion failed: %v", err)
	}
	if found != nil {
		t.Fatalf("expected excluded meeting to be ignored, got %+v", found)
	}

	if _, err := store.CreateMeeting(ctx, newMeeting("m5", "missing", slot(12, 0, 13, 0))); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown room, got %v", err)
	}

	stored, err := store.GetMeeting(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if !stored.Range.Start.Equal(first.Range.Start) || !stored.Range.End.Equal(first.Range.End) {
		t.Fatalf("expected stored range to round-trip, got %+v", stored.Range)
	}
	if stored.Organizer.Email != "owner@example.com" || stored.Organizer.Name != "Owner" {
		t.Fatalf("unexpected organizer: %+v", stored.Organizer)
	}
}

func testConcurrentCreates(t *testing.T, factory Factory) {
	ctx := context.Background()
	store := factory(t)
	seedRooms(t, store)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// all ranges overlap 10:00-10:30
			r := slot(9, 30+i, 10, 30+i)
			_, errs[i] = store.CreateMeeting(ctx, newMeeting(fmt.Sprintf("c%d", i), "alpha", r))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, persistence.ErrSlotTaken):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful create, got %d", succeeded)
	}

	meetings, err := store.ListMeetings(ctx, persistence.MeetingFilter{RoomID: "alpha"})
	if err != nil {
		t.Fatalf("ListMeetings failed: %v", err)
	}
	if len(meetings) != 1 {
		t.Fatalf("expected one stored meeting, got %d", len(meetings))
	}
}

func testReschedule(t *testing.T, factory Factory) {
	ctx := context.Background()
	store := factory(t)
	seedRooms(t, store)

	if _, err := store.CreateMeeting(ctx, newMeeting("m1", "alpha", slot(9, 0, 10, 0))); err != nil {
		t.Fatalf("CreateMeeting m1 failed: %v", err)
	}
	if _, err := store.CreateMeeting(ctx, newMeeting("m2", "alpha", slot(11, 0, 12, 0))); err != nil {
		t.Fatalf("CreateMeeting m2 failed: %v", err)
	}

	moved, err := store.RescheduleMeeting(ctx, "m1", "alpha", slot(9, 30, 10, 30), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("expected overlapping self to be ignored, got %v", err)
	}
	if !moved.Range.Start.Equal(slot(9, 30, 10, 30).Start) {
		t.Fatalf("expected new start, got %v", moved.Range.Start)
	}

	_, err = store.RescheduleMeeting(ctx, "m1", "alpha", slot(11, 30, 12, 30), base.Add(time.Hour))
	if !errors.Is(err, persistence.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	moved, err = store.RescheduleMeeting(ctx, "m1", "beta", slot(11, 0, 12, 0), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("expected move to beta, got %v", err)
	}
	if moved.RoomID != "beta" {
		t.Fatalf("expected room beta, got %s", moved.RoomID)
	}

	if _, err := store.RescheduleMeeting(ctx, "missing", "alpha", slot(13, 0, 14, 0), base); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := store.CancelMeeting(ctx, "m2", base); err != nil {
		t.Fatalf("CancelMeeting failed: %v", err)
	}
	if _, err := store.RescheduleMeeting(ctx, "m2", "alpha", slot(14, 0, 15, 0), base); !errors.Is(err, persistence.ErrMeetingCancelled) {
		t.Fatalf("expected ErrMeetingCancelled, got %v", err)
	}
}

func testCancel(t *testing.T, factory Factory) {
	ctx := context.Background()
	store := factory(t)
	seedRooms(t, store)

	if _, err := store.CreateMeeting(ctx, newMeeting("m1", "alpha", slot(9, 0, 10, 0))); err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	cancelled, err := store.CancelMeeting(ctx, "m1", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("CancelMeeting failed: %v", err)
	}
	if cancelled.Status != booking.MeetingCancelled {
		t.Fatalf("expected cancelled status, got %q", cancelled.Status)
	}

	if _, err := store.CreateMeeting(ctx, newMeeting("m2", "alpha", slot(9, 0, 10, 0))); err != nil {
		t.Fatalf("expected cancelled slot to be free, got %v", err)
	}

	if _, err := store.CancelMeeting(ctx, "missing", base); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	again, err := store.CancelMeeting(ctx, "m1", base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("expected repeated cancel to succeed, got %v", err)
	}
	if again.Status != booking.MeetingCancelled {
		t.Fatalf("expected cancelled status, got %q", again.Status)
	}
}

func testResponses(t *testing.T, factory Factory) {
	ctx := context.Background()
	store := factory(t)
	seedRooms(t, store)

	if _, err := store.CreateMeeting(ctx, newMeeting("m1", "alpha", slot(9, 0, 10, 0), "ana@example.com", "bob@example.com")); err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	respondedAt := base.Add(time.Hour)
	attendee, changed, err := store.RecordResponse(ctx, "m1", "ANA@example.com", booking.AttendeeAccepted, respondedAt)
	if err != nil {
		t.Fatalf("RecordResponse failed: %v", err)
	}
	if !changed || attendee.Status != booking.AttendeeAccepted {
		t.Fatalf("expected transition to accepted, got %+v changed=%v", attendee, changed)
	}
	if attendee.RespondedAt == nil || !attendee.RespondedAt.Equal(respondedAt) {
		t.Fatalf("expected responded_at to be recorded, got %v", attendee.RespondedAt)
	}

	attendee, changed, err = store.RecordResponse(ctx, "m1", "ana@example.com", booking.AttendeeDeclined, respondedAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if changed || attendee.Status != booking.AttendeeAccepted {
		t.Fatalf("expected first decision to stick, got %+v changed=%v", attendee, changed)
	}

	if _, _, err := store.RecordResponse(ctx, "m1", "carol@example.com", booking.AttendeeAccepted, respondedAt); !errors.Is(err, persistence.ErrAttendeeNotFound) {
		t.Fatalf("expected ErrAttendeeNotFound, got %v", err)
	}
	if _, _, err := store.RecordResponse(ctx, "missing", "ana@example.com", booking.AttendeeAccepted, respondedAt); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	meeting, err := store.GetMeeting(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	bob, ok := meeting.Attendee("bob@example.com")
	if !ok || bob.Status != booking.AttendeePending {
		t.Fatalf("expected bob to remain pending, got %+v", bob)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	transitions := 0
	for _, status := range []booking.AttendeeStatus{booking.AttendeeAccepted, booking.AttendeeDeclined, booking.AttendeeAccepted, booking.AttendeeDeclined} {
		wg.Add(1)
		go func(status booking.AttendeeStatus) {
			defer wg.Done()
			_, changed, err := store.RecordResponse(ctx, "m1", "bob@example.com", status, respondedAt)
			if err != nil {
				t.Errorf("concurrent RecordResponse failed: %v", err)
				return
			}
			if changed {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}(status)
	}
	wg.Wait()
	if transitions != 1 {
		t.Fatalf("expected exactly one transition, got %d", transitions)
	}
}

func testList(t *testing.T, factory Factory) {
	ctx := context.Background()
	store := factory(t)
	seedRooms(t, store)

	seed := []booking.Meeting{
		newMeeting("m1", "alpha", slot(11, 0, 12, 0), "ana@example.com"),
		newMeeting("m2", "alpha", slot(9, 0, 10, 0)),
		newMeeting("m3", "beta", slot(9, 0, 10, 0), "bob@example.com"),
	}
	seed[2].Organizer = booking.Identity{ID: "user-2", Email: "other@example.com", Name: "Other"}
	next := newMeeting("m4", "alpha", booking.TimeRange{Start: base.Add(33 * time.Hour), End: base.Add(34 * time.Hour)})
	seed = append(seed, next)
	for _, m := range seed {
		if _, err := store.CreateMeeting(ctx, m); err != nil {
			t.Fatalf("CreateMeeting(%s) failed: %v", m.ID, err)
		}
	}
	if _, err := store.CancelMeeting(ctx, "m1", base); err != nil {
		t.Fatalf("CancelMeeting failed: %v", err)
	}

	day := booking.DayRange(base, time.UTC)
	got, err := store.ListMeetings(ctx, persistence.MeetingFilter{RoomID: "alpha", Range: &day})
	if err != nil {
		t.Fatalf("ListMeetings failed: %v", err)
	}
	if ids := meetingIDs(got); fmt.Sprint(ids) != "[m2]" {
		t.Fatalf("expected only m2 for alpha on the day, got %v", ids)
	}

	got, err = store.ListMeetings(ctx, persistence.MeetingFilter{RoomID: "alpha", Range: &day, IncludeCancelled: true})
	if err != nil {
		t.Fatalf("ListMeetings with cancelled failed: %v", err)
	}
	if ids := meetingIDs(got); fmt.Sprint(ids) != "[m2 m1]" {
		t.Fatalf("expected m2 then m1, got %v", ids)
	}

	got, err = store.ListMeetings(ctx, persistence.MeetingFilter{Participant: &booking.Identity{Email: "BOB@example.com"}})
	if err != nil {
		t.Fatalf("ListMeetings by attendee failed: %v", err)
	}
	if ids := meetingIDs(got); fmt.Sprint(ids) != "[m3]" {
		t.Fatalf("expected attendee match m3, got %v", ids)
	}

	got, err = store.ListMeetings(ctx, persistence.MeetingFilter{Participant: &booking.Identity{ID: "user-1"}})
	if err != nil {
		t.Fatalf("ListMeetings by organizer failed: %v", err)
	}
	if ids := meetingIDs(got); fmt.Sprint(ids) != "[m2 m4]" {
		t.Fatalf("expected organizer matches m2 m4, got %v", ids)
	}
}

func meetingIDs(meetings []booking.Meeting) []string {
	ids := make([]string, 0, len(meetings))
	for _, m := range meetings {
		ids = append(ids, m.ID)
	}
	return ids
}
