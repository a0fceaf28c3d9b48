package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
)

var (
	roomCounter    uint64
	meetingCounter uint64
)

// ----------------------------- Room fixtures -----------------------------

// RoomOption configures a generated room.
type RoomOption func(*booking.Room)

// NewRoom returns an active room with a unique ID and optional overrides.
func NewRoom(opts ...RoomOption) booking.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	room := booking.Room{
		ID:       fmt.Sprintf("room-%03d", idx),
		Name:     fmt.Sprintf("Room %03d", idx),
		Capacity: 6,
		Color:    booking.DefaultRoomColor,
		Active:   true,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}

func WithRoomID(id string) RoomOption {
	return func(r *booking.Room) {
		r.ID = id
	}
}

func WithRoomName(name string) RoomOption {
	return func(r *booking.Room) {
		r.Name = name
	}
}

func WithRoomCapacity(capacity int) RoomOption {
	return func(r *booking.Room) {
		r.Capacity = capacity
	}
}

func WithRoomResources(resources ...string) RoomOption {
	return func(r *booking.Room) {
		r.Resources = resources
	}
}

// Inactive marks the room as closed for booking.
func Inactive() RoomOption {
	return func(r *booking.Room) {
		r.Active = false
	}
}

// StandardRooms is the directory most tests book against. Alpha and Gamma
// both seat six so ranking falls back to name.
func StandardRooms() []booking.Room {
	return []booking.Room{
		NewRoom(WithRoomID("alpha"), WithRoomName("Alpha"), WithRoomCapacity(6), WithRoomResources("tv")),
		NewRoom(WithRoomID("beta"), WithRoomName("Beta"), WithRoomCapacity(10)),
		NewRoom(WithRoomID("gamma"), WithRoomName("Gamma"), WithRoomCapacity(6)),
		NewRoom(WithRoomID("delta"), WithRoomName("Delta"), WithRoomCapacity(4)),
		NewRoom(WithRoomID("closed"), WithRoomName("Closed"), WithRoomCapacity(30), Inactive()),
	}
}

// SeedRooms upserts rooms into seeder and fails the test on error.
func SeedRooms(tb testing.TB, seeder persistence.RoomSeeder, rooms ...booking.Room) {
	tb.Helper()
	for _, room := range rooms {
		if err := seeder.UpsertRoom(context.Background(), room); err != nil {
			tb.Fatalf("UpsertRoom(%s) failed: %v", room.ID, err)
		}
	}
}

// --------------------------- Meeting fixtures ----------------------------

// Organizer is the identity fixture meetings are booked by.
var Organizer = booking.Identity{ID: "user-1", Email: "owner@example.com", Name: "Owner"}

// MeetingOption configures a generated meeting.
type MeetingOption func(*booking.Meeting)

// NewMeeting returns a scheduled one hour meeting in alpha at 09:00 on the
// reference day.
func NewMeeting(opts ...MeetingOption) booking.Meeting {
	idx := atomic.AddUint64(&meetingCounter, 1)
	created := referenceTime.Add(-time.Duration(idx) * time.Minute)
	meeting := booking.Meeting{
		ID:        fmt.Sprintf("fixture-meeting-%03d", idx),
		Title:     fmt.Sprintf("Meeting %03d", idx),
		RoomID:    "alpha",
		Range:     booking.TimeRange{Start: At(9, 0), End: At(10, 0)},
		Organizer: Organizer,
		Status:    booking.MeetingScheduled,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&meeting)
	}
	return meeting
}

func WithMeetingID(id string) MeetingOption {
	return func(m *booking.Meeting) {
		m.ID = id
	}
}

func WithMeetingRoom(roomID string) MeetingOption {
	return func(m *booking.Meeting) {
		m.RoomID = roomID
	}
}

// WithMeetingRange sets the meeting's half-open interval.
func WithMeetingRange(start, end time.Time) MeetingOption {
	return func(m *booking.Meeting) {
		m.Range = booking.TimeRange{Start: start, End: end}
	}
}

func WithMeetingOrganizer(identity booking.Identity) MeetingOption {
	return func(m *booking.Meeting) {
		m.Organizer = identity
	}
}

// WithAttendees adds pending attendees for each email.
func WithAttendees(emails ...string) MeetingOption {
	return func(m *booking.Meeting) {
		for _, email := range emails {
			m.Attendees = append(m.Attendees, booking.Attendee{
				Email:  booking.NormalizeEmail(email),
				Status: booking.AttendeePending,
			})
		}
	}
}

// StoreMeeting persists meeting and fails the test on error.
func StoreMeeting(tb testing.TB, store persistence.MeetingStore, meeting booking.Meeting) booking.Meeting {
	tb.Helper()
	stored, err := store.CreateMeeting(context.Background(), meeting)
	if err != nil {
		tb.Fatalf("CreateMeeting(%s) failed: %v", meeting.ID, err)
	}
	return stored
}
