package persistence

import (
	"context"
	"time"

	"github.com/example/room-booking/internal/booking"
)

// RoomRepository exposes the room catalog.
type RoomRepository interface {
	// ListRooms returns every room ordered by ID.
	ListRooms(ctx context.Context) ([]booking.Room, error)
	GetRoom(ctx context.Context, id string) (booking.Room, error)
}

// RoomSeeder loads rooms from an external catalog.
type RoomSeeder interface {
	UpsertRoom(ctx context.Context, room booking.Room) error
}

// MeetingFilter narrows meeting listings. Zero values impose no constraint.
type MeetingFilter struct {
	RoomID string
	// Participant matches meetings organized by the identity ID or attended by its email.
	Participant *booking.Identity
	// Range keeps meetings overlapping the range.
	Range            *booking.TimeRange
	IncludeCancelled bool
}

// MeetingStore persists meetings and enforces the no-double-booking invariant.
type MeetingStore interface {
	// FindConflict returns the earliest-starting scheduled meeting in the room
	// overlapping r, ignoring excludeID, or nil.
	FindConflict(ctx context.Context, roomID string, r booking.TimeRange, excludeID string) (*booking.Meeting, error)
	// CreateMeeting atomically checks for conflicts and inserts. A conflict
	// yields a *ConflictError.
	CreateMeeting(ctx context.Context, meeting booking.Meeting) (booking.Meeting, error)
	// RescheduleMeeting atomically moves a scheduled meeting, ignoring itself
	// during the conflict check.
	RescheduleMeeting(ctx context.Context, id, roomID string, r booking.TimeRange, at time.Time) (booking.Meeting, error)
	CancelMeeting(ctx context.Context, id string, at time.Time) (booking.Meeting, error)
	GetMeeting(ctx context.Context, id string) (booking.Meeting, error)
	// ListMeetings returns matches ordered by start, then ID.
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]booking.Meeting, error)
	// RecordResponse moves an attendee out of pending. changed is false when
	// the attendee had already answered; the stored attendee is returned as is.
	RecordResponse(ctx context.Context, meetingID, email string, status booking.AttendeeStatus, at time.Time) (attendee booking.Attendee, changed bool, err error)
}

// Store is the full persistence surface a backend provides.
type Store interface {
	RoomRepository
	RoomSeeder
	MeetingStore
	Close() error
}

// MatchesFilter applies filter to a single meeting. Backends that filter in
// memory share this predicate.
func MatchesFilter(m booking.Meeting, filter MeetingFilter) bool {
	if !filter.IncludeCancelled && !m.Scheduled() {
		return false
	}
	if filter.RoomID != "" && m.RoomID != filter.RoomID {
		return false
	}
	if filter.Range != nil && !m.Range.Overlaps(*filter.Range) {
		return false
	}
	if p := filter.Participant; p != nil {
		if !isParticipant(m, *p) {
			return false
		}
	}
	return true
}

func isParticipant(m booking.Meeting, who booking.Identity) bool {
	if who.ID != "" && m.Organizer.ID == who.ID {
		return true
	}
	if who.Email == "" {
		return false
	}
	email := booking.NormalizeEmail(who.Email)
	if booking.NormalizeEmail(m.Organizer.Email) == email {
		return true
	}
	_, ok := m.Attendee(email)
	return ok
}
