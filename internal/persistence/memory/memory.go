// Package memory provides a map-backed persistence.Store for tests and
// single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
)

// Store keeps rooms and meetings in process memory. Writers hold the room
// lock for the target room before checking and inserting.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]booking.Room
	meetings map[string]booking.Meeting
	locks    *persistence.RoomLocks
}

var _ persistence.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		rooms:    make(map[string]booking.Room),
		meetings: make(map[string]booking.Meeting),
		locks:    persistence.NewRoomLocks(),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// --- RoomRepository implementation ---

// UpsertRoom inserts or replaces a room.
func (s *Store) UpsertRoom(ctx context.Context, room booking.Room) error {
	if strings.TrimSpace(room.ID) == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

// GetRoom retrieves a room by ID.
func (s *Store) GetRoom(ctx context.Context, id string) (booking.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return booking.Room{}, persistence.ErrNotFound
	}
	return cloneRoom(room), nil
}

// ListRooms returns all rooms ordered by ID.
func (s *Store) ListRooms(ctx context.Context) ([]booking.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rooms) == 0 {
		return nil, nil
	}
	rooms := make([]booking.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, cloneRoom(room))
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

// --- MeetingStore implementation ---

// FindConflict returns the earliest overlapping scheduled meeting in the room.
func (s *Store) FindConflict(ctx context.Context, roomID string, r booking.TimeRange, excludeID string) (*booking.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findConflictLocked(roomID, r, excludeID), nil
}

// CreateMeeting inserts the meeting if its room is free for the range.
func (s *Store) CreateMeeting(ctx context.Context, meeting booking.Meeting) (booking.Meeting, error) {
	if meeting.ID == "" {
		return booking.Meeting{}, persistence.ErrConstraintViolation
	}
	if err := meeting.Range.Validate(); err != nil {
		return booking.Meeting{}, err
	}

	unlock, err := s.locks.Lock(ctx, meeting.RoomID)
	if err != nil {
		return booking.Meeting{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[meeting.RoomID]; !ok {
		return booking.Meeting{}, persistence.ErrNotFound
	}
	if _, ok := s.meetings[meeting.ID]; ok {
		return booking.Meeting{}, persistence.ErrDuplicate
	}
	if conflict := s.findConflictLocked(meeting.RoomID, meeting.Range, ""); conflict != nil {
		return booking.Meeting{}, &persistence.ConflictError{Meeting: *conflict}
	}

	stored := meeting.Clone()
	if stored.Status == "" {
		stored.Status = booking.MeetingScheduled
	}
	for i := range stored.Attendees {
		stored.Attendees[i].Email = booking.NormalizeEmail(stored.Attendees[i].Email)
		if stored.Attendees[i].Status == "" {
			stored.Attendees[i].Status = booking.AttendeePending
		}
	}
	s.meetings[stored.ID] = stored
	return stored.Clone(), nil
}

// RescheduleMeeting moves a scheduled meeting to a new room and range.
func (s *Store) RescheduleMeeting(ctx context.Context, id, roomID string, r booking.TimeRange, at time.Time) (booking.Meeting, error) {
	if err := r.Validate(); err != nil {
		return booking.Meeting{}, err
	}

	current, err := s.GetMeeting(ctx, id)
	if err != nil {
		return booking.Meeting{}, err
	}

	unlock, err := s.locks.LockPair(ctx, current.RoomID, roomID)
	if err != nil {
		return booking.Meeting{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, ok := s.meetings[id]
	if !ok {
		return booking.Meeting{}, persistence.ErrNotFound
	}
	if meeting.RoomID != current.RoomID {
		// moved by a concurrent writer while we waited for the locks
		return booking.Meeting{}, fmt.Errorf("memory: meeting %s changed rooms concurrently: %w", id, persistence.ErrSlotTaken)
	}
	if !meeting.Scheduled() {
		return booking.Meeting{}, persistence.ErrMeetingCancelled
	}
	if _, ok := s.rooms[roomID]; !ok {
		return booking.Meeting{}, persistence.ErrNotFound
	}
	if conflict := s.findConflictLocked(roomID, r, id); conflict != nil {
		return booking.Meeting{}, &persistence.ConflictError{Meeting: *conflict}
	}

	meeting.RoomID = roomID
	meeting.Range = r
	meeting.UpdatedAt = at
	s.meetings[id] = meeting
	return meeting.Clone(), nil
}

// CancelMeeting marks the meeting cancelled. Cancelling twice is a no-op.
func (s *Store) CancelMeeting(ctx context.Context, id string, at time.Time) (booking.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, ok := s.meetings[id]
	if !ok {
		return booking.Meeting{}, persistence.ErrNotFound
	}
	if meeting.Scheduled() {
		meeting.Status = booking.MeetingCancelled
		meeting.UpdatedAt = at
		s.meetings[id] = meeting
	}
	return meeting.Clone(), nil
}

// GetMeeting retrieves a meeting by ID, cancelled or not.
func (s *Store) GetMeeting(ctx context.Context, id string) (booking.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meeting, ok := s.meetings[id]
	if !ok {
		return booking.Meeting{}, persistence.ErrNotFound
	}
	return meeting.Clone(), nil
}

// ListMeetings returns meetings matching the filter ordered by start then ID.
func (s *Store) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]booking.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []booking.Meeting
	for _, meeting := range s.meetings {
		if persistence.MatchesFilter(meeting, filter) {
			out = append(out, meeting.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Range.Compare(out[j].Range); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// RecordResponse moves a pending attendee to status.
func (s *Store) RecordResponse(ctx context.Context, meetingID, email string, status booking.AttendeeStatus, at time.Time) (booking.Attendee, bool, error) {
	if !status.Terminal() {
		return booking.Attendee{}, false, persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, ok := s.meetings[meetingID]
	if !ok {
		return booking.Attendee{}, false, persistence.ErrNotFound
	}

	key := booking.NormalizeEmail(email)
	for i := range meeting.Attendees {
		attendee := &meeting.Attendees[i]
		if attendee.Email != key {
			continue
		}
		if attendee.Status != booking.AttendeePending {
			return cloneAttendee(*attendee), false, nil
		}
		respondedAt := at
		attendee.Status = status
		attendee.RespondedAt = &respondedAt
		meeting.UpdatedAt = at
		s.meetings[meetingID] = meeting
		return cloneAttendee(*attendee), true, nil
	}
	return booking.Attendee{}, false, persistence.ErrAttendeeNotFound
}

func (s *Store) findConflictLocked(roomID string, r booking.TimeRange, excludeID string) *booking.Meeting {
	candidates := make([]booking.Meeting, 0)
	for _, meeting := range s.meetings {
		if meeting.RoomID == roomID {
			candidates = append(candidates, meeting)
		}
	}
	return booking.FindConflict(candidates, roomID, r, excludeID)
}

func cloneRoom(room booking.Room) booking.Room {
	room.Resources = append([]string(nil), room.Resources...)
	return room
}

func cloneAttendee(a booking.Attendee) booking.Attendee {
	if a.RespondedAt != nil {
		at := *a.RespondedAt
		a.RespondedAt = &at
	}
	return a
}
