package persistence

import (
	"errors"
	"fmt"

	"github.com/example/room-booking/internal/booking"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrAttendeeNotFound is returned when a meeting has no attendee with the given email.
	ErrAttendeeNotFound = errors.New("persistence: attendee not found")
	// ErrSlotTaken is returned when a write would double-book a room.
	ErrSlotTaken = errors.New("persistence: slot taken")
	// ErrMeetingCancelled is returned when a cancelled meeting is modified.
	ErrMeetingCancelled = errors.New("persistence: meeting cancelled")
	// ErrDuplicate is returned when a record with the same key already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a write violates a schema constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)

// ConflictError reports the scheduled meeting that blocked a write.
// It matches ErrSlotTaken with errors.Is.
type ConflictError struct {
	Meeting booking.Meeting
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return ErrSlotTaken.Error()
	}
	return fmt.Sprintf("%s: room %s is held by meeting %s", ErrSlotTaken, e.Meeting.RoomID, e.Meeting.ID)
}

// Is allows errors.Is(err, ErrSlotTaken).
func (e *ConflictError) Is(target error) bool {
	return target == ErrSlotTaken
}
