package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/room-booking/internal/booking"
)

var (
	// ErrUnauthorized is returned when the acting identity lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAttendeeNotFound is returned when a response names someone who was not invited.
	ErrAttendeeNotFound = errors.New("application: attendee not found")
	// ErrSlotTaken is returned when the room is already booked for an overlapping range.
	ErrSlotTaken = errors.New("application: slot taken")
	// ErrTokenInvalid covers every malformed, expired or forged invitation link.
	ErrTokenInvalid = errors.New("application: invalid or expired link")
	// ErrInvalidRange is returned for zero or inverted time ranges.
	ErrInvalidRange = booking.ErrInvalidRange
)

// SlotTakenError carries the meeting that holds the slot and the rooms that
// are free instead. It matches ErrSlotTaken.
type SlotTakenError struct {
	Room        booking.Room
	Conflict    booking.ConflictSummary
	Suggestions []booking.Room
}

// Error implements the error interface.
func (e *SlotTakenError) Error() string {
	if e == nil {
		return ErrSlotTaken.Error()
	}
	return fmt.Sprintf("room %q is already booked from %s to %s",
		e.Room.Name, e.Conflict.Range.Start.Format("15:04"), e.Conflict.Range.End.Format("15:04"))
}

// Is allows errors.Is(err, ErrSlotTaken).
func (e *SlotTakenError) Is(target error) bool {
	return target == ErrSlotTaken
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func validationFailure(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}
