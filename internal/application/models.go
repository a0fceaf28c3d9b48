package application

import (
	"strings"
	"time"

	"github.com/example/room-booking/internal/booking"
)

// AvailabilityQuery asks whether a room is free for a range.
type AvailabilityQuery struct {
	RoomID string
	Range  booking.TimeRange
	// ExcludeMeetingID ignores the meeting being edited.
	ExcludeMeetingID string
	// Capacity is the minimum seat count for suggestions. Zero uses the
	// requested room's capacity.
	Capacity int
}

// AttendeeInput is an invitee supplied by the organizer.
type AttendeeInput struct {
	Email string
	Name  string
}

// MeetingInput captures caller provided meeting fields.
type MeetingInput struct {
	Title       string
	Description string
	RoomID      string
	Start       time.Time
	End         time.Time
	Attendees   []AttendeeInput
}

// CreateMeetingParams wraps the data required to book a meeting.
type CreateMeetingParams struct {
	Organizer booking.Identity
	Input     MeetingInput
}

// RescheduleMeetingParams moves an existing meeting.
type RescheduleMeetingParams struct {
	Principal booking.Identity
	MeetingID string
	RoomID    string
	Start     time.Time
	End       time.Time
}

// Invitation is the response link issued to one attendee.
type Invitation struct {
	Email     string
	Token     string
	Link      string
	ExpiresAt time.Time
}

// CreatedMeeting is the result of a successful booking.
type CreatedMeeting struct {
	Meeting     booking.Meeting
	Room        booking.Room
	Invitations []Invitation
}

// CalendarEvent is one scheduled meeting on the shared calendar, decorated
// with the room's display attributes.
type CalendarEvent struct {
	Meeting   booking.Meeting
	RoomName  string
	RoomColor string
	// Own is set when the caller organizes the meeting.
	Own bool
}

// Decision is an attendee's answer to an invitation.
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

// ParseDecision accepts "accept" or "decline" in any case.
func ParseDecision(value string) (Decision, bool) {
	switch Decision(strings.ToLower(strings.TrimSpace(value))) {
	case DecisionAccept:
		return DecisionAccept, true
	case DecisionDecline:
		return DecisionDecline, true
	}
	return "", false
}

// Status returns the attendee status the decision moves to.
func (d Decision) Status() booking.AttendeeStatus {
	if d == DecisionAccept {
		return booking.AttendeeAccepted
	}
	return booking.AttendeeDeclined
}

// ResponseResult reports the attendee's stored decision. Replayed is set
// when the attendee had already answered and nothing changed.
type ResponseResult struct {
	MeetingID   string
	Email       string
	Status      booking.AttendeeStatus
	RespondedAt *time.Time
	Replayed    bool
}

// MeetingSummary is what an invitee sees before answering.
type MeetingSummary struct {
	MeetingID     string
	Title         string
	Description   string
	Date          string
	StartTime     string
	EndTime       string
	Start         time.Time
	End           time.Time
	RoomName      string
	OrganizerName string
	AttendeeEmail string
	Status        booking.AttendeeStatus
	Cancelled     bool
}
