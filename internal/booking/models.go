// Package booking holds the room-booking domain types shared by the
// persistence, application and transport layers.
package booking

import (
	"strings"
	"time"
)

// DefaultRoomColor is applied to rooms loaded without an explicit color.
const DefaultRoomColor = "#6366F1"

// Room is a bookable meeting room.
type Room struct {
	ID        string
	Name      string
	Capacity  int
	Color     string
	Resources []string
	Active    bool
}

// Identity is a caller as asserted by the upstream identity provider.
type Identity struct {
	ID    string
	Email string
	Name  string
}

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingCancelled MeetingStatus = "cancelled"
)

// AttendeeStatus is an invitee's answer.
type AttendeeStatus string

const (
	AttendeePending  AttendeeStatus = "pending"
	AttendeeAccepted AttendeeStatus = "accepted"
	AttendeeDeclined AttendeeStatus = "declined"
)

// Terminal reports whether the status can no longer change.
func (s AttendeeStatus) Terminal() bool {
	return s == AttendeeAccepted || s == AttendeeDeclined
}

// Valid reports whether s is a known attendee status.
func (s AttendeeStatus) Valid() bool {
	return s == AttendeePending || s.Terminal()
}

// Attendee is an invitee of a meeting. Emails are stored lower-cased.
type Attendee struct {
	Email       string
	Name        string
	Status      AttendeeStatus
	RespondedAt *time.Time
}

// Meeting is a booking of one room for one time range.
type Meeting struct {
	ID          string
	Title       string
	Description string
	RoomID      string
	Range       TimeRange
	Organizer   Identity
	Attendees   []Attendee
	Status      MeetingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Scheduled reports whether the meeting participates in conflict checks.
func (m Meeting) Scheduled() bool {
	return m.Status == MeetingScheduled
}

// Attendee returns the attendee with the given email, compared case-insensitively.
func (m Meeting) Attendee(email string) (Attendee, bool) {
	key := NormalizeEmail(email)
	for _, a := range m.Attendees {
		if a.Email == key {
			return a, true
		}
	}
	return Attendee{}, false
}

// Clone returns a deep copy of the meeting.
func (m Meeting) Clone() Meeting {
	out := m
	if m.Attendees != nil {
		out.Attendees = make([]Attendee, len(m.Attendees))
		for i, a := range m.Attendees {
			out.Attendees[i] = a
			if a.RespondedAt != nil {
				at := *a.RespondedAt
				out.Attendees[i].RespondedAt = &at
			}
		}
	}
	return out
}

// ConflictSummary describes the meeting that blocks a requested slot.
type ConflictSummary struct {
	MeetingID     string
	Title         string
	OrganizerName string
	Range         TimeRange
}

// SummarizeConflict builds the caller-facing description of a blocking meeting.
func SummarizeConflict(m Meeting) ConflictSummary {
	name := m.Organizer.Name
	if strings.TrimSpace(name) == "" {
		name = m.Organizer.Email
	}
	return ConflictSummary{
		MeetingID:     m.ID,
		Title:         m.Title,
		OrganizerName: name,
		Range:         m.Range,
	}
}

// AvailabilityResult is the answer to an availability query.
type AvailabilityResult struct {
	Available   bool
	Conflict    *ConflictSummary
	Suggestions []Room
}

// NormalizeEmail trims and lower-cases an address for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
