// Package calendar renders meetings as iCalendar (RFC 5545) documents, used
// for invitation attachments and room schedule exports.
package calendar

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/room-booking/internal/booking"
)

const productID = "-//room-booking//meeting rooms//EN"

// Method values for the calendar METHOD property.
const (
	MethodPublish = "PUBLISH"
	MethodRequest = "REQUEST"
	MethodCancel  = "CANCEL"
)

// ContentType is the media type of the encoded documents.
const ContentType = "text/calendar; charset=utf-8"

// Invitation encodes a single meeting for an attendee's calendar client.
// Cancelled meetings produce a CANCEL document.
func Invitation(meeting booking.Meeting, room booking.Room, stamp time.Time) ([]byte, error) {
	method := MethodRequest
	if !meeting.Scheduled() {
		method = MethodCancel
	}

	cal := newCalendar(method)
	cal.Children = append(cal.Children, meetingEvent(meeting, room, stamp).Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("calendar: encode invitation %s: %w", meeting.ID, err)
	}
	return buf.Bytes(), nil
}

// WriteRoomSchedule writes every meeting of a room as one published calendar.
// A day without meetings still produces a valid calendar with a placeholder
// free-time marker so clients accept the document.
func WriteRoomSchedule(w io.Writer, room booking.Room, day booking.TimeRange, meetings []booking.Meeting, stamp time.Time) error {
	cal := newCalendar(MethodPublish)
	cal.Props.SetText("X-WR-CALNAME", room.Name)

	for _, meeting := range meetings {
		cal.Children = append(cal.Children, meetingEvent(meeting, room, stamp).Component)
	}
	if len(meetings) == 0 {
		free := ical.NewComponent(ical.CompFreeBusy)
		free.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%s@room-booking", room.ID, day.Start.UTC().Format("20060102")))
		free.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		free.Props.SetDateTime(ical.PropDateTimeStart, day.Start.UTC())
		free.Props.SetDateTime(ical.PropDateTimeEnd, day.End.UTC())
		cal.Children = append(cal.Children, free)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("calendar: encode schedule for room %s: %w", room.ID, err)
	}
	return nil
}

func newCalendar(method string) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropMethod, method)
	return cal
}

func meetingEvent(meeting booking.Meeting, room booking.Room, stamp time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, meeting.ID+"@room-booking")
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, meeting.Range.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, meeting.Range.End.UTC())
	event.Props.SetText(ical.PropSummary, meeting.Title)
	if room.Name != "" {
		event.Props.SetText(ical.PropLocation, room.Name)
	}
	if meeting.Description != "" {
		event.Props.SetText(ical.PropDescription, meeting.Description)
	}
	if meeting.Scheduled() {
		event.Props.SetText(ical.PropStatus, "CONFIRMED")
	} else {
		event.Props.SetText(ical.PropStatus, "CANCELLED")
	}

	if meeting.Organizer.Email != "" {
		organizer := ical.NewProp(ical.PropOrganizer)
		organizer.Value = "mailto:" + meeting.Organizer.Email
		if meeting.Organizer.Name != "" {
			organizer.Params.Set(ical.ParamCommonName, meeting.Organizer.Name)
		}
		event.Props.Set(organizer)
	}

	for _, attendee := range meeting.Attendees {
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = "mailto:" + attendee.Email
		if attendee.Name != "" {
			prop.Params.Set(ical.ParamCommonName, attendee.Name)
		}
		prop.Params.Set(ical.ParamParticipationStatus, partStat(attendee.Status))
		event.Props.Add(prop)
	}
	return event
}

func partStat(status booking.AttendeeStatus) string {
	switch status {
	case booking.AttendeeAccepted:
		return "ACCEPTED"
	case booking.AttendeeDeclined:
		return "DECLINED"
	default:
		return "NEEDS-ACTION"
	}
}

// Filename returns a download name for a room schedule on day.
func Filename(room booking.Room, day time.Time) string {
	id := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' {
			return '-'
		}
		return r
	}, room.ID)
	return fmt.Sprintf("%s-%s.ics", id, day.Format("2006-01-02"))
}
