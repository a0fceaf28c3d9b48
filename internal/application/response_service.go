package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/invitation"
	"github.com/example/room-booking/internal/notify"
)

// TokenValidator verifies invitation links.
type TokenValidator interface {
	Validate(token string) (invitation.Claims, error)
}

// ResponseRepository captures the persistence operations needed to record answers.
type ResponseRepository interface {
	GetMeeting(ctx context.Context, id string) (booking.Meeting, error)
	RecordResponse(ctx context.Context, meetingID, email string, status booking.AttendeeStatus, at time.Time) (booking.Attendee, bool, error)
}

// ResponseService processes accept/decline answers from invitation links.
// The first decision wins; later submissions return the stored answer.
type ResponseService struct {
	tokens     TokenValidator
	meetings   ResponseRepository
	rooms      RoomDirectory
	dispatcher notify.Dispatcher
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

// NewResponseService constructs a response processor.
func NewResponseService(tokens TokenValidator, meetings ResponseRepository, rooms RoomDirectory, dispatcher notify.Dispatcher, loc *time.Location, now func() time.Time) *ResponseService {
	return NewResponseServiceWithLogger(tokens, meetings, rooms, dispatcher, loc, now, nil)
}

// NewResponseServiceWithLogger constructs a response processor with a specified logger.
func NewResponseServiceWithLogger(tokens TokenValidator, meetings ResponseRepository, rooms RoomDirectory, dispatcher notify.Dispatcher, loc *time.Location, now func() time.Time, logger *slog.Logger) *ResponseService {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &ResponseService{
		tokens:     tokens,
		meetings:   meetings,
		rooms:      rooms,
		dispatcher: dispatcher,
		loc:        loc,
		now:        now,
		logger:     defaultLogger(logger),
	}
}

func (s *ResponseService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResponseService", operation, attrs...)
}

// Respond records the attendee's decision. Cancelled meetings are reported
// as not found.
func (s *ResponseService) Respond(ctx context.Context, token string, decision Decision) (result ResponseResult, err error) {
	if s == nil || s.tokens == nil || s.meetings == nil {
		err = fmt.Errorf("ResponseService not configured")
		return
	}

	logger := s.loggerWith(ctx, "Respond", "decision", string(decision))
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "response rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "response recorded",
			"meeting_id", result.MeetingID,
			"status", string(result.Status),
			"replayed", result.Replayed,
		)
	}()

	if decision != DecisionAccept && decision != DecisionDecline {
		err = validationFailure("response", "must be accept or decline")
		return
	}

	var claims invitation.Claims
	if claims, err = s.validate(token); err != nil {
		return
	}
	logger = logger.With("meeting_id", claims.MeetingID)

	var meeting booking.Meeting
	meeting, err = s.meetings.GetMeeting(ctx, claims.MeetingID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if !meeting.Scheduled() {
		err = ErrNotFound
		return
	}

	attendee, ok := meeting.Attendee(claims.Email)
	if !ok {
		err = ErrAttendeeNotFound
		return
	}
	if attendee.Status.Terminal() {
		result = resultFor(meeting.ID, attendee, true)
		return
	}

	var changed bool
	attendee, changed, err = s.meetings.RecordResponse(ctx, meeting.ID, attendee.Email, decision.Status(), s.now())
	if err != nil {
		err = mapStoreError(err)
		return
	}
	result = resultFor(meeting.ID, attendee, !changed)

	if changed {
		s.notifyOrganizer(ctx, logger, meeting, attendee, decision)
	}
	return
}

// MeetingSummaryForToken describes the meeting an invitation link refers to.
// It never changes state.
func (s *ResponseService) MeetingSummaryForToken(ctx context.Context, token string) (MeetingSummary, error) {
	if s == nil || s.tokens == nil || s.meetings == nil {
		return MeetingSummary{}, fmt.Errorf("ResponseService not configured")
	}

	claims, err := s.validate(token)
	if err != nil {
		return MeetingSummary{}, err
	}

	meeting, err := s.meetings.GetMeeting(ctx, claims.MeetingID)
	if err != nil {
		return MeetingSummary{}, mapStoreError(err)
	}
	attendee, ok := meeting.Attendee(claims.Email)
	if !ok {
		return MeetingSummary{}, ErrAttendeeNotFound
	}

	roomName := meeting.RoomID
	if s.rooms != nil {
		if room, roomErr := s.rooms.GetRoom(ctx, meeting.RoomID); roomErr == nil {
			roomName = room.Name
		}
	}

	start := meeting.Range.Start.In(s.loc)
	end := meeting.Range.End.In(s.loc)
	return MeetingSummary{
		MeetingID:     meeting.ID,
		Title:         meeting.Title,
		Description:   meeting.Description,
		Date:          start.Format("2006-01-02"),
		StartTime:     start.Format("15:04"),
		EndTime:       end.Format("15:04"),
		Start:         start,
		End:           end,
		RoomName:      roomName,
		OrganizerName: organizerName(meeting.Organizer),
		AttendeeEmail: attendee.Email,
		Status:        attendee.Status,
		Cancelled:     !meeting.Scheduled(),
	}, nil
}

// validate collapses every token failure into ErrTokenInvalid so callers
// cannot tell a forged link from an expired one.
func (s *ResponseService) validate(token string) (invitation.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return invitation.Claims{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return claims, nil
}

func (s *ResponseService) notifyOrganizer(ctx context.Context, logger *slog.Logger, meeting booking.Meeting, attendee booking.Attendee, decision Decision) {
	if s.dispatcher == nil || meeting.Organizer.Email == "" {
		return
	}
	event := notify.Event{
		Kind:      notify.KindResponded,
		MeetingID: meeting.ID,
		Title:     meeting.Title,
		Start:     meeting.Range.Start.In(s.loc),
		End:       meeting.Range.End.In(s.loc),
		Recipient: meeting.Organizer.Email,
		Organizer: organizerName(meeting.Organizer),
		Decision:  string(decision),
	}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to notify organizer", "attendee", attendee.Email, "error", err)
	}
}

func resultFor(meetingID string, attendee booking.Attendee, replayed bool) ResponseResult {
	return ResponseResult{
		MeetingID:   meetingID,
		Email:       attendee.Email,
		Status:      attendee.Status,
		RespondedAt: attendee.RespondedAt,
		Replayed:    replayed,
	}
}
