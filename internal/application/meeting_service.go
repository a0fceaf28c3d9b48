package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/calendar"
	"github.com/example/room-booking/internal/notify"
	"github.com/example/room-booking/internal/persistence"
)

const maxTitleLength = 200

// MeetingRepository captures the persistence operations needed by the meeting service.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting booking.Meeting) (booking.Meeting, error)
	RescheduleMeeting(ctx context.Context, id, roomID string, r booking.TimeRange, at time.Time) (booking.Meeting, error)
	CancelMeeting(ctx context.Context, id string, at time.Time) (booking.Meeting, error)
	GetMeeting(ctx context.Context, id string) (booking.Meeting, error)
	ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]booking.Meeting, error)
}

// RoomSuggester proposes alternatives when a room is taken.
type RoomSuggester interface {
	Suggest(ctx context.Context, requested booking.Room, r booking.TimeRange, capacity int, excludeID string) ([]booking.Room, error)
}

// TokenIssuer signs invitation links.
type TokenIssuer interface {
	Issue(meetingID, email string, expiresAt time.Time) (string, error)
	ExpiryFor(meetingEnd time.Time) time.Time
}

// LinkBuilder turns an invitation token into the URL sent to the attendee.
type LinkBuilder func(token string) string

// MeetingServiceDeps wires a MeetingService. Meetings and Rooms are required.
type MeetingServiceDeps struct {
	Meetings    MeetingRepository
	Rooms       RoomDirectory
	Suggester   RoomSuggester
	Tokens      TokenIssuer
	Dispatcher  notify.Dispatcher
	Links       LinkBuilder
	Location    *time.Location
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// MeetingService books, moves and cancels meetings.
type MeetingService struct {
	meetings    MeetingRepository
	rooms       RoomDirectory
	suggester   RoomSuggester
	tokens      TokenIssuer
	dispatcher  notify.Dispatcher
	links       LinkBuilder
	loc         *time.Location
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService constructs a meeting service.
func NewMeetingService(deps MeetingServiceDeps) *MeetingService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Links == nil {
		deps.Links = func(token string) string { return token }
	}
	return &MeetingService{
		meetings:    deps.Meetings,
		rooms:       deps.Rooms,
		suggester:   deps.Suggester,
		tokens:      deps.Tokens,
		dispatcher:  deps.Dispatcher,
		links:       deps.Links,
		loc:         deps.Location,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

// CreateMeeting validates the request, books the room atomically and sends
// invitations. A taken slot yields a *SlotTakenError with suggestions.
func (s *MeetingService) CreateMeeting(ctx context.Context, params CreateMeetingParams) (created CreatedMeeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}
	if s.meetings == nil || s.rooms == nil {
		err = fmt.Errorf("meeting repository not configured")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateMeeting",
		"organizer_id", params.Organizer.ID,
		"room_id", input.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("meeting_id", created.Meeting.ID).InfoContext(ctx, "meeting created",
			"attendees", len(created.Meeting.Attendees),
		)
	}()

	if params.Organizer.ID == "" {
		err = ErrUnauthorized
		return
	}

	r := booking.TimeRange{Start: input.Start, End: input.End}
	if err = r.Validate(); err != nil {
		return
	}

	vErr := &ValidationError{}
	title := validateTitle(input.Title, vErr)
	if strings.TrimSpace(input.RoomID) == "" {
		vErr.add("room_id", "room is required")
	}
	attendees := validateAttendees(input.Attendees, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var room booking.Room
	if room, err = s.bookableRoom(ctx, input.RoomID); err != nil {
		return
	}

	now := s.now()
	meeting := booking.Meeting{
		ID:          s.idGenerator(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		RoomID:      room.ID,
		Range:       r,
		Organizer: booking.Identity{
			ID:    params.Organizer.ID,
			Email: booking.NormalizeEmail(params.Organizer.Email),
			Name:  strings.TrimSpace(params.Organizer.Name),
		},
		Attendees: attendees,
		Status:    booking.MeetingScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var persisted booking.Meeting
	persisted, err = s.meetings.CreateMeeting(ctx, meeting)
	if err != nil {
		err = s.slotTaken(ctx, err, room, r, "")
		return
	}

	created = CreatedMeeting{Meeting: persisted, Room: room}
	created.Invitations = s.issueInvitations(ctx, logger, persisted, false)
	s.notifyAttendees(ctx, logger, notify.KindInvited, persisted, room, created.Invitations)
	return
}

// RescheduleMeeting moves a meeting to a new range and optionally a new room.
// Only the organizer may reschedule.
func (s *MeetingService) RescheduleMeeting(ctx context.Context, params RescheduleMeetingParams) (meeting booking.Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RescheduleMeeting",
		"principal_id", params.Principal.ID,
		"meeting_id", params.MeetingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reschedule meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting rescheduled", "room_id", meeting.RoomID)
	}()

	r := booking.TimeRange{Start: params.Start, End: params.End}
	if err = r.Validate(); err != nil {
		return
	}

	var existing booking.Meeting
	if existing, err = s.ownedMeeting(ctx, params.Principal, params.MeetingID); err != nil {
		return
	}
	if !existing.Scheduled() {
		err = validationFailure("status", "meeting is cancelled")
		return
	}

	roomID := strings.TrimSpace(params.RoomID)
	if roomID == "" {
		roomID = existing.RoomID
	}
	var room booking.Room
	if room, err = s.bookableRoom(ctx, roomID); err != nil {
		return
	}

	meeting, err = s.meetings.RescheduleMeeting(ctx, existing.ID, room.ID, r, s.now())
	if err != nil {
		err = s.slotTaken(ctx, err, room, r, existing.ID)
		return
	}

	invitations := s.issueInvitations(ctx, logger, meeting, true)
	s.notifyAttendees(ctx, logger, notify.KindRescheduled, meeting, room, invitations)
	return
}

// CancelMeeting soft-cancels a meeting. Only the organizer may cancel.
func (s *MeetingService) CancelMeeting(ctx context.Context, principal booking.Identity, meetingID string) (meeting booking.Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CancelMeeting",
		"principal_id", principal.ID,
		"meeting_id", meetingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting cancelled")
	}()

	var existing booking.Meeting
	if existing, err = s.ownedMeeting(ctx, principal, meetingID); err != nil {
		return
	}

	meeting, err = s.meetings.CancelMeeting(ctx, existing.ID, s.now())
	if err != nil {
		err = mapStoreError(err)
		return
	}

	if existing.Scheduled() {
		room, roomErr := s.rooms.GetRoom(ctx, meeting.RoomID)
		if roomErr != nil {
			room = booking.Room{ID: meeting.RoomID, Name: meeting.RoomID}
		}
		s.notifyAttendees(ctx, logger, notify.KindCancelled, meeting, room, nil)
	}
	return
}

// GetMeeting returns a meeting by ID.
func (s *MeetingService) GetMeeting(ctx context.Context, meetingID string) (booking.Meeting, error) {
	if s == nil || s.meetings == nil {
		return booking.Meeting{}, fmt.Errorf("meeting repository not configured")
	}
	meeting, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return booking.Meeting{}, mapStoreError(err)
	}
	return meeting, nil
}

// ListMeetingsForRoom returns the room's scheduled meetings on the
// organizational-timezone day containing day.
func (s *MeetingService) ListMeetingsForRoom(ctx context.Context, roomID string, day time.Time) (booking.Room, booking.TimeRange, []booking.Meeting, error) {
	if s == nil || s.meetings == nil || s.rooms == nil {
		return booking.Room{}, booking.TimeRange{}, nil, fmt.Errorf("meeting repository not configured")
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return booking.Room{}, booking.TimeRange{}, nil, mapStoreError(err)
	}

	dayRange := booking.DayRange(day, s.loc)
	meetings, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{RoomID: room.ID, Range: &dayRange})
	if err != nil {
		err = mapStoreError(err)
		s.loggerWith(ctx, "ListMeetingsForRoom", "room_id", roomID).ErrorContext(ctx, "failed to list meetings", "error", err, "error_kind", ErrorKind(err))
		return booking.Room{}, booking.TimeRange{}, nil, err
	}
	return room, dayRange, meetings, nil
}

// ListMeetingsForUser returns scheduled meetings the identity organizes or
// attends, optionally limited to those overlapping r.
func (s *MeetingService) ListMeetingsForUser(ctx context.Context, identity booking.Identity, r *booking.TimeRange) ([]booking.Meeting, error) {
	if s == nil || s.meetings == nil {
		return nil, fmt.Errorf("meeting repository not configured")
	}
	if identity.ID == "" && identity.Email == "" {
		return nil, ErrUnauthorized
	}
	if r != nil {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	participant := identity
	meetings, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{Participant: &participant, Range: r})
	if err != nil {
		err = mapStoreError(err)
		s.loggerWith(ctx, "ListMeetingsForUser", "user_id", identity.ID).ErrorContext(ctx, "failed to list meetings", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return meetings, nil
}

// ListCalendar returns every scheduled meeting overlapping r, whoever
// organizes it, ordered by start. Meetings whose room has disappeared keep
// the room ID as name and the default color.
func (s *MeetingService) ListCalendar(ctx context.Context, identity booking.Identity, r booking.TimeRange) ([]CalendarEvent, error) {
	if s == nil || s.meetings == nil || s.rooms == nil {
		return nil, fmt.Errorf("meeting repository not configured")
	}
	if identity.ID == "" && identity.Email == "" {
		return nil, ErrUnauthorized
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	logger := s.loggerWith(ctx, "ListCalendar", "user_id", identity.ID)
	meetings, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{Range: &r})
	if err != nil {
		err = mapStoreError(err)
		logger.ErrorContext(ctx, "failed to list meetings", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		err = mapStoreError(err)
		logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	byID := make(map[string]booking.Room, len(rooms))
	for _, room := range rooms {
		byID[room.ID] = room
	}

	sort.SliceStable(meetings, func(i, j int) bool {
		return meetings[i].Range.Compare(meetings[j].Range) < 0
	})
	events := make([]CalendarEvent, 0, len(meetings))
	for _, meeting := range meetings {
		event := CalendarEvent{
			Meeting:   meeting,
			RoomName:  meeting.RoomID,
			RoomColor: booking.DefaultRoomColor,
			Own:       organizes(meeting, identity),
		}
		if room, ok := byID[meeting.RoomID]; ok {
			event.RoomName = room.Name
			if room.Color != "" {
				event.RoomColor = room.Color
			}
		}
		events = append(events, event)
	}
	return events, nil
}

func organizes(meeting booking.Meeting, identity booking.Identity) bool {
	if identity.ID != "" {
		return meeting.Organizer.ID == identity.ID
	}
	return booking.NormalizeEmail(meeting.Organizer.Email) == booking.NormalizeEmail(identity.Email)
}

func (s *MeetingService) ownedMeeting(ctx context.Context, principal booking.Identity, meetingID string) (booking.Meeting, error) {
	if principal.ID == "" {
		return booking.Meeting{}, ErrUnauthorized
	}
	meeting, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return booking.Meeting{}, mapStoreError(err)
	}
	if meeting.Organizer.ID != principal.ID {
		return booking.Meeting{}, ErrUnauthorized
	}
	return meeting, nil
}

func (s *MeetingService) bookableRoom(ctx context.Context, roomID string) (booking.Room, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return booking.Room{}, mapStoreError(err)
	}
	if !room.Active {
		return booking.Room{}, validationFailure("room_id", "room is not available for booking")
	}
	return room, nil
}

// slotTaken turns a store conflict into a SlotTakenError with suggestions.
func (s *MeetingService) slotTaken(ctx context.Context, err error, room booking.Room, r booking.TimeRange, excludeID string) error {
	if !errors.Is(err, persistence.ErrSlotTaken) {
		return mapStoreError(err)
	}

	slotErr := &SlotTakenError{Room: room}
	var conflictErr *persistence.ConflictError
	if errors.As(err, &conflictErr) {
		slotErr.Conflict = booking.SummarizeConflict(conflictErr.Meeting)
	}
	if s.suggester != nil {
		suggestions, suggestErr := s.suggester.Suggest(ctx, room, r, 0, excludeID)
		if suggestErr != nil {
			s.loggerWith(ctx, "suggest", "room_id", room.ID).WarnContext(ctx, "failed to compute suggestions", "error", suggestErr)
		}
		slotErr.Suggestions = suggestions
	}
	return slotErr
}

// issueInvitations signs one link per attendee. When onlyPending is set,
// attendees who already answered are skipped. Failures are logged and the
// attendee is left without a link.
func (s *MeetingService) issueInvitations(ctx context.Context, logger *slog.Logger, meeting booking.Meeting, onlyPending bool) []Invitation {
	if s.tokens == nil || len(meeting.Attendees) == 0 {
		return nil
	}

	expiresAt := s.tokens.ExpiryFor(meeting.Range.End)
	invitations := make([]Invitation, 0, len(meeting.Attendees))
	for _, attendee := range meeting.Attendees {
		if onlyPending && attendee.Status.Terminal() {
			continue
		}
		token, err := s.tokens.Issue(meeting.ID, attendee.Email, expiresAt)
		if err != nil {
			logger.WarnContext(ctx, "failed to issue invitation token", "attendee", attendee.Email, "error", err)
			continue
		}
		invitations = append(invitations, Invitation{
			Email:     attendee.Email,
			Token:     token,
			Link:      s.links(token),
			ExpiresAt: expiresAt,
		})
	}
	return invitations
}

func (s *MeetingService) notifyAttendees(ctx context.Context, logger *slog.Logger, kind notify.Kind, meeting booking.Meeting, room booking.Room, invitations []Invitation) {
	if s.dispatcher == nil {
		return
	}

	links := make(map[string]string, len(invitations))
	for _, inv := range invitations {
		links[inv.Email] = inv.Link
	}

	ics, err := calendar.Invitation(meeting, room, s.now())
	if err != nil {
		logger.WarnContext(ctx, "failed to render calendar attachment", "error", err)
	}

	for _, attendee := range meeting.Attendees {
		if kind == notify.KindCancelled && attendee.Status == booking.AttendeeDeclined {
			continue
		}
		event := notify.Event{
			Kind:         kind,
			MeetingID:    meeting.ID,
			Title:        meeting.Title,
			RoomName:     room.Name,
			Start:        meeting.Range.Start.In(s.loc),
			End:          meeting.Range.End.In(s.loc),
			Recipient:    attendee.Email,
			Organizer:    organizerName(meeting.Organizer),
			ResponseLink: links[attendee.Email],
			Calendar:     ics,
		}
		if err := s.dispatcher.Dispatch(ctx, event); err != nil {
			logger.WarnContext(ctx, "failed to dispatch notification",
				"kind", string(kind),
				"recipient", attendee.Email,
				"error", err,
			)
		}
	}
}

func validateTitle(raw string, vErr *ValidationError) string {
	title := strings.TrimSpace(raw)
	switch {
	case title == "":
		vErr.add("title", "title is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		vErr.add("title", "title must be at most "+strconv.Itoa(maxTitleLength)+" characters")
	}
	return title
}

func validateAttendees(inputs []AttendeeInput, vErr *ValidationError) []booking.Attendee {
	attendees := make([]booking.Attendee, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for i, input := range inputs {
		field := fmt.Sprintf("attendees[%d].email", i)

		raw := strings.TrimSpace(input.Email)
		if raw == "" {
			vErr.add(field, "email is required")
			continue
		}
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			vErr.add(field, "email is invalid")
			continue
		}
		email := booking.NormalizeEmail(addr.Address)
		if _, dup := seen[email]; dup {
			vErr.add(field, "attendee is listed more than once")
			continue
		}
		seen[email] = struct{}{}

		name := strings.TrimSpace(input.Name)
		if name == "" {
			name = addr.Name
		}
		attendees = append(attendees, booking.Attendee{Email: email, Name: name, Status: booking.AttendeePending})
	}
	return attendees
}

func organizerName(identity booking.Identity) string {
	if identity.Name != "" {
		return identity.Name
	}
	return identity.Email
}
