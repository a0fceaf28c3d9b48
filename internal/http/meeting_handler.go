package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/booking"
)

type meetingService interface {
	CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (application.CreatedMeeting, error)
	RescheduleMeeting(ctx context.Context, params application.RescheduleMeetingParams) (booking.Meeting, error)
	CancelMeeting(ctx context.Context, principal booking.Identity, meetingID string) (booking.Meeting, error)
	GetMeeting(ctx context.Context, meetingID string) (booking.Meeting, error)
	ListMeetingsForUser(ctx context.Context, identity booking.Identity, r *booking.TimeRange) ([]booking.Meeting, error)
	ListCalendar(ctx context.Context, identity booking.Identity, r booking.TimeRange) ([]application.CalendarEvent, error)
}

type availabilityService interface {
	CheckAvailability(ctx context.Context, query application.AvailabilityQuery) (booking.AvailabilityResult, error)
	AvailableRooms(ctx context.Context, r booking.TimeRange, minCapacity int) ([]booking.Room, error)
}

// MeetingHandlerConfig wires the meeting endpoints. Location reads request
// times that carry no UTC offset.
type MeetingHandlerConfig struct {
	Meetings     meetingService
	Availability availabilityService
	Location     *time.Location
	Logger       *slog.Logger
}

type MeetingHandler struct {
	meetings     meetingService
	availability availabilityService
	loc          *time.Location
	responder    responder
	logger       *slog.Logger
}

func NewMeetingHandler(cfg MeetingHandlerConfig) *MeetingHandler {
	base := defaultLogger(cfg.Logger)
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &MeetingHandler{
		meetings:     cfg.Meetings,
		availability: cfg.Availability,
		loc:          cfg.Location,
		responder:    newResponder(base),
		logger:       base,
	}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

// CheckAvailability handles GET /api/meetings/check-availability.
func (h *MeetingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	fieldErrors := map[string]string{}
	roomID := strings.TrimSpace(q.Get("room_id"))
	if roomID == "" {
		fieldErrors["room_id"] = "room_id is required"
	}
	rng := parseRange(q, h.loc, fieldErrors)
	capacity := parseCapacity(q, fieldErrors)
	if len(fieldErrors) > 0 {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{FieldErrors: fieldErrors})
		return
	}

	logger := h.log(r.Context(), "CheckAvailability", "room_id", roomID)
	result, err := h.availability.CheckAvailability(r.Context(), application.AvailabilityQuery{
		RoomID:           roomID,
		Range:            rng,
		ExcludeMeetingID: strings.TrimSpace(q.Get("meeting_id")),
		Capacity:         capacity,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "availability check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityResponse(result))
}

// Create handles POST /api/meetings.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.meetings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	identity, _ := IdentityFromContext(r.Context())

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode meeting request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	fieldErrors := map[string]string{}
	input := req.toInput(h.loc, fieldErrors)
	if len(fieldErrors) > 0 {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{FieldErrors: fieldErrors})
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", req.RoomID)
	created, err := h.meetings.CreateMeeting(r.Context(), application.CreateMeetingParams{
		Organizer: identity,
		Input:     input,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "meeting creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("meeting_id", created.Meeting.ID).InfoContext(r.Context(), "meeting created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toCreateMeetingResponse(created))
}

// List handles GET /api/meetings for the calling identity.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.meetings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	q := r.URL.Query()

	var window *booking.TimeRange
	if q.Get("start") != "" || q.Get("end") != "" {
		fieldErrors := map[string]string{}
		rng := parseRange(q, h.loc, fieldErrors)
		if len(fieldErrors) > 0 {
			h.responder.handleServiceError(r.Context(), w, &application.ValidationError{FieldErrors: fieldErrors})
			return
		}
		window = &rng
	}

	meetings, err := h.meetings.ListMeetingsForUser(r.Context(), identity, window)
	if err != nil {
		h.log(r.Context(), "List").WarnContext(r.Context(), "meeting list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: toMeetingDTOs(meetings)})
}

// Calendar handles GET /api/meetings/calendar, the organization-wide feed of
// scheduled meetings between start and end.
func (h *MeetingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.meetings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	fieldErrors := map[string]string{}
	rng := parseRange(r.URL.Query(), h.loc, fieldErrors)
	if len(fieldErrors) > 0 {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{FieldErrors: fieldErrors})
		return
	}

	events, err := h.meetings.ListCalendar(r.Context(), identity, rng)
	if err != nil {
		h.log(r.Context(), "Calendar").WarnContext(r.Context(), "calendar listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, calendarResponse{Events: toCalendarEventDTOs(events)})
}

// Get handles GET /api/meetings/{id}. Only the organizer and attendees may
// read a meeting.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.meetings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID := strings.TrimSpace(chi.URLParam(r, "id"))
	if meetingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}
	identity, _ := IdentityFromContext(r.Context())

	meeting, err := h.meetings.GetMeeting(r.Context(), meetingID)
	if err == nil && !participates(meeting, identity) {
		err = application.ErrUnauthorized
	}
	if err != nil {
		h.log(r.Context(), "Get", "meeting_id", meetingID).WarnContext(r.Context(), "meeting lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

// Reschedule handles PUT /api/meetings/{id}.
func (h *MeetingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.meetings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID := strings.TrimSpace(chi.URLParam(r, "id"))
	if meetingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}
	identity, _ := IdentityFromContext(r.Context())

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Reschedule", "meeting_id", meetingID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reschedule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	fieldErrors := map[string]string{}
	start := req.Start.resolve("start", h.loc, fieldErrors)
	end := req.End.resolve("end", h.loc, fieldErrors)
	if len(fieldErrors) > 0 {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{FieldErrors: fieldErrors})
		return
	}

	logger := h.log(r.Context(), "Reschedule", "meeting_id", meetingID)
	meeting, err := h.meetings.RescheduleMeeting(r.Context(), application.RescheduleMeetingParams{
		Principal: identity,
		MeetingID: meetingID,
		RoomID:    req.RoomID,
		Start:     start,
		End:       end,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "meeting reschedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "meeting rescheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

// Cancel handles DELETE /api/meetings/{id}.
func (h *MeetingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.meetings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID := strings.TrimSpace(chi.URLParam(r, "id"))
	if meetingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}
	identity, _ := IdentityFromContext(r.Context())

	logger := h.log(r.Context(), "Cancel", "meeting_id", meetingID)
	if _, err := h.meetings.CancelMeeting(r.Context(), identity, meetingID); err != nil {
		logger.WarnContext(r.Context(), "meeting cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "meeting cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func participates(meeting booking.Meeting, identity booking.Identity) bool {
	if identity.ID != "" && meeting.Organizer.ID == identity.ID {
		return true
	}
	if identity.Email == "" {
		return false
	}
	if meeting.Organizer.Email == identity.Email {
		return true
	}
	_, ok := meeting.Attendee(identity.Email)
	return ok
}

func parseCapacity(q url.Values, fieldErrors map[string]string) int {
	raw := strings.TrimSpace(q.Get("capacity"))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		fieldErrors["capacity"] = "capacity must be a non-negative integer"
		return 0
	}
	return n
}

type meetingRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	RoomID      string            `json:"room_id"`
	Start       timestamp         `json:"start"`
	End         timestamp         `json:"end"`
	Attendees   []attendeeRequest `json:"attendees"`
}

type attendeeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (r meetingRequest) toInput(loc *time.Location, fieldErrors map[string]string) application.MeetingInput {
	attendees := make([]application.AttendeeInput, 0, len(r.Attendees))
	for _, a := range r.Attendees {
		attendees = append(attendees, application.AttendeeInput{Email: a.Email, Name: a.Name})
	}
	return application.MeetingInput{
		Title:       r.Title,
		Description: r.Description,
		RoomID:      strings.TrimSpace(r.RoomID),
		Start:       r.Start.resolve("start", loc, fieldErrors),
		End:         r.End.resolve("end", loc, fieldErrors),
		Attendees:   attendees,
	}
}

type rescheduleRequest struct {
	RoomID string    `json:"room_id"`
	Start  timestamp `json:"start"`
	End    timestamp `json:"end"`
}

type meetingResponse struct {
	Meeting meetingDTO `json:"meeting"`
}

type listMeetingsResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type calendarResponse struct {
	Events []calendarEventDTO `json:"events"`
}

type createMeetingResponse struct {
	Meeting     meetingDTO      `json:"meeting"`
	Invitations []invitationDTO `json:"invitations"`
}

type availabilityResponse struct {
	Available      bool               `json:"available"`
	Conflict       *conflictDTO       `json:"conflict,omitempty"`
	AvailableRooms []suggestedRoomDTO `json:"available_rooms"`
}

type meetingDTO struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	RoomID      string        `json:"room_id"`
	Start       string        `json:"start"`
	End         string        `json:"end"`
	Organizer   identityDTO   `json:"organizer"`
	Attendees   []attendeeDTO `json:"attendees"`
	Status      string        `json:"status"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
}

type identityDTO struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

type attendeeDTO struct {
	Email       string  `json:"email"`
	Name        string  `json:"name,omitempty"`
	Status      string  `json:"status"`
	RespondedAt *string `json:"responded_at,omitempty"`
}

type calendarEventDTO struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Start         string `json:"start"`
	End           string `json:"end"`
	RoomID        string `json:"room_id"`
	RoomName      string `json:"room_name"`
	RoomColor     string `json:"room_color"`
	OrganizerName string `json:"organizer_name"`
	IsOwnMeeting  bool   `json:"is_own_meeting"`
}

type invitationDTO struct {
	Email     string `json:"email"`
	Link      string `json:"link"`
	ExpiresAt string `json:"expires_at"`
}

type conflictDTO struct {
	MeetingID string `json:"meeting_id"`
	Title     string `json:"title"`
	Organizer string `json:"organizer"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func toMeetingDTO(meeting booking.Meeting) meetingDTO {
	attendees := make([]attendeeDTO, 0, len(meeting.Attendees))
	for _, a := range meeting.Attendees {
		dto := attendeeDTO{Email: a.Email, Name: a.Name, Status: string(a.Status)}
		if a.RespondedAt != nil {
			formatted := formatTime(*a.RespondedAt)
			dto.RespondedAt = &formatted
		}
		attendees = append(attendees, dto)
	}
	return meetingDTO{
		ID:          meeting.ID,
		Title:       meeting.Title,
		Description: meeting.Description,
		RoomID:      meeting.RoomID,
		Start:       formatTime(meeting.Range.Start),
		End:         formatTime(meeting.Range.End),
		Organizer: identityDTO{
			ID:    meeting.Organizer.ID,
			Email: meeting.Organizer.Email,
			Name:  meeting.Organizer.Name,
		},
		Attendees: attendees,
		Status:    string(meeting.Status),
		CreatedAt: formatTime(meeting.CreatedAt),
		UpdatedAt: formatTime(meeting.UpdatedAt),
	}
}

func toMeetingDTOs(meetings []booking.Meeting) []meetingDTO {
	out := make([]meetingDTO, 0, len(meetings))
	for _, meeting := range meetings {
		out = append(out, toMeetingDTO(meeting))
	}
	return out
}

func toCalendarEventDTOs(events []application.CalendarEvent) []calendarEventDTO {
	out := make([]calendarEventDTO, 0, len(events))
	for _, event := range events {
		organizer := event.Meeting.Organizer.Name
		if organizer == "" {
			organizer = event.Meeting.Organizer.Email
		}
		out = append(out, calendarEventDTO{
			ID:            event.Meeting.ID,
			Title:         event.Meeting.Title,
			Start:         formatTime(event.Meeting.Range.Start),
			End:           formatTime(event.Meeting.Range.End),
			RoomID:        event.Meeting.RoomID,
			RoomName:      event.RoomName,
			RoomColor:     event.RoomColor,
			OrganizerName: organizer,
			IsOwnMeeting:  event.Own,
		})
	}
	return out
}

func toCreateMeetingResponse(created application.CreatedMeeting) createMeetingResponse {
	invitations := make([]invitationDTO, 0, len(created.Invitations))
	for _, inv := range created.Invitations {
		invitations = append(invitations, invitationDTO{
			Email:     inv.Email,
			Link:      inv.Link,
			ExpiresAt: formatTime(inv.ExpiresAt),
		})
	}
	return createMeetingResponse{Meeting: toMeetingDTO(created.Meeting), Invitations: invitations}
}

func toConflictDTO(summary booking.ConflictSummary) conflictDTO {
	return conflictDTO{
		MeetingID: summary.MeetingID,
		Title:     summary.Title,
		Organizer: summary.OrganizerName,
		Start:     formatTime(summary.Range.Start),
		End:       formatTime(summary.Range.End),
	}
}

func toAvailabilityResponse(result booking.AvailabilityResult) availabilityResponse {
	resp := availabilityResponse{Available: result.Available, AvailableRooms: toSuggestedRoomDTOs(result.Suggestions)}
	if result.Conflict != nil {
		conflict := toConflictDTO(*result.Conflict)
		resp.Conflict = &conflict
	}
	return resp
}
