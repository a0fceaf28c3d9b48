package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/calendar"
)

type roomDirectory interface {
	ListRooms(ctx context.Context) ([]booking.Room, error)
	GetRoom(ctx context.Context, id string) (booking.Room, error)
}

type roomScheduleService interface {
	ListMeetingsForRoom(ctx context.Context, roomID string, day time.Time) (booking.Room, booking.TimeRange, []booking.Meeting, error)
}

// RoomHandlerConfig wires the room endpoints. Location decides which calendar
// day a date parameter names.
type RoomHandlerConfig struct {
	Rooms        roomDirectory
	Availability availabilityService
	Schedules    roomScheduleService
	Location     *time.Location
	Now          func() time.Time
	Logger       *slog.Logger
}

type RoomHandler struct {
	rooms        roomDirectory
	availability availabilityService
	schedules    roomScheduleService
	loc          *time.Location
	now          func() time.Time
	responder    responder
	logger       *slog.Logger
}

func NewRoomHandler(cfg RoomHandlerConfig) *RoomHandler {
	base := defaultLogger(cfg.Logger)
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RoomHandler{
		rooms:        cfg.Rooms,
		availability: cfg.Availability,
		schedules:    cfg.Schedules,
		loc:          cfg.Location,
		now:          cfg.Now,
		responder:    newResponder(base),
		logger:       base,
	}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

// List handles GET /api/rooms.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "room list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rooms)).DebugContext(r.Context(), "rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

// Get handles GET /api/rooms/{id}.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID := strings.TrimSpace(chi.URLParam(r, "id"))
	if roomID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	room, err := h.rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		h.log(r.Context(), "Get", "room_id", roomID).WarnContext(r.Context(), "room lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

// Available handles GET /api/rooms/available.
func (h *RoomHandler) Available(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	fieldErrors := map[string]string{}
	rng := parseRange(q, h.loc, fieldErrors)
	capacity := parseCapacity(q, fieldErrors)
	if len(fieldErrors) > 0 {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{FieldErrors: fieldErrors})
		return
	}

	rooms, err := h.availability.AvailableRooms(r.Context(), rng, capacity)
	if err != nil {
		h.log(r.Context(), "Available").WarnContext(r.Context(), "available room search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

// Schedule handles GET /api/rooms/{id}/schedule.
func (h *RoomHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	room, day, meetings, ok := h.loadSchedule(w, r, "Schedule")
	if !ok {
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomScheduleResponse{
		Room:     toRoomDTO(room),
		Date:     day.Start.Format(dateLayout),
		Start:    formatTime(day.Start),
		End:      formatTime(day.End),
		Meetings: toMeetingDTOs(meetings),
	})
}

// ScheduleICS handles GET /api/rooms/{id}/schedule.ics.
func (h *RoomHandler) ScheduleICS(w http.ResponseWriter, r *http.Request) {
	room, day, meetings, ok := h.loadSchedule(w, r, "ScheduleICS")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := calendar.WriteRoomSchedule(&buf, room, day, meetings, h.now()); err != nil {
		h.log(r.Context(), "ScheduleICS", "room_id", room.ID).ErrorContext(r.Context(), "failed to render calendar", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, fmt.Errorf("render calendar: %w", err))
		return
	}

	w.Header().Set("Content-Type", calendar.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", calendar.Filename(room, day.Start)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.log(r.Context(), "ScheduleICS", "room_id", room.ID).WarnContext(r.Context(), "failed to write calendar", "error", err)
	}
}

const dateLayout = "2006-01-02"

func (h *RoomHandler) loadSchedule(w http.ResponseWriter, r *http.Request, operation string) (booking.Room, booking.TimeRange, []booking.Meeting, bool) {
	if h == nil || h.schedules == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return booking.Room{}, booking.TimeRange{}, nil, false
	}

	roomID := strings.TrimSpace(chi.URLParam(r, "id"))
	if roomID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return booking.Room{}, booking.TimeRange{}, nil, false
	}

	day := h.now().In(h.loc)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, h.loc)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
				FieldErrors: map[string]string{"date": "date must use YYYY-MM-DD"},
			})
			return booking.Room{}, booking.TimeRange{}, nil, false
		}
		day = parsed
	}

	room, dayRange, meetings, err := h.schedules.ListMeetingsForRoom(r.Context(), roomID, day)
	if err != nil {
		h.log(r.Context(), operation, "room_id", roomID).WarnContext(r.Context(), "room schedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return booking.Room{}, booking.TimeRange{}, nil, false
	}
	return room, dayRange, meetings, true
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomScheduleResponse struct {
	Room     roomDTO      `json:"room"`
	Date     string       `json:"date"`
	Start    string       `json:"start"`
	End      string       `json:"end"`
	Meetings []meetingDTO `json:"meetings"`
}

type roomDTO struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Capacity  int      `json:"capacity"`
	Color     string   `json:"color"`
	Resources []string `json:"resources"`
	Active    bool     `json:"active"`
}

type suggestedRoomDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Color    string `json:"color"`
}

func toRoomDTO(room booking.Room) roomDTO {
	resources := room.Resources
	if resources == nil {
		resources = []string{}
	}
	return roomDTO{
		ID:        room.ID,
		Name:      room.Name,
		Capacity:  room.Capacity,
		Color:     room.Color,
		Resources: resources,
		Active:    room.Active,
	}
}

func toRoomDTOs(rooms []booking.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}

func toSuggestedRoomDTO(room booking.Room) suggestedRoomDTO {
	return suggestedRoomDTO{ID: room.ID, Name: room.Name, Capacity: room.Capacity, Color: room.Color}
}

func toSuggestedRoomDTOs(rooms []booking.Room) []suggestedRoomDTO {
	out := make([]suggestedRoomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toSuggestedRoomDTO(room))
	}
	return out
}
