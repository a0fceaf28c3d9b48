package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/logging"
)

var (
	errBadRequestBody   = errors.New("request body is malformed")
	errMissingIdentity  = errors.New("authentication required")
	errInvalidMeetingID = errors.New("meeting id is required")
	errInvalidRoomID    = errors.New("room id is required")
)

// tokenInvalidMessage is the only message callers see for any bad link.
const tokenInvalidMessage = "invalid or expired link"

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		slotErr *application.SlotTakenError
		vErr    *application.ValidationError
	)
	switch {
	case errors.As(err, &slotErr):
		r.writeJSON(ctx, w, http.StatusConflict, toSlotTakenResponse(slotErr))
	case errors.Is(err, application.ErrSlotTaken):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "the room is already booked for that time"})
	case errors.Is(err, application.ErrTokenInvalid):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Message: tokenInvalidMessage})
	case errors.Is(err, application.ErrInvalidRange):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "invalid time range",
			Errors:  map[string]string{"end": "end must be after start"},
		})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "validation failed",
			Errors:  vErr.FieldErrors,
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{Message: "you are not allowed to perform this action"})
	case errors.Is(err, application.ErrAttendeeNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "you are not on the guest list for this meeting"})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "resource not found"})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type slotTakenResponse struct {
	Message        string             `json:"message"`
	Conflict       conflictDTO        `json:"conflict"`
	AvailableRooms []suggestedRoomDTO `json:"available_rooms"`
}

func toSlotTakenResponse(err *application.SlotTakenError) slotTakenResponse {
	return slotTakenResponse{
		Message:        err.Error(),
		Conflict:       toConflictDTO(err.Conflict),
		AvailableRooms: toSuggestedRoomDTOs(err.Suggestions),
	}
}
