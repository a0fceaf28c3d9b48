package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
)

type responseService interface {
	Respond(ctx context.Context, token string, decision application.Decision) (application.ResponseResult, error)
	MeetingSummaryForToken(ctx context.Context, token string) (application.MeetingSummary, error)
}

// ConfirmationHandler serves the public endpoints behind invitation links.
// The token is the only credential.
type ConfirmationHandler struct {
	responses responseService
	responder responder
	logger    *slog.Logger
}

func NewConfirmationHandler(responses responseService, logger *slog.Logger) *ConfirmationHandler {
	base := defaultLogger(logger)
	return &ConfirmationHandler{responses: responses, responder: newResponder(base), logger: base}
}

func (h *ConfirmationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ConfirmationHandler", operation, attrs...)
}

// RespondInfo handles GET /api/meeting-confirmation/respond-info.
func (h *ConfirmationHandler) RespondInfo(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.responses == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	summary, err := h.responses.MeetingSummaryForToken(r.Context(), token)
	if err != nil {
		h.log(r.Context(), "RespondInfo").WarnContext(r.Context(), "invitation lookup failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toMeetingSummaryDTO(summary))
}

// Respond handles POST /api/meeting-confirmation/respond. The token and the
// decision may come from the query string or a form body.
func (h *ConfirmationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.responses == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := strings.TrimSpace(r.FormValue("token"))
	decision, ok := application.ParseDecision(r.FormValue("response"))
	if !ok {
		decision = application.Decision(strings.TrimSpace(r.FormValue("response")))
	}

	result, err := h.responses.Respond(r.Context(), token, decision)
	if err != nil {
		h.log(r.Context(), "Respond").WarnContext(r.Context(), "invitation response failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toResponseResultDTO(result))
}

type meetingSummaryDTO struct {
	MeetingID     string `json:"meeting_id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Start         string `json:"start"`
	End           string `json:"end"`
	RoomName      string `json:"room_name"`
	OrganizerName string `json:"organizer_name"`
	AttendeeEmail string `json:"attendee_email"`
	Status        string `json:"status"`
	Cancelled     bool   `json:"cancelled"`
}

type responseResultDTO struct {
	Message     string  `json:"message"`
	MeetingID   string  `json:"meeting_id"`
	Email       string  `json:"email"`
	Status      string  `json:"status"`
	RespondedAt *string `json:"responded_at,omitempty"`
	Replayed    bool    `json:"replayed"`
}

func toMeetingSummaryDTO(summary application.MeetingSummary) meetingSummaryDTO {
	return meetingSummaryDTO{
		MeetingID:     summary.MeetingID,
		Title:         summary.Title,
		Description:   summary.Description,
		Date:          summary.Date,
		StartTime:     summary.StartTime,
		EndTime:       summary.EndTime,
		Start:         formatTime(summary.Start),
		End:           formatTime(summary.End),
		RoomName:      summary.RoomName,
		OrganizerName: summary.OrganizerName,
		AttendeeEmail: summary.AttendeeEmail,
		Status:        string(summary.Status),
		Cancelled:     summary.Cancelled,
	}
}

func toResponseResultDTO(result application.ResponseResult) responseResultDTO {
	dto := responseResultDTO{
		MeetingID: result.MeetingID,
		Email:     result.Email,
		Status:    string(result.Status),
		Replayed:  result.Replayed,
	}
	if result.RespondedAt != nil {
		formatted := formatTime(*result.RespondedAt)
		dto.RespondedAt = &formatted
	}
	dto.Message = "your response has been recorded"
	if result.Replayed {
		dto.Message = "you have already responded to this invitation"
	}
	return dto
}
