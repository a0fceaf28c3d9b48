package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultRequestTimeout bounds every request when RouterConfig leaves it unset.
const DefaultRequestTimeout = 15 * time.Second

type RouterConfig struct {
	Meetings       *MeetingHandler
	Rooms          *RoomHandler
	Confirmations  *ConfirmationHandler
	CORSOrigins    []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger(cfg.Logger))
	router.Use(middleware.Recoverer)
	router.Use(CORS(cfg.CORSOrigins))
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		newResponder(cfg.Logger).writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api", func(r chi.Router) {
		if cfg.Confirmations != nil {
			r.Route("/meeting-confirmation", func(r chi.Router) {
				r.Get("/respond-info", cfg.Confirmations.RespondInfo)
				r.Post("/respond", cfg.Confirmations.Respond)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(RequireIdentity(cfg.Logger))

			if cfg.Meetings != nil {
				r.Route("/meetings", func(r chi.Router) {
					r.Get("/check-availability", cfg.Meetings.CheckAvailability)
					r.Get("/calendar", cfg.Meetings.Calendar)
					r.Get("/", cfg.Meetings.List)
					r.Post("/", cfg.Meetings.Create)
					r.Get("/{id}", cfg.Meetings.Get)
					r.Put("/{id}", cfg.Meetings.Reschedule)
					r.Delete("/{id}", cfg.Meetings.Cancel)
				})
			}

			if cfg.Rooms != nil {
				r.Route("/rooms", func(r chi.Router) {
					r.Get("/", cfg.Rooms.List)
					r.Get("/available", cfg.Rooms.Available)
					r.Get("/{id}", cfg.Rooms.Get)
					r.Get("/{id}/schedule", cfg.Rooms.Schedule)
					r.Get("/{id}/schedule.ics", cfg.Rooms.ScheduleICS)
				})
			}
		})
	})

	return router
}
