package testfixtures

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/invitation"
	"github.com/example/room-booking/internal/notify"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
)

// TokenSecret signs invitation links issued by a Stack.
const TokenSecret = "fixture-secret"

// LinkBase prefixes every invitation link a Stack issues.
const LinkBase = "https://rooms.example.com/respond?token="

// Stack is a fully wired set of application services over one store.
type Stack struct {
	Store        persistence.Store
	Clock        *Clock
	IDs          *IDGenerator
	Tokens       *invitation.Service
	Dispatcher   *RecordingDispatcher
	Rooms        *application.RoomService
	Availability *application.AvailabilityService
	Meetings     *application.MeetingService
	Responses    *application.ResponseService
	Logger       *slog.Logger
}

// StackOption configures NewStack.
type StackOption func(*stackConfig)

type stackConfig struct {
	store    persistence.Store
	clock    *Clock
	location *time.Location
	rooms    []booking.Room
}

// WithStore runs the stack over store instead of a fresh memory store.
func WithStore(store persistence.Store) StackOption {
	return func(c *stackConfig) {
		c.store = store
	}
}

func WithClock(clock *Clock) StackOption {
	return func(c *stackConfig) {
		c.clock = clock
	}
}

// WithLocation sets the organizational timezone.
func WithLocation(loc *time.Location) StackOption {
	return func(c *stackConfig) {
		c.location = loc
	}
}

// WithRooms replaces StandardRooms as the seeded directory.
func WithRooms(rooms ...booking.Room) StackOption {
	return func(c *stackConfig) {
		c.rooms = rooms
	}
}

// NewStack seeds the rooms and wires every service the API needs.
func NewStack(tb testing.TB, opts ...StackOption) *Stack {
	tb.Helper()

	cfg := stackConfig{location: time.UTC}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		cfg.store = memory.New()
	}
	if cfg.clock == nil {
		cfg.clock = NewClock(time.Time{})
	}
	if cfg.rooms == nil {
		cfg.rooms = StandardRooms()
	}
	SeedRooms(tb, cfg.store, cfg.rooms...)

	tokens, err := invitation.NewService(invitation.Config{Secret: TokenSecret}, cfg.clock.NowFunc())
	if err != nil {
		tb.Fatalf("invitation.NewService failed: %v", err)
	}

	s := &Stack{
		Store:      cfg.store,
		Clock:      cfg.clock,
		IDs:        NewIDGenerator("meeting"),
		Tokens:     tokens,
		Dispatcher: &RecordingDispatcher{},
		Logger:     QuietLogger(),
	}
	s.Rooms = application.NewRoomServiceWithLogger(cfg.store, cfg.clock.NowFunc(), time.Nanosecond, s.Logger)
	s.Availability = application.NewAvailabilityServiceWithLogger(s.Rooms, cfg.store, application.DefaultMaxSuggestions, s.Logger)
	s.Meetings = application.NewMeetingService(application.MeetingServiceDeps{
		Meetings:    cfg.store,
		Rooms:       s.Rooms,
		Suggester:   s.Availability,
		Tokens:      tokens,
		Dispatcher:  s.Dispatcher,
		Links:       func(token string) string { return LinkBase + token },
		Location:    cfg.location,
		IDGenerator: s.IDs.NextFunc(),
		Now:         cfg.clock.NowFunc(),
		Logger:      s.Logger,
	})
	s.Responses = application.NewResponseServiceWithLogger(tokens, cfg.store, s.Rooms, s.Dispatcher, cfg.location, cfg.clock.NowFunc(), s.Logger)
	return s
}

// Book creates a meeting as Organizer and fails the test on error.
func (s *Stack) Book(tb testing.TB, roomID string, start, end time.Time, attendees ...string) application.CreatedMeeting {
	tb.Helper()
	input := application.MeetingInput{Title: "Sync", RoomID: roomID, Start: start, End: end}
	for _, email := range attendees {
		input.Attendees = append(input.Attendees, application.AttendeeInput{Email: email})
	}
	created, err := s.Meetings.CreateMeeting(context.Background(), application.CreateMeetingParams{
		Organizer: Organizer,
		Input:     input,
	})
	if err != nil {
		tb.Fatalf("CreateMeeting(%s) failed: %v", roomID, err)
	}
	return created
}

// RecordingDispatcher keeps every event it is handed.
type RecordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *RecordingDispatcher) Dispatch(_ context.Context, event notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns the recorded events of kind, in dispatch order.
func (r *RecordingDispatcher) Events(kind notify.Kind) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
