package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/invitation"
	"github.com/example/room-booking/internal/notify"
	"github.com/example/room-booking/internal/persistence/memory"
)

var (
	testDay   = time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)
	organizer = booking.Identity{ID: "user-1", Email: "owner@example.com", Name: "Owner"}
)

func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs(prefix string) func() string {
	var n atomic.Uint64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (r *recordingDispatcher) Dispatch(_ context.Context, event notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingDispatcher) byKind(kind notify.Kind) []notify.Event {
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

type testEnv struct {
	store        *memory.Store
	clock        *fixedClock
	tokens       *invitation.Service
	dispatcher   *recordingDispatcher
	rooms        *RoomService
	availability *AvailabilityService
	meetings     *MeetingService
	responses    *ResponseService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:      memory.New(),
		clock:      &fixedClock{now: testDay.Add(-24 * time.Hour)},
		dispatcher: &recordingDispatcher{},
	}
	ctx := context.Background()
	for _, room := range []booking.Room{
		{ID: "alpha", Name: "Alpha", Capacity: 6, Active: true},
		{ID: "beta", Name: "Beta", Capacity: 10, Active: true},
		{ID: "gamma", Name: "Gamma", Capacity: 6, Active: true},
		{ID: "delta", Name: "Delta", Capacity: 4, Active: true},
		{ID: "closed", Name: "Closed", Capacity: 30, Active: false},
	} {
		if err := env.store.UpsertRoom(ctx, room); err != nil {
			t.Fatalf("UpsertRoom failed: %v", err)
		}
	}

	tokens, err := invitation.NewService(invitation.Config{Secret: "test-secret"}, env.clock.Now)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	env.tokens = tokens

	logger := quietLogger()
	env.rooms = NewRoomServiceWithLogger(env.store, env.clock.Now, time.Nanosecond, logger)
	env.availability = NewAvailabilityServiceWithLogger(env.rooms, env.store, 0, logger)
	env.meetings = NewMeetingService(MeetingServiceDeps{
		Meetings:    env.store,
		Rooms:       env.rooms,
		Suggester:   env.availability,
		Tokens:      tokens,
		Dispatcher:  env.dispatcher,
		Links:       func(token string) string { return "https://rooms.example.com/respond?token=" + token },
		IDGenerator: sequentialIDs("meeting"),
		Now:         env.clock.Now,
		Logger:      logger,
	})
	env.responses = NewResponseServiceWithLogger(tokens, env.store, env.rooms, env.dispatcher, time.UTC, env.clock.Now, logger)
	return env
}

func (env *testEnv) book(t *testing.T, roomID string, start, end time.Time, attendees ...string) CreatedMeeting {
	t.Helper()
	input := MeetingInput{Title: "Sync", RoomID: roomID, Start: start, End: end}
	for _, email := range attendees {
		input.Attendees = append(input.Attendees, AttendeeInput{Email: email})
	}
	created, err := env.meetings.CreateMeeting(context.Background(), CreateMeetingParams{Organizer: organizer, Input: input})
	if err != nil {
		t.Fatalf("CreateMeeting(%s %s-%s) failed: %v", roomID, start.Format("15:04"), end.Format("15:04"), err)
	}
	return created
}

func roomIDs(rooms []booking.Room) []string {
	ids := make([]string, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID
	}
	return ids
}
