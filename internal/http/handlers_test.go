package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/testfixtures"
)

type testServer struct {
	stack   *testfixtures.Stack
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerIn(t, time.UTC)
}

// newTestServerIn runs the API with loc as the organizational timezone.
func newTestServerIn(t *testing.T, loc *time.Location) *testServer {
	t.Helper()
	stack := testfixtures.NewStack(t, testfixtures.WithLocation(loc))
	handler := NewRouter(RouterConfig{
		Meetings: NewMeetingHandler(MeetingHandlerConfig{
			Meetings:     stack.Meetings,
			Availability: stack.Availability,
			Location:     loc,
			Logger:       stack.Logger,
		}),
		Rooms: NewRoomHandler(RoomHandlerConfig{
			Rooms:        stack.Rooms,
			Availability: stack.Availability,
			Schedules:    stack.Meetings,
			Location:     loc,
			Now:          stack.Clock.Now,
			Logger:       stack.Logger,
		}),
		Confirmations: NewConfirmationHandler(stack.Responses, stack.Logger),
		Logger:        stack.Logger,
	})
	return &testServer{stack: stack, handler: handler}
}

// do sends a request as identity; a zero identity sends no identity headers.
func (s *testServer) do(t *testing.T, method, target string, body any, identity booking.Identity) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if identity.ID != "" {
		req.Header.Set(HeaderUserID, identity.ID)
		req.Header.Set(HeaderUserEmail, identity.Email)
		req.Header.Set(HeaderUserName, identity.Name)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func rangeQuery(start, end time.Time) string {
	return "start=" + url.QueryEscape(start.Format(time.RFC3339)) + "&end=" + url.QueryEscape(end.Format(time.RFC3339))
}

var (
	organizer = testfixtures.Organizer
	alice     = booking.Identity{ID: "user-2", Email: "alice@example.com", Name: "Alice"}
	stranger  = booking.Identity{ID: "user-3", Email: "mallory@example.com"}
)

func TestHealthz(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/healthz", nil, booking.Identity{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMeetingHandlers(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without identity", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodGet, "/api/meetings", nil, booking.Identity{})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("creates a meeting and returns invitation links", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodPost, "/api/meetings", meetingRequest{
			Title:     "Planning",
			RoomID:    "alpha",
			Start:     timestampOf(testfixtures.At(9, 0)),
			End:       timestampOf(testfixtures.At(10, 0)),
			Attendees: []attendeeRequest{{Email: "alice@example.com", Name: "Alice"}},
		}, organizer)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		resp := decode[createMeetingResponse](t, rec)
		if resp.Meeting.ID != "meeting-1" || resp.Meeting.Status != "scheduled" {
			t.Fatalf("unexpected meeting %+v", resp.Meeting)
		}
		if len(resp.Invitations) != 1 || !strings.HasPrefix(resp.Invitations[0].Link, testfixtures.LinkBase) {
			t.Fatalf("unexpected invitations %+v", resp.Invitations)
		}
	})

	t.Run("overlapping booking returns 409 with suggestions", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)
		first := srv.stack.Book(t, "alpha", testfixtures.At(9, 0), testfixtures.At(10, 0))

		rec := srv.do(t, http.MethodPost, "/api/meetings", meetingRequest{
			Title:  "Clash",
			RoomID: "alpha",
			Start:  timestampOf(testfixtures.At(9, 30)),
			End:    timestampOf(testfixtures.At(10, 30)),
		}, organizer)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}

		resp := decode[slotTakenResponse](t, rec)
		if resp.Conflict.MeetingID != first.Meeting.ID || resp.Conflict.Organizer != "Owner" {
			t.Fatalf("unexpected conflict %+v", resp.Conflict)
		}
		if resp.Message == "" {
			t.Fatalf("expected a message")
		}
		if len(resp.AvailableRooms) != 2 || resp.AvailableRooms[0].ID != "gamma" || resp.AvailableRooms[1].ID != "beta" {
			t.Fatalf("expected gamma then beta, got %+v", resp.AvailableRooms)
		}
	})

	t.Run("validation and range errors are 422", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		rec := srv.do(t, http.MethodPost, "/api/meetings", meetingRequest{
			RoomID: "alpha",
			Start:  timestampOf(testfixtures.At(9, 0)),
			End:    timestampOf(testfixtures.At(10, 0)),
		}, organizer)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if resp := decode[errorResponse](t, rec); resp.Errors["title"] == "" {
			t.Fatalf("expected title error, got %+v", resp)
		}

		rec = srv.do(t, http.MethodPost, "/api/meetings", meetingRequest{
			Title:  "Backwards",
			RoomID: "alpha",
			Start:  timestampOf(testfixtures.At(10, 0)),
			End:    timestampOf(testfixtures.At(9, 0)),
		}, organizer)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for inverted range, got %d", rec.Code)
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/meetings", strings.NewReader("{"))
		req.Header.Set(HeaderUserID, organizer.ID)
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("only participants can read a meeting", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)
		created := srv.stack.Book(t, "alpha", testfixtures.At(9, 0), testfixtures.At(10, 0), alice.Email)
		path := "/api/meetings/" + created.Meeting.ID

		if rec := srv.do(t, http.MethodGet, path, nil, alice); rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for attendee, got %d", rec.Code)
		}
		if rec := srv.do(t, http.MethodGet, path, nil, stranger); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for stranger, got %d", rec.Code)
		}
		if rec := srv.do(t, http.MethodGet, "/api/meetings/missing", nil, organizer); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("lists meetings for the caller", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)
		srv.stack.Book(t, "alpha", testfixtures.At(9, 0), testfixtures.At(10, 0), alice.Email)
		srv.stack.Book(t, "beta", testfixtures.At(9, 0), testfixtures.At(10, 0))

		rec := srv.do(t, http.MethodGet, "/api/meetings", nil, alice)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resp := decode[listMeetingsResponse](t, rec); len(resp.Meetings) != 1 {
			t.Fatalf("expected 1 meeting for alice, got %d", len(resp.Meetings))
		}

		rec = srv.do(t, http.MethodGet, "/api/meetings?"+rangeQuery(testfixtures.At(9, 30), testfixtures.At(11, 0)), nil, organizer)
		if resp := decode[listMeetingsResponse](t, rec); len(resp.Meetings) != 2 {
			t.Fatalf("expected 2 meetings for organizer, got %d", len(resp.Meetings))
		}

		rec = srv.do(t, http.MethodGet, "/api/meetings?start=yesterday", nil, organizer)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for bad window, got %d", rec.Code)
		}
	})

	t.Run("reschedule and cancel", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t)
		created := srv.stack.Book(t, "alpha", testfixtures.At(9, 0), testfixtures.At(10, 0))
		srv.stack.Book(t, "beta", testfixtures.At(11, 0), testfixtures.At(12, 0))
		path := "/api/meetings/" + created.Meeting.ID

		rec := srv.do(t, http.MethodPut, path, rescheduleRequest{
			RoomID: "beta",
			Start:  timestampOf(testfixtures.At(11, 30)),
			End:    timestampOf(testfixtures.At(12, 30)),
		}, organizer)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}

		rec = srv.do(t, http.MethodPut, path, rescheduleRequest{
			Start: timestampOf(testfixtures.At(13, 0)),
			End:   timestampOf(testfixtures.At(14, 0)),
		}, organizer)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if resp := decode[meetingResponse](t, rec); resp.Meeting.Start != testfixtures.At(13, 0).Format(time.RFC3339) {
			t.Fatalf("unexpected start %s", resp.Meeting.Start)
		}

		if rec := srv.do(t, http.MethodDelete, path, nil, stranger); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if rec := srv.do(t, http.MethodDelete, path, nil, organizer); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})
}

func TestLocalTimestampsUseOrganizationTimezone(t *testing.T) {
	t.Parallel()
	jst := time.FixedZone("JST", 9*60*60)
	srv := newTestServerIn(t, jst)
	// 09:00-10:00 in Tokyo.
	srv.stack.Book(t, "alpha", testfixtures.At(0, 0), testfixtures.At(1, 0))

	rec := srv.do(t, http.MethodGet, "/api/meetings/check-availability?room_id=alpha&start=2024-03-14T09:30:00&end=2024-03-14T10:30", nil, organizer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decode[availabilityResponse](t, rec); resp.Available {
		t.Fatalf("expected local 09:30 to collide with the Tokyo morning booking")
	}

	rec = srv.do(t, http.MethodGet, "/api/meetings/check-availability?room_id=alpha&"+rangeQuery(testfixtures.At(1, 0), testfixtures.At(2, 0)), nil, organizer)
	if resp := decode[availabilityResponse](t, rec); !resp.Available {
		t.Fatalf("expected RFC 3339 window after the booking to be free")
	}

	rec = srv.do(t, http.MethodPost, "/api/meetings", map[string]any{
		"title":   "Local",
		"room_id": "alpha",
		"start":   "2024-03-14T11:00:00",
		"end":     "2024-03-14T12:00",
	}, organizer)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[createMeetingResponse](t, rec)
	if start, _ := time.Parse(time.RFC3339, created.Meeting.Start); !start.Equal(testfixtures.At(2, 0)) {
		t.Fatalf("expected local 11:00 to be 02:00 UTC, got %s", created.Meeting.Start)
	}

	path := "/api/meetings/" + created.Meeting.ID
	rec = srv.do(t, http.MethodPut, path, map[string]any{
		"start": "2024-03-14T15:00:00.000",
		"end":   testfixtures.At(7, 0).Format(time.RFC3339),
	}, organizer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	moved := decode[meetingResponse](t, rec)
	if start, _ := time.Parse(time.RFC3339, moved.Meeting.Start); !start.Equal(testfixtures.At(6, 0)) {
		t.Fatalf("expected local 15:00 to be 06:00 UTC, got %s", moved.Meeting.Start)
	}

	rec = srv.do(t, http.MethodPut, path, map[string]any{"start": "14/03/2024 15h", "end": "2024-03-14T16:00"}, organizer)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if resp := decode[errorResponse](t, rec); resp.Errors["start"] == "" || resp.Errors["end"] != "" {
		t.Fatalf("expected only a start error, got %+v", resp.Errors)
	}
}

func TestCalendarFeed(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	mine := srv.stack.Book(t, "alpha", testfixtures.At(9, 0), testfixtures.At(10, 0))

	rec := srv.do(t, http.MethodPost, "/api/meetings", meetingRequest{
		Title:  "Alice sync",
		RoomID: "beta",
		Start:  timestampOf(testfixtures.At(8, 0)),
		End:    timestampOf(testfixtures.At(8, 30)),
	}, alice)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	theirs := decode[createMeetingResponse](t, rec)

	rec = srv.do(t, http.MethodGet, "/api/meetings/calendar?"+rangeQuery(testfixtures.At(0, 0), testfixtures.At(24, 0)), nil, organizer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[calendarResponse](t, rec)
	if len(resp.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(resp.Events))
	}
	first, second := resp.Events[0], resp.Events[1]
	if first.ID != theirs.Meeting.ID || first.IsOwnMeeting || first.RoomName != "Beta" || first.OrganizerName != "Alice" {
		t.Fatalf("unexpected first event %+v", first)
	}
	if second.ID != mine.Meeting.ID || !second.IsOwnMeeting || second.RoomColor == "" {
		t.Fatalf("unexpected second event %+v", second)
	}

	if rec := srv.do(t, http.MethodGet, "/api/meetings/calendar", nil, organizer); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without a window, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, "/api/meetings/calendar?"+rangeQuery(testfixtures.At(0, 0), testfixtures.At(24, 0)), nil, booking.Identity{}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestCheckAvailability(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	created := srv.stack.Book(t, "alpha", testfixtures.At(9, 0), testfixtures.At(10, 0))
	busy := rangeQuery(testfixtures.At(9, 30), testfixtures.At(10, 30))

	rec := srv.do(t, http.MethodGet, "/api/meetings/check-availability?room_id=alpha&"+busy, nil, organizer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[availabilityResponse](t, rec)
	if resp.Available || resp.Conflict == nil || resp.Conflict.MeetingID != created.Meeting.ID {
		t.Fatalf("expected conflict with %s, got %+v", created.Meeting.ID, resp)
	}

	rec = srv.do(t, http.MethodGet, "/api/meetings/check-availability?room_id=alpha&meeting_id="+created.Meeting.ID+"&"+busy, nil, organizer)
	if resp := decode[availabilityResponse](t, rec); !resp.Available {
		t.Fatalf("expected the meeting itself to be ignored")
	}

	rec = srv.do(t, http.MethodGet, "/api/meetings/check-availability?room_id=alpha&start=now", nil, organizer)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if resp := decode[errorResponse](t, rec); resp.Errors["start"] == "" || resp.Errors["end"] == "" {
		t.Fatalf("expected start and end errors, got %+v", resp.Errors)
	}

	rec = srv.do(t, http.MethodGet, "/api/meetings/check-availability?room_id=nowhere&"+busy, nil, organizer)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRoomHandlers(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	srv.stack.Book(t, "alpha", testfixtures.At(9, 0), testfixtures.At(10, 0))
	srv.stack.Book(t, "alpha", testfixtures.At(30, 0), testfixtures.At(31, 0))

	t.Run("list and get", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/rooms", nil, organizer)
		if resp := decode[listRoomsResponse](t, rec); len(resp.Rooms) != 5 || resp.Rooms[0].ID != "alpha" {
			t.Fatalf("unexpected rooms %+v", resp.Rooms)
		}

		rec = srv.do(t, http.MethodGet, "/api/rooms/alpha", nil, organizer)
		if resp := decode[roomResponse](t, rec); resp.Room.Name != "Alpha" || len(resp.Room.Resources) != 1 {
			t.Fatalf("unexpected room %+v", resp.Room)
		}

		if rec := srv.do(t, http.MethodGet, "/api/rooms/nowhere", nil, organizer); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("available rooms", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/rooms/available?capacity=5&"+rangeQuery(testfixtures.At(9, 0), testfixtures.At(9, 30)), nil, organizer)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decode[listRoomsResponse](t, rec)
		got := make([]string, 0, len(resp.Rooms))
		for _, room := range resp.Rooms {
			got = append(got, room.ID)
		}
		if strings.Join(got, ",") != "gamma,beta" {
			t.Fatalf("expected gamma,beta, got %v", got)
		}
	})

	t.Run("schedule for a day", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/rooms/alpha/schedule?date=2024-03-14", nil, organizer)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decode[roomScheduleResponse](t, rec)
		if resp.Date != "2024-03-14" || len(resp.Meetings) != 1 {
			t.Fatalf("expected one meeting on 2024-03-14, got %+v", resp)
		}

		rec = srv.do(t, http.MethodGet, "/api/rooms/alpha/schedule?date=14/03/2024", nil, organizer)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("schedule as iCalendar", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/rooms/alpha/schedule.ics?date=2024-03-14", nil, organizer)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
			t.Fatalf("unexpected content type %q", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, ".ics") {
			t.Fatalf("unexpected content disposition %q", cd)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "BEGIN:VCALENDAR") || strings.Count(body, "BEGIN:VEVENT") != 1 {
			t.Fatalf("unexpected calendar body:\n%s", body)
		}
	})
}

func TestConfirmationHandlers(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	created := srv.stack.Book(t, "alpha", testfixtures.At(9, 0), testfixtures.At(10, 0), alice.Email)
	token := url.QueryEscape(created.Invitations[0].Token)

	t.Run("info is public and read only", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/api/meeting-confirmation/respond-info?token="+token, nil, booking.Identity{})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		resp := decode[meetingSummaryDTO](t, rec)
		if resp.RoomName != "Alpha" || resp.Date != "2024-03-14" || resp.StartTime != "09:00" || resp.Status != "pending" {
			t.Fatalf("unexpected summary %+v", resp)
		}
	})

	t.Run("bad tokens share one message", func(t *testing.T) {
		for _, target := range []string{
			"/api/meeting-confirmation/respond-info?token=garbage",
			"/api/meeting-confirmation/respond-info",
			"/api/meeting-confirmation/respond?response=accept&token=garbage",
		} {
			method := http.MethodGet
			if strings.Contains(target, "/respond?") {
				method = http.MethodPost
			}
			rec := srv.do(t, method, target, nil, booking.Identity{})
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("%s: expected 400, got %d", target, rec.Code)
			}
			if resp := decode[errorResponse](t, rec); resp.Message != tokenInvalidMessage {
				t.Fatalf("%s: unexpected message %q", target, resp.Message)
			}
		}
	})

	t.Run("first answer wins", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/meeting-confirmation/respond?response=accept&token="+token, nil, booking.Identity{})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if resp := decode[responseResultDTO](t, rec); resp.Status != "accepted" || resp.Replayed {
			t.Fatalf("unexpected result %+v", resp)
		}

		rec = srv.do(t, http.MethodPost, "/api/meeting-confirmation/respond?response=decline&token="+token, nil, booking.Identity{})
		if resp := decode[responseResultDTO](t, rec); resp.Status != "accepted" || !resp.Replayed {
			t.Fatalf("expected replayed acceptance, got %+v", resp)
		}
	})

	t.Run("unknown decision is 422", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/meeting-confirmation/respond?response=maybe&token="+token, nil, booking.Identity{})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}
