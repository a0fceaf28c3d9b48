package testfixtures

import (
	"context"
	"strings"
	"testing"

	"github.com/example/room-booking/internal/notify"
)

func TestNewStackBooksAgainstStandardRooms(t *testing.T) {
	stack := NewStack(t)

	created := stack.Book(t, "alpha", At(9, 0), At(10, 0), "alice@example.com")
	if created.Meeting.ID != "meeting-1" {
		t.Fatalf("expected meeting-1, got %q", created.Meeting.ID)
	}
	if len(created.Invitations) != 1 || !strings.HasPrefix(created.Invitations[0].Link, LinkBase) {
		t.Fatalf("unexpected invitations %+v", created.Invitations)
	}
	if got := stack.Dispatcher.Events(notify.KindInvited); len(got) != 1 {
		t.Fatalf("expected 1 invited event, got %d", len(got))
	}
}

func TestNewStackHonoursRoomOverride(t *testing.T) {
	stack := NewStack(t, WithRooms(NewRoom(WithRoomID("solo"))))

	rooms, err := stack.Rooms.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != "solo" {
		t.Fatalf("expected only solo, got %+v", rooms)
	}
}
