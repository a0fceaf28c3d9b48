package rooms

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/room-booking/internal/booking"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	input := `
rooms:
  - id: sala-02
    name: Sala 02
    capacity: 4
    color: "#3B82F6"
    resources: [TV]
  - id: showroom
    capacity: 20
    active: false
`
	rooms, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].Name != "Sala 02" || rooms[0].Capacity != 4 || !rooms[0].Active {
		t.Fatalf("unexpected first room: %+v", rooms[0])
	}
	if len(rooms[0].Resources) != 1 || rooms[0].Resources[0] != "TV" {
		t.Fatalf("expected TV resource, got %v", rooms[0].Resources)
	}
	if rooms[1].Name != "showroom" {
		t.Fatalf("expected name to default to id, got %q", rooms[1].Name)
	}
	if rooms[1].Color != booking.DefaultRoomColor {
		t.Fatalf("expected default color, got %q", rooms[1].Color)
	}
	if rooms[1].Active {
		t.Fatal("expected showroom to be inactive")
	}
}

func TestDecodeReportsEveryProblem(t *testing.T) {
	t.Parallel()

	input := `
rooms:
  - id: a
    capacity: 0
  - id: b
    capacity: 2
    color: blue
  - id: b
    capacity: 3
`
	_, err := Decode(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"capacity must be positive", "color must be #RRGGBB", "duplicate id"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	if _, err := Decode(strings.NewReader("rooms:\n  - id: a\n    capacity: 2\n    seats: 4\n")); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestDecodeEmpty(t *testing.T) {
	t.Parallel()

	rooms, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(rooms) != 0 {
		t.Fatalf("expected no rooms, got %d", len(rooms))
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rooms.yaml")
	if err := os.WriteFile(path, []byte("rooms:\n  - id: a\n    capacity: 2\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	rooms, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != "a" {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

type seederFunc func(ctx context.Context, room booking.Room) error

func (f seederFunc) UpsertRoom(ctx context.Context, room booking.Room) error { return f(ctx, room) }

func TestSeed(t *testing.T) {
	t.Parallel()

	var seeded []string
	err := Seed(context.Background(), seederFunc(func(_ context.Context, room booking.Room) error {
		seeded = append(seeded, room.ID)
		return nil
	}), []booking.Room{{ID: "a"}, {ID: "b"}})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if len(seeded) != 2 {
		t.Fatalf("expected 2 rooms seeded, got %v", seeded)
	}

	boom := errors.New("boom")
	err = Seed(context.Background(), seederFunc(func(context.Context, booking.Room) error { return boom }), []booking.Room{{ID: "a"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
