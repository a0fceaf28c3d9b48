// Package rooms loads the room catalog from a YAML file.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/room-booking/internal/booking"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Catalog is the file format:
//
//	rooms:
//	  - id: sala-02
//	    name: Sala 02
//	    capacity: 4
//	    color: "#3B82F6"
//	    resources: [TV]
type Catalog struct {
	Rooms []Entry `yaml:"rooms"`
}

// Entry is one room in the catalog. Active defaults to true.
type Entry struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Capacity  int      `yaml:"capacity"`
	Color     string   `yaml:"color"`
	Resources []string `yaml:"resources"`
	Active    *bool    `yaml:"active"`
}

// Seeder receives decoded rooms.
type Seeder interface {
	UpsertRoom(ctx context.Context, room booking.Room) error
}

// LoadFile reads and validates the catalog at path.
func LoadFile(path string) ([]booking.Room, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rooms: open catalog: %w", err)
	}
	defer f.Close()

	rooms, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("rooms: %s: %w", path, err)
	}
	return rooms, nil
}

// Decode parses a catalog. Every problem is reported, not just the first.
func Decode(r io.Reader) ([]booking.Room, error) {
	var catalog Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	var (
		rooms    = make([]booking.Room, 0, len(catalog.Rooms))
		problems []string
		seen     = make(map[string]struct{}, len(catalog.Rooms))
	)
	for i, entry := range catalog.Rooms {
		room, errs := entry.room()
		if _, dup := seen[room.ID]; dup && room.ID != "" {
			errs = append(errs, "duplicate id")
		}
		if len(errs) > 0 {
			problems = append(problems, fmt.Sprintf("room %d (%q): %s", i, entry.ID, strings.Join(errs, ", ")))
			continue
		}
		seen[room.ID] = struct{}{}
		rooms = append(rooms, room)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid catalog: %s", strings.Join(problems, "; "))
	}
	return rooms, nil
}

// Seed upserts every room into seeder.
func Seed(ctx context.Context, seeder Seeder, rooms []booking.Room) error {
	for _, room := range rooms {
		if err := seeder.UpsertRoom(ctx, room); err != nil {
			return fmt.Errorf("rooms: seed %s: %w", room.ID, err)
		}
	}
	return nil
}

func (e Entry) room() (booking.Room, []string) {
	var errs []string

	room := booking.Room{
		ID:        strings.TrimSpace(e.ID),
		Name:      strings.TrimSpace(e.Name),
		Capacity:  e.Capacity,
		Color:     strings.TrimSpace(e.Color),
		Resources: append([]string(nil), e.Resources...),
		Active:    e.Active == nil || *e.Active,
	}
	if room.ID == "" {
		errs = append(errs, "id is required")
	}
	if room.Name == "" {
		room.Name = room.ID
	}
	if room.Capacity <= 0 {
		errs = append(errs, "capacity must be positive")
	}
	if room.Color == "" {
		room.Color = booking.DefaultRoomColor
	} else if !colorPattern.MatchString(room.Color) {
		errs = append(errs, "color must be #RRGGBB")
	}
	if room.Resources == nil {
		room.Resources = []string{}
	}
	return room, errs
}
