package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
)

// UpsertRoom inserts a room or replaces the stored attributes.
func (s *Store) UpsertRoom(ctx context.Context, room booking.Room) error {
	if strings.TrimSpace(room.ID) == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	resources := room.Resources
	if resources == nil {
		resources = []string{}
	}
	encoded, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("sqlite: encode resources: %w", err)
	}
	color := room.Color
	if color == "" {
		color = booking.DefaultRoomColor
	}

	const query = `
		INSERT INTO rooms (id, name, capacity, color, resources, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			capacity = excluded.capacity,
			color = excluded.color,
			resources = excluded.resources,
			active = excluded.active`

	if _, err := s.pool.DB().ExecContext(ctx, query,
		room.ID, room.Name, room.Capacity, color, string(encoded), boolToInt(room.Active),
	); err != nil {
		return mapError(err)
	}
	return nil
}

// GetRoom retrieves a room by ID.
func (s *Store) GetRoom(ctx context.Context, id string) (booking.Room, error) {
	if id == "" {
		return booking.Room{}, persistence.ErrNotFound
	}

	const query = `SELECT id, name, capacity, color, resources, active FROM rooms WHERE id = ?`

	var room booking.Room
	err := s.retry.WithRetry(ctx, func() error {
		var scanErr error
		room, scanErr = scanRoom(s.pool.DB().QueryRowContext(ctx, query, id))
		return scanErr
	})
	if err != nil {
		return booking.Room{}, err
	}
	return room, nil
}

// ListRooms returns all rooms ordered by ID.
func (s *Store) ListRooms(ctx context.Context) ([]booking.Room, error) {
	const query = `SELECT id, name, capacity, color, resources, active FROM rooms ORDER BY id ASC`

	var rooms []booking.Room
	err := s.retry.WithRetry(ctx, func() error {
		rooms = nil
		rows, err := s.pool.DB().QueryContext(ctx, query)
		if err != nil {
			return mapError(err)
		}
		defer rows.Close()

		for rows.Next() {
			room, err := scanRoom(rows)
			if err != nil {
				return err
			}
			rooms = append(rooms, room)
		}
		return mapError(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (booking.Room, error) {
	var (
		room      booking.Room
		resources string
		active    int
	)
	if err := row.Scan(&room.ID, &room.Name, &room.Capacity, &room.Color, &resources, &active); err != nil {
		return booking.Room{}, mapError(err)
	}
	if err := json.Unmarshal([]byte(resources), &room.Resources); err != nil {
		return booking.Room{}, fmt.Errorf("sqlite: decode resources for room %s: %w", room.ID, err)
	}
	room.Active = active != 0
	return room, nil
}
