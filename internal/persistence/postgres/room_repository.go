package postgres

import (
	"context"
	"strings"

	"github.com/lib/pq"

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
	color := room.Color
	if color == "" {
		color = booking.DefaultRoomColor
	}

	const query = `
		INSERT INTO rooms (id, name, capacity, color, resources, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			capacity = EXCLUDED.capacity,
			color = EXCLUDED.color,
			resources = EXCLUDED.resources,
			active = EXCLUDED.active`

	if _, err := s.db.ExecContext(ctx, query,
		room.ID, room.Name, room.Capacity, color, pq.Array(resources), room.Active,
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
	const query = `SELECT id, name, capacity, color, resources, active FROM rooms WHERE id = $1`

	var room booking.Room
	err := s.retry.WithRetry(ctx, func() error {
		var err error
		room, err = scanRoom(s.db.QueryRowContext(ctx, query, id))
		return err
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
		rows, err := s.db.QueryContext(ctx, query)
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

func scanRoom(row rowScanner) (booking.Room, error) {
	var room booking.Room
	if err := row.Scan(&room.ID, &room.Name, &room.Capacity, &room.Color, pq.Array(&room.Resources), &room.Active); err != nil {
		return booking.Room{}, mapError(err)
	}
	if room.Resources == nil {
		room.Resources = []string{}
	}
	return room, nil
}
