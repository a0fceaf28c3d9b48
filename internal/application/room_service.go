package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
)

// RoomRepository captures the persistence operations needed by the room directory.
type RoomRepository interface {
	ListRooms(ctx context.Context) ([]booking.Room, error)
	GetRoom(ctx context.Context, id string) (booking.Room, error)
}

// RoomService is the read-only room directory.
type RoomService struct {
	rooms  RoomRepository
	cache  *roomCache
	logger *slog.Logger
}

// NewRoomService constructs a room directory over rooms.
func NewRoomService(rooms RoomRepository, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, now, 0, nil)
}

// NewRoomServiceWithLogger constructs a room directory whose listing is
// cached for cacheTTL (zero selects the default).
func NewRoomServiceWithLogger(rooms RoomRepository, now func() time.Time, cacheTTL time.Duration, logger *slog.Logger) *RoomService {
	return &RoomService{rooms: rooms, cache: newRoomCache(cacheTTL, now), logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// ListRooms returns every room ordered by ID.
func (s *RoomService) ListRooms(ctx context.Context) ([]booking.Room, error) {
	if s == nil || s.rooms == nil {
		return nil, fmt.Errorf("room repository not configured")
	}
	if cached, ok := s.cache.Get(); ok {
		return cached, nil
	}

	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		err = mapStoreError(err)
		s.loggerWith(ctx, "ListRooms").ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	sort.SliceStable(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })

	s.cache.Store(rooms)
	return cloneRooms(rooms), nil
}

// GetRoom returns the room or ErrNotFound.
func (s *RoomService) GetRoom(ctx context.Context, id string) (booking.Room, error) {
	if s == nil || s.rooms == nil {
		return booking.Room{}, fmt.Errorf("room repository not configured")
	}
	if id == "" {
		return booking.Room{}, ErrNotFound
	}
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return booking.Room{}, mapStoreError(err)
	}
	return room, nil
}

// RoomsWithCapacityAtLeast returns active rooms seating at least n, smallest first.
func (s *RoomService) RoomsWithCapacityAtLeast(ctx context.Context, n int) ([]booking.Room, error) {
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]booking.Room, 0, len(rooms))
	for _, room := range rooms {
		if room.Active && room.Capacity >= n {
			matching = append(matching, room)
		}
	}
	sortBySuitability(matching)
	return matching, nil
}

// Invalidate drops the cached listing, e.g. after seeding.
func (s *RoomService) Invalidate() {
	if s != nil {
		s.cache.Invalidate()
	}
}

// sortBySuitability orders rooms smallest first so the tightest fit is
// offered before larger rooms, then by name and ID for determinism.
func sortBySuitability(rooms []booking.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		if a.Capacity != b.Capacity {
			return a.Capacity < b.Capacity
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAttendeeNotFound), errors.Is(err, ErrInvalidRange):
		return err
	case errors.Is(err, persistence.ErrAttendeeNotFound):
		return ErrAttendeeNotFound
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrMeetingCancelled):
		return validationFailure("status", "meeting is cancelled")
	case errors.Is(err, persistence.ErrDuplicate):
		return validationFailure("id", "already exists")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return validationFailure("meeting", "violates a storage constraint")
	}
	return fmt.Errorf("store: %w", err)
}
