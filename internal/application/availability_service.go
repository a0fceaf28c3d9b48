package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/room-booking/internal/booking"
)

// DefaultMaxSuggestions caps the alternative rooms offered on a conflict.
const DefaultMaxSuggestions = 5

// ConflictFinder reports the scheduled meeting blocking a room, if any.
type ConflictFinder interface {
	FindConflict(ctx context.Context, roomID string, r booking.TimeRange, excludeID string) (*booking.Meeting, error)
}

// RoomDirectory is the room lookup the availability engine scans.
// RoomsWithCapacityAtLeast returns only active rooms, best fit first.
type RoomDirectory interface {
	ListRooms(ctx context.Context) ([]booking.Room, error)
	GetRoom(ctx context.Context, id string) (booking.Room, error)
	RoomsWithCapacityAtLeast(ctx context.Context, n int) ([]booking.Room, error)
}

// AvailabilityService answers "is this room free?" and proposes alternatives.
// It scans every room linearly, which is fine for an office-sized catalog.
type AvailabilityService struct {
	rooms          RoomDirectory
	conflicts      ConflictFinder
	maxSuggestions int
	logger         *slog.Logger
}

// NewAvailabilityService wires the engine. maxSuggestions <= 0 selects the default.
func NewAvailabilityService(rooms RoomDirectory, conflicts ConflictFinder, maxSuggestions int) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(rooms, conflicts, maxSuggestions, nil)
}

// NewAvailabilityServiceWithLogger wires the engine with a specific logger.
func NewAvailabilityServiceWithLogger(rooms RoomDirectory, conflicts ConflictFinder, maxSuggestions int, logger *slog.Logger) *AvailabilityService {
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}
	return &AvailabilityService{
		rooms:          rooms,
		conflicts:      conflicts,
		maxSuggestions: maxSuggestions,
		logger:         defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// CheckAvailability reports whether the room is free for the range. When it is
// not, the result names the blocking meeting and suggests free rooms.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, query AvailabilityQuery) (result booking.AvailabilityResult, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if err = query.Range.Validate(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CheckAvailability",
		"room_id", query.RoomID,
		"start", query.Range.Start,
		"end", query.Range.End,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "availability check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "availability checked", "available", result.Available, "suggestions", len(result.Suggestions))
	}()

	var room booking.Room
	room, err = s.rooms.GetRoom(ctx, query.RoomID)
	if err != nil {
		err = mapStoreError(err)
		return
	}

	var conflict *booking.Meeting
	conflict, err = s.conflicts.FindConflict(ctx, room.ID, query.Range, query.ExcludeMeetingID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if conflict == nil {
		result = booking.AvailabilityResult{Available: true}
		return
	}

	summary := booking.SummarizeConflict(*conflict)
	result = booking.AvailabilityResult{Available: false, Conflict: &summary}
	result.Suggestions, err = s.Suggest(ctx, room, query.Range, query.Capacity, query.ExcludeMeetingID)
	return
}

// Suggest lists free active rooms other than requested, seating at least the
// capacity hint, best fit first and capped at the configured maximum.
func (s *AvailabilityService) Suggest(ctx context.Context, requested booking.Room, r booking.TimeRange, capacity int, excludeID string) ([]booking.Room, error) {
	if capacity <= 0 {
		capacity = requested.Capacity
	}
	if capacity <= 0 {
		capacity = 1
	}

	free, err := s.freeRooms(ctx, r, capacity, excludeID, requested.ID)
	if err != nil {
		return nil, err
	}
	if len(free) > s.maxSuggestions {
		free = free[:s.maxSuggestions]
	}
	return free, nil
}

// AvailableRooms lists every free active room seating at least minCapacity.
func (s *AvailabilityService) AvailableRooms(ctx context.Context, r booking.TimeRange, minCapacity int) ([]booking.Room, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	rooms, err := s.freeRooms(ctx, r, minCapacity, "", "")
	if err != nil {
		s.loggerWith(ctx, "AvailableRooms").ErrorContext(ctx, "failed to list available rooms", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return rooms, nil
}

func (s *AvailabilityService) freeRooms(ctx context.Context, r booking.TimeRange, capacity int, excludeMeetingID, skipRoomID string) ([]booking.Room, error) {
	candidates, err := s.rooms.RoomsWithCapacityAtLeast(ctx, capacity)
	if err != nil {
		return nil, mapStoreError(err)
	}

	free := make([]booking.Room, 0, len(candidates))
	for _, room := range candidates {
		if room.ID == skipRoomID {
			continue
		}
		conflict, err := s.conflicts.FindConflict(ctx, room.ID, r, excludeMeetingID)
		if err != nil {
			return nil, mapStoreError(err)
		}
		if conflict == nil {
			free = append(free, room)
		}
	}
	return free, nil
}
