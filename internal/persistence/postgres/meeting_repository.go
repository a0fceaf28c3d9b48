package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
)

const meetingColumns = `m.id, m.title, m.description, m.room_id, m.start_time, m.end_time,
	m.organizer_id, m.organizer_email, m.organizer_name, m.status, m.created_at, m.updated_at`

// FindConflict returns the earliest overlapping scheduled meeting in the room.
func (s *Store) FindConflict(ctx context.Context, roomID string, r booking.TimeRange, excludeID string) (*booking.Meeting, error) {
	var found *booking.Meeting
	err := s.retry.WithRetry(ctx, func() error {
		var err error
		found, err = findConflict(ctx, s.db, roomID, r, excludeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// CreateMeeting inserts the meeting. The exclusion constraint rejects
// overlapping scheduled meetings even when another process wins the race
// between the pre-check and the insert.
func (s *Store) CreateMeeting(ctx context.Context, meeting booking.Meeting) (booking.Meeting, error) {
	if meeting.ID == "" {
		return booking.Meeting{}, persistence.ErrConstraintViolation
	}
	if err := meeting.Range.Validate(); err != nil {
		return booking.Meeting{}, err
	}

	stored := meeting.Clone()
	if stored.Status == "" {
		stored.Status = booking.MeetingScheduled
	}
	for i := range stored.Attendees {
		stored.Attendees[i].Email = booking.NormalizeEmail(stored.Attendees[i].Email)
		if stored.Attendees[i].Status == "" {
			stored.Attendees[i].Status = booking.AttendeePending
		}
	}

	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		if err := ensureRoom(ctx, tx, stored.RoomID); err != nil {
			return err
		}
		conflict, err := findConflict(ctx, tx, stored.RoomID, stored.Range, "")
		if err != nil {
			return err
		}
		if conflict != nil {
			return &persistence.ConflictError{Meeting: *conflict}
		}

		const insert = `
			INSERT INTO meetings (id, title, description, room_id, start_time, end_time,
				organizer_id, organizer_email, organizer_name, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
		if _, err := tx.ExecContext(ctx, insert,
			stored.ID, stored.Title, stored.Description, stored.RoomID,
			stored.Range.Start.UTC(), stored.Range.End.UTC(),
			stored.Organizer.ID, stored.Organizer.Email, stored.Organizer.Name,
			string(stored.Status), stored.CreatedAt.UTC(), stored.UpdatedAt.UTC(),
		); err != nil {
			return mapError(err)
		}

		const insertAttendee = `
			INSERT INTO meeting_attendees (meeting_id, email, name, status, responded_at, position)
			VALUES ($1, $2, $3, $4, $5, $6)`
		for i, a := range stored.Attendees {
			if _, err := tx.ExecContext(ctx, insertAttendee,
				stored.ID, a.Email, a.Name, string(a.Status), nullableTime(a.RespondedAt), i,
			); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
	if err != nil {
		return booking.Meeting{}, s.resolveSlotTaken(ctx, err, stored.RoomID, stored.Range, stored.ID)
	}
	return s.GetMeeting(ctx, stored.ID)
}

// RescheduleMeeting moves a scheduled meeting to a new room and range.
func (s *Store) RescheduleMeeting(ctx context.Context, id, roomID string, r booking.TimeRange, at time.Time) (booking.Meeting, error) {
	if err := r.Validate(); err != nil {
		return booking.Meeting{}, err
	}

	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM meetings WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			return mapError(err)
		}
		if booking.MeetingStatus(status) != booking.MeetingScheduled {
			return persistence.ErrMeetingCancelled
		}
		if err := ensureRoom(ctx, tx, roomID); err != nil {
			return err
		}
		conflict, err := findConflict(ctx, tx, roomID, r, id)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &persistence.ConflictError{Meeting: *conflict}
		}

		const update = `UPDATE meetings SET room_id = $1, start_time = $2, end_time = $3, updated_at = $4 WHERE id = $5`
		if _, err := tx.ExecContext(ctx, update, roomID, r.Start.UTC(), r.End.UTC(), at.UTC(), id); err != nil {
			return mapError(err)
		}
		return nil
	})
	if err != nil {
		return booking.Meeting{}, s.resolveSlotTaken(ctx, err, roomID, r, id)
	}
	return s.GetMeeting(ctx, id)
}

// CancelMeeting marks the meeting cancelled. Cancelling twice is a no-op.
func (s *Store) CancelMeeting(ctx context.Context, id string, at time.Time) (booking.Meeting, error) {
	const update = `UPDATE meetings SET status = 'cancelled', updated_at = $1 WHERE id = $2 AND status = 'scheduled'`
	if _, err := s.db.ExecContext(ctx, update, at.UTC(), id); err != nil {
		return booking.Meeting{}, mapError(err)
	}
	return s.GetMeeting(ctx, id)
}

// GetMeeting retrieves a meeting and its attendees.
func (s *Store) GetMeeting(ctx context.Context, id string) (booking.Meeting, error) {
	if id == "" {
		return booking.Meeting{}, persistence.ErrNotFound
	}
	var meeting booking.Meeting
	err := s.retry.WithRetry(ctx, func() error {
		var err error
		meeting, err = getMeeting(ctx, s.db, id)
		return err
	})
	if err != nil {
		return booking.Meeting{}, err
	}
	return meeting, nil
}

// ListMeetings returns meetings matching the filter ordered by start then ID.
func (s *Store) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]booking.Meeting, error) {
	query, args := buildListQuery(filter)

	var meetings []booking.Meeting
	err := s.retry.WithRetry(ctx, func() error {
		meetings = nil
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return mapError(err)
		}
		for rows.Next() {
			meeting, err := scanMeeting(rows)
			if err != nil {
				rows.Close()
				return err
			}
			meetings = append(meetings, meeting)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return mapError(err)
		}

		for i := range meetings {
			if meetings[i].Attendees, err = loadAttendees(ctx, s.db, meetings[i].ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// RecordResponse moves a pending attendee to status.
func (s *Store) RecordResponse(ctx context.Context, meetingID, email string, status booking.AttendeeStatus, at time.Time) (booking.Attendee, bool, error) {
	if !status.Terminal() {
		return booking.Attendee{}, false, persistence.ErrConstraintViolation
	}
	key := booking.NormalizeEmail(email)

	var (
		attendee booking.Attendee
		changed  bool
	)
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		const update = `
			UPDATE meeting_attendees SET status = $1, responded_at = $2
			WHERE meeting_id = $3 AND email = $4 AND status = 'pending'`
		result, err := tx.ExecContext(ctx, update, string(status), at.UTC(), meetingID, key)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("postgres: rows affected: %w", err)
		}
		changed = affected == 1

		const selectAttendee = `
			SELECT email, name, status, responded_at FROM meeting_attendees
			WHERE meeting_id = $1 AND email = $2`
		attendee, err = scanAttendee(tx.QueryRowContext(ctx, selectAttendee, meetingID, key))
		if errors.Is(err, persistence.ErrNotFound) {
			var exists int
			if lookupErr := tx.QueryRowContext(ctx, `SELECT 1 FROM meetings WHERE id = $1`, meetingID).Scan(&exists); lookupErr != nil {
				return mapError(lookupErr)
			}
			return persistence.ErrAttendeeNotFound
		}
		if err != nil {
			return err
		}
		if changed {
			if _, err := tx.ExecContext(ctx, `UPDATE meetings SET updated_at = $1 WHERE id = $2`, at.UTC(), meetingID); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
	if err != nil {
		return booking.Attendee{}, false, err
	}
	return attendee, changed, nil
}

// resolveSlotTaken replaces a bare exclusion violation with a ConflictError
// naming the meeting that won the race.
func (s *Store) resolveSlotTaken(ctx context.Context, err error, roomID string, r booking.TimeRange, excludeID string) error {
	var conflictErr *persistence.ConflictError
	if !errors.Is(err, persistence.ErrSlotTaken) || errors.As(err, &conflictErr) {
		return err
	}
	conflict, lookupErr := s.FindConflict(ctx, roomID, r, excludeID)
	if lookupErr != nil || conflict == nil {
		return err
	}
	s.logger.DebugContext(ctx, "exclusion constraint rejected write", "room_id", roomID, "conflict_id", conflict.ID)
	return &persistence.ConflictError{Meeting: *conflict}
}

func ensureRoom(ctx context.Context, q queryer, roomID string) error {
	var exists int
	if err := q.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = $1`, roomID).Scan(&exists); err != nil {
		return mapError(err)
	}
	return nil
}

func findConflict(ctx context.Context, q queryer, roomID string, r booking.TimeRange, excludeID string) (*booking.Meeting, error) {
	query := `SELECT ` + meetingColumns + `
		FROM meetings m
		WHERE m.room_id = $1 AND m.status = 'scheduled'
			AND m.start_time < $2 AND m.end_time > $3 AND m.id <> $4
		ORDER BY m.start_time ASC, m.end_time ASC
		LIMIT 1`

	meeting, err := scanMeeting(q.QueryRowContext(ctx, query, roomID, r.End.UTC(), r.Start.UTC(), excludeID))
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if meeting.Attendees, err = loadAttendees(ctx, q, meeting.ID); err != nil {
		return nil, err
	}
	return &meeting, nil
}

func getMeeting(ctx context.Context, q queryer, id string) (booking.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings m WHERE m.id = $1`
	meeting, err := scanMeeting(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return booking.Meeting{}, err
	}
	if meeting.Attendees, err = loadAttendees(ctx, q, id); err != nil {
		return booking.Meeting{}, err
	}
	return meeting, nil
}

func loadAttendees(ctx context.Context, q queryer, meetingID string) ([]booking.Attendee, error) {
	const query = `
		SELECT email, name, status, responded_at FROM meeting_attendees
		WHERE meeting_id = $1
		ORDER BY position ASC`

	rows, err := q.QueryContext(ctx, query, meetingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var attendees []booking.Attendee
	for rows.Next() {
		attendee, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		attendees = append(attendees, attendee)
	}
	return attendees, mapError(rows.Err())
}

func buildListQuery(filter persistence.MeetingFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeCancelled {
		conditions = append(conditions, "m.status = 'scheduled'")
	}
	if filter.RoomID != "" {
		conditions = append(conditions, "m.room_id = "+bind(filter.RoomID))
	}
	if filter.Range != nil {
		conditions = append(conditions,
			"m.start_time < "+bind(filter.Range.End.UTC()),
			"m.end_time > "+bind(filter.Range.Start.UTC()),
		)
	}
	if p := filter.Participant; p != nil {
		var who []string
		if p.ID != "" {
			who = append(who, "m.organizer_id = "+bind(p.ID))
		}
		if email := booking.NormalizeEmail(p.Email); email != "" {
			ph := bind(email)
			who = append(who,
				"lower(m.organizer_email) = "+ph,
				"EXISTS (SELECT 1 FROM meeting_attendees a WHERE a.meeting_id = m.id AND a.email = "+ph+")",
			)
		}
		if len(who) == 0 {
			who = append(who, "FALSE")
		}
		conditions = append(conditions, "("+strings.Join(who, " OR ")+")")
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings m`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY m.start_time ASC, m.end_time ASC, m.id ASC"
	return query, args
}

func scanMeeting(row rowScanner) (booking.Meeting, error) {
	var (
		m      booking.Meeting
		status string
	)
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.RoomID, &m.Range.Start, &m.Range.End,
		&m.Organizer.ID, &m.Organizer.Email, &m.Organizer.Name, &status, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return booking.Meeting{}, mapError(err)
	}
	m.Status = booking.MeetingStatus(status)
	m.Range = m.Range.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m, nil
}

func scanAttendee(row rowScanner) (booking.Attendee, error) {
	var (
		a           booking.Attendee
		status      string
		respondedAt sql.NullTime
	)
	if err := row.Scan(&a.Email, &a.Name, &status, &respondedAt); err != nil {
		return booking.Attendee{}, mapError(err)
	}
	a.Status = booking.AttendeeStatus(status)
	if respondedAt.Valid {
		t := respondedAt.Time.UTC()
		a.RespondedAt = &t
	}
	return a, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
