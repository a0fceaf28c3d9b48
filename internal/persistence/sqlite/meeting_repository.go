package sqlite

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
		found, err = findConflict(ctx, s.pool.DB(), roomID, r, excludeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// CreateMeeting inserts the meeting if its room is free for the range.
func (s *Store) CreateMeeting(ctx context.Context, meeting booking.Meeting) (booking.Meeting, error) {
	if meeting.ID == "" {
		return booking.Meeting{}, persistence.ErrConstraintViolation
	}
	if err := meeting.Range.Validate(); err != nil {
		return booking.Meeting{}, err
	}

	unlock, err := s.locks.Lock(ctx, meeting.RoomID)
	if err != nil {
		return booking.Meeting{}, err
	}
	defer unlock()

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

	err = s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
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
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insert,
			stored.ID, stored.Title, stored.Description, stored.RoomID,
			formatTime(stored.Range.Start), formatTime(stored.Range.End),
			stored.Organizer.ID, stored.Organizer.Email, stored.Organizer.Name,
			string(stored.Status), formatTime(stored.CreatedAt), formatTime(stored.UpdatedAt),
		); err != nil {
			return mapError(err)
		}

		const insertAttendee = `
			INSERT INTO meeting_attendees (meeting_id, email, name, status, responded_at)
			VALUES (?, ?, ?, ?, ?)`
		for _, a := range stored.Attendees {
			if _, err := tx.ExecContext(ctx, insertAttendee,
				stored.ID, a.Email, a.Name, string(a.Status), nullableTime(a.RespondedAt),
			); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
	if err != nil {
		return booking.Meeting{}, err
	}

	return s.GetMeeting(ctx, stored.ID)
}

// RescheduleMeeting moves a scheduled meeting to a new room and range.
func (s *Store) RescheduleMeeting(ctx context.Context, id, roomID string, r booking.TimeRange, at time.Time) (booking.Meeting, error) {
	if err := r.Validate(); err != nil {
		return booking.Meeting{}, err
	}

	current, err := s.GetMeeting(ctx, id)
	if err != nil {
		return booking.Meeting{}, err
	}

	unlock, err := s.locks.LockPair(ctx, current.RoomID, roomID)
	if err != nil {
		return booking.Meeting{}, err
	}
	defer unlock()

	err = s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var currentRoom, status string
		err := tx.QueryRowContext(ctx, `SELECT room_id, status FROM meetings WHERE id = ?`, id).Scan(&currentRoom, &status)
		if err != nil {
			return mapError(err)
		}
		if currentRoom != current.RoomID {
			return fmt.Errorf("sqlite: meeting %s changed rooms concurrently: %w", id, persistence.ErrSlotTaken)
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

		const update = `UPDATE meetings SET room_id = ?, start_time = ?, end_time = ?, updated_at = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, update, roomID, formatTime(r.Start), formatTime(r.End), formatTime(at), id); err != nil {
			return mapError(err)
		}
		return nil
	})
	if err != nil {
		return booking.Meeting{}, err
	}

	return s.GetMeeting(ctx, id)
}

// CancelMeeting marks the meeting cancelled. Cancelling twice is a no-op.
func (s *Store) CancelMeeting(ctx context.Context, id string, at time.Time) (booking.Meeting, error) {
	const update = `UPDATE meetings SET status = 'cancelled', updated_at = ? WHERE id = ? AND status = 'scheduled'`

	result, err := s.pool.DB().ExecContext(ctx, update, formatTime(at), id)
	if err != nil {
		return booking.Meeting{}, mapError(err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 1 {
		s.logger.DebugContext(ctx, "meeting cancelled", "meeting_id", id)
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
		meeting, err = getMeeting(ctx, s.pool.DB(), id)
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
		rows, err := s.pool.DB().QueryContext(ctx, query, args...)
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
		if err := rows.Err(); err != nil {
			rows.Close()
			return mapError(err)
		}
		rows.Close()

		for i := range meetings {
			attendees, err := loadAttendees(ctx, s.pool.DB(), meetings[i].ID)
			if err != nil {
				return err
			}
			meetings[i].Attendees = attendees
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
	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		const update = `
			UPDATE meeting_attendees SET status = ?, responded_at = ?
			WHERE meeting_id = ? AND email = ? AND status = 'pending'`
		result, err := tx.ExecContext(ctx, update, string(status), formatTime(at), meetingID, key)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		changed = affected == 1

		const selectAttendee = `
			SELECT email, name, status, responded_at FROM meeting_attendees
			WHERE meeting_id = ? AND email = ?`
		attendee, err = scanAttendee(tx.QueryRowContext(ctx, selectAttendee, meetingID, key))
		if errors.Is(err, persistence.ErrNotFound) {
			var exists int
			if lookupErr := tx.QueryRowContext(ctx, `SELECT 1 FROM meetings WHERE id = ?`, meetingID).Scan(&exists); lookupErr != nil {
				return mapError(lookupErr)
			}
			return persistence.ErrAttendeeNotFound
		}
		if err != nil {
			return err
		}
		if changed {
			if _, err := tx.ExecContext(ctx, `UPDATE meetings SET updated_at = ? WHERE id = ?`, formatTime(at), meetingID); err != nil {
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

func ensureRoom(ctx context.Context, q queryer, roomID string) error {
	var exists int
	if err := q.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, roomID).Scan(&exists); err != nil {
		return mapError(err)
	}
	return nil
}

func findConflict(ctx context.Context, q queryer, roomID string, r booking.TimeRange, excludeID string) (*booking.Meeting, error) {
	query := `SELECT ` + meetingColumns + `
		FROM meetings m
		WHERE m.room_id = ? AND m.status = 'scheduled'
			AND m.start_time < ? AND m.end_time > ? AND m.id <> ?
		ORDER BY m.start_time ASC, m.end_time ASC
		LIMIT 1`

	meeting, err := scanMeeting(q.QueryRowContext(ctx, query, roomID, formatTime(r.End), formatTime(r.Start), excludeID))
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
	query := `SELECT ` + meetingColumns + ` FROM meetings m WHERE m.id = ?`
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
		WHERE meeting_id = ?
		ORDER BY rowid ASC`

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
	query := `SELECT ` + meetingColumns + ` FROM meetings m`

	var (
		conditions []string
		args       []any
	)
	if !filter.IncludeCancelled {
		conditions = append(conditions, "m.status = 'scheduled'")
	}
	if filter.RoomID != "" {
		conditions = append(conditions, "m.room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.Range != nil {
		conditions = append(conditions, "m.start_time < ? AND m.end_time > ?")
		args = append(args, formatTime(filter.Range.End), formatTime(filter.Range.Start))
	}
	if p := filter.Participant; p != nil {
		var who []string
		if p.ID != "" {
			who = append(who, "m.organizer_id = ?")
			args = append(args, p.ID)
		}
		if email := booking.NormalizeEmail(p.Email); email != "" {
			who = append(who,
				"lower(m.organizer_email) = ?",
				"EXISTS (SELECT 1 FROM meeting_attendees a WHERE a.meeting_id = m.id AND a.email = ?)",
			)
			args = append(args, email, email)
		}
		if len(who) == 0 {
			who = append(who, "0 = 1")
		}
		conditions = append(conditions, "("+strings.Join(who, " OR ")+")")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY m.start_time ASC, m.end_time ASC, m.id ASC"
	return query, args
}

func scanMeeting(row rowScanner) (booking.Meeting, error) {
	var (
		m                            booking.Meeting
		start, end, created, updated string
		status                       string
	)
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.RoomID, &start, &end,
		&m.Organizer.ID, &m.Organizer.Email, &m.Organizer.Name, &status, &created, &updated,
	); err != nil {
		return booking.Meeting{}, mapError(err)
	}

	var err error
	if m.Range.Start, err = parseTime(start); err != nil {
		return booking.Meeting{}, err
	}
	if m.Range.End, err = parseTime(end); err != nil {
		return booking.Meeting{}, err
	}
	if m.CreatedAt, err = parseTime(created); err != nil {
		return booking.Meeting{}, err
	}
	if m.UpdatedAt, err = parseTime(updated); err != nil {
		return booking.Meeting{}, err
	}
	m.Status = booking.MeetingStatus(status)
	return m, nil
}

func scanAttendee(row rowScanner) (booking.Attendee, error) {
	var (
		a           booking.Attendee
		status      string
		respondedAt sql.NullString
	)
	if err := row.Scan(&a.Email, &a.Name, &status, &respondedAt); err != nil {
		return booking.Attendee{}, mapError(err)
	}
	a.Status = booking.AttendeeStatus(status)
	if respondedAt.Valid {
		t, err := parseTime(respondedAt.String)
		if err != nil {
			return booking.Attendee{}, err
		}
		a.RespondedAt = &t
	}
	return a, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
