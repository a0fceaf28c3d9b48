package http

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/example/room-booking/internal/booking"
)

// Offset-less layouts are read in the organizational timezone. Fractional
// seconds are accepted after the seconds field.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var errTimestampFormat = errors.New("timestamp must be ISO 8601")

// parseTimestamp accepts RFC 3339 or a local ISO 8601 date-time without an
// offset, which is interpreted in loc.
func parseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if ts, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errTimestampFormat
}

// timestamp is a request body time kept raw until the handler resolves it
// against the organizational timezone.
type timestamp struct {
	raw string
}

func timestampOf(t time.Time) timestamp {
	return timestamp{raw: t.Format(time.RFC3339Nano)}
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.raw = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t.raw = strings.TrimSpace(s)
	return nil
}

func (t timestamp) MarshalJSON() ([]byte, error) {
	if t.raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(t.raw)
}

// resolve parses the value into loc, recording a field error when it is
// malformed. An absent value resolves to the zero time so the services
// report the missing range.
func (t timestamp) resolve(field string, loc *time.Location, fieldErrors map[string]string) time.Time {
	if t.raw == "" {
		return time.Time{}
	}
	ts, err := parseTimestamp(t.raw, loc)
	if err != nil {
		fieldErrors[field] = field + " must be an ISO 8601 timestamp"
		return time.Time{}
	}
	return ts
}

// parseRange reads the start and end query parameters. Ordering is left to
// the services so inverted ranges report ErrInvalidRange.
func parseRange(q url.Values, loc *time.Location, fieldErrors map[string]string) booking.TimeRange {
	var rng booking.TimeRange
	for _, field := range []string{"start", "end"} {
		raw := strings.TrimSpace(q.Get(field))
		if raw == "" {
			fieldErrors[field] = field + " is required"
			continue
		}
		ts, err := parseTimestamp(raw, loc)
		if err != nil {
			fieldErrors[field] = field + " must be an ISO 8601 timestamp"
			continue
		}
		if field == "start" {
			rng.Start = ts
		} else {
			rng.End = ts
		}
	}
	return rng
}
