package http

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	saoPaulo := time.FixedZone("BRT", -3*60*60)
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339 utc", raw: "2024-05-01T10:00:00Z", want: time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)},
		{name: "rfc3339 offset", raw: "2024-05-01T10:00:00+09:00", want: time.Date(2024, time.May, 1, 1, 0, 0, 0, time.UTC)},
		{name: "fractional utc", raw: "2024-05-01T10:00:00.000Z", want: time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)},
		{name: "local seconds", raw: "2024-05-01T10:00:00", want: time.Date(2024, time.May, 1, 10, 0, 0, 0, saoPaulo)},
		{name: "local minutes", raw: "2024-05-01T10:00", want: time.Date(2024, time.May, 1, 10, 0, 0, 0, saoPaulo)},
		{name: "surrounding space", raw: " 2024-05-01T10:00 ", want: time.Date(2024, time.May, 1, 10, 0, 0, 0, saoPaulo)},
		{name: "date only", raw: "2024-05-01", wantErr: true},
		{name: "garbage", raw: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimestamp(tt.raw, saoPaulo)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected %q to parse, got %v", tt.raw, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTimestampJSON(t *testing.T) {
	t.Parallel()

	var body struct {
		Start timestamp `json:"start"`
		End   timestamp `json:"end"`
	}
	if err := json.Unmarshal([]byte(`{"start":"2024-05-01T10:00:00","end":null}`), &body); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	fieldErrors := map[string]string{}
	start := body.Start.resolve("start", time.UTC, fieldErrors)
	end := body.End.resolve("end", time.UTC, fieldErrors)
	if len(fieldErrors) != 0 {
		t.Fatalf("expected no field errors, got %v", fieldErrors)
	}
	if !start.Equal(time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)) || !end.IsZero() {
		t.Fatalf("unexpected resolution %v - %v", start, end)
	}

	if err := json.Unmarshal([]byte(`{"start":1714557600}`), &body); err == nil {
		t.Fatalf("expected numeric start to be rejected")
	}

	encoded, err := json.Marshal(timestampOf(time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)))
	if err != nil || string(encoded) != `"2024-05-01T10:00:00Z"` {
		t.Fatalf("unexpected encoding %s (%v)", encoded, err)
	}
}
