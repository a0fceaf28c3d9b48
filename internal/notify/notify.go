// Package notify delivers meeting notifications to attendees. Delivery is
// best effort: callers log dispatch failures and never roll back the
// operation that produced the event.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Kind identifies why a notification was sent.
type Kind string

const (
	KindInvited     Kind = "invited"
	KindResponded   Kind = "responded"
	KindCancelled   Kind = "cancelled"
	KindRescheduled Kind = "rescheduled"
)

// ErrQueueFull is returned when the asynchronous queue cannot accept more events.
var ErrQueueFull = errors.New("notify: queue full")

// ErrQueueClosed is returned after Close.
var ErrQueueClosed = errors.New("notify: queue closed")

// Event is one notification for one recipient.
type Event struct {
	Kind         Kind
	MeetingID    string
	Title        string
	RoomName     string
	Start        time.Time
	End          time.Time
	Recipient    string
	Organizer    string
	Decision     string
	ResponseLink string
	// Calendar is an optional text/calendar attachment.
	Calendar []byte
}

// Dispatcher sends notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, event Event) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// LogDispatcher writes each notification as a structured log record. It is
// the delivery used when no mail transport is configured.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher returns a dispatcher logging through logger.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger.With("component", "notify")}
}

// Dispatch logs the event.
func (d *LogDispatcher) Dispatch(ctx context.Context, event Event) error {
	attrs := []any{
		"kind", string(event.Kind),
		"meeting_id", event.MeetingID,
		"recipient", event.Recipient,
		"title", event.Title,
		"start", event.Start.Format(time.RFC3339),
		"end", event.End.Format(time.RFC3339),
	}
	if event.RoomName != "" {
		attrs = append(attrs, "room", event.RoomName)
	}
	if event.Decision != "" {
		attrs = append(attrs, "decision", event.Decision)
	}
	if event.ResponseLink != "" {
		attrs = append(attrs, "response_link", event.ResponseLink)
	}
	if len(event.Calendar) > 0 {
		attrs = append(attrs, "calendar_bytes", len(event.Calendar))
	}
	d.logger.InfoContext(ctx, "notification dispatched", attrs...)
	return nil
}
