package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// QueueConfig tunes the asynchronous dispatcher.
type QueueConfig struct {
	Size    int
	Workers int
	// Timeout bounds a single downstream delivery.
	Timeout time.Duration
}

// DefaultQueueConfig returns the settings used by the service.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{Size: 256, Workers: 2, Timeout: 10 * time.Second}
}

// Queue hands events to a downstream dispatcher on background workers so
// request handlers never wait on delivery.
type Queue struct {
	next    Dispatcher
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan Event
	wg     sync.WaitGroup
}

// NewQueue starts cfg.Workers workers delivering to next.
func NewQueue(next Dispatcher, cfg QueueConfig, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultQueueConfig()
	if cfg.Size <= 0 {
		cfg.Size = defaults.Size
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	q := &Queue{
		next:    next,
		logger:  logger.With("component", "notify_queue"),
		timeout: cfg.Timeout,
		events:  make(chan Event, cfg.Size),
	}
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	return q
}

// Dispatch enqueues the event without blocking.
func (q *Queue) Dispatch(ctx context.Context, event Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to drain or for
// ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for event := range q.events {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.next.Dispatch(ctx, event); err != nil {
			q.logger.Warn("notification delivery failed",
				"kind", string(event.Kind),
				"meeting_id", event.MeetingID,
				"recipient", event.Recipient,
				"error", err,
			)
		}
		cancel()
	}
}
