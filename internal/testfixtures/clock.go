package testfixtures

import (
	"sync"
	"time"
)

var referenceTime = time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)

// ReferenceTime is midnight UTC on the day fixtures book meetings for.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns the reference day at hour:minute UTC. Hours past 23 roll into
// the following days.
func At(hour, minute int) time.Time {
	return referenceTime.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// Clock provides a controllable time source for tests.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock initialised to start, or to the day before
// ReferenceTime when start is zero so fixture meetings lie in the future.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = referenceTime.Add(-24 * time.Hour)
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for constructors that take a func() time.Time.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
