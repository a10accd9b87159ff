package testutil

import "time"

// FixedClock is a Clock whose time only moves when the test says so.
type FixedClock struct {
	Current time.Time
}

// NewFixedClock creates a FixedClock at a stable, arbitrary instant.
func NewFixedClock() *FixedClock {
	return &FixedClock{Current: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)}
}

func (c *FixedClock) Now() time.Time { return c.Current }

// Advance moves the clock forward.
func (c *FixedClock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }
