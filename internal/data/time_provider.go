package data

import (
	"sync/atomic"
	"time"
)

// TimeProvider is the clock repositories evaluate expiry, cooldown and stuck
// cutoffs against. Queries never read now() from the database.
type TimeProvider interface {
	Now() time.Time
}

// TimeProviderFunc adapts a function such as time.Now to TimeProvider.
type TimeProviderFunc func() time.Time

func (f TimeProviderFunc) Now() time.Time { return f() }

func defaultTimeProvider(tp TimeProvider) TimeProvider {
	if tp == nil {
		return TimeProviderFunc(time.Now)
	}
	return tp
}

// ManualClock is a TimeProvider that only moves when told to. Safe for concurrent use.
type ManualClock struct {
	nanos atomic.Int64
}

// NewManualClock returns a clock stopped at t.
func NewManualClock(t time.Time) *ManualClock {
	c := &ManualClock{}
	c.Set(t)
	return c
}

func (c *ManualClock) Now() time.Time { return time.Unix(0, c.nanos.Load()).UTC() }

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) { c.nanos.Store(t.UnixNano()) }

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) { c.nanos.Add(int64(d)) }

func nowUTC(tp TimeProvider) time.Time {
	return tp.Now().UTC()
}
