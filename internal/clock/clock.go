// internal/clock/clock.go

package clock

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic time source. Now returns the time elapsed since the
// clock's origin, so values from one clock are only comparable with each other.
type Clock interface {
	Now() time.Duration
}

// Monotonic reads the runtime's monotonic clock relative to its creation.
type Monotonic struct {
	origin time.Time
}

// NewMonotonic creates a clock whose origin is the current instant.
func NewMonotonic() *Monotonic {
	return &Monotonic{origin: time.Now()}
}

// Now returns the elapsed time since the clock was created.
func (c *Monotonic) Now() time.Duration {
	return time.Since(c.origin)
}

// Manual is a clock that only moves when told to. It is safe to read from
// any goroutine.
type Manual struct {
	now atomic.Int64
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Duration) *Manual {
	c := &Manual{}
	c.now.Store(int64(start))
	return c
}

// Now returns the current virtual time.
func (c *Manual) Now() time.Duration {
	return time.Duration(c.now.Load())
}

// Advance moves the clock forward by d and returns the new time. Negative
// values are ignored so the clock stays monotonic.
func (c *Manual) Advance(d time.Duration) time.Duration {
	if d < 0 {
		d = 0
	}
	return time.Duration(c.now.Add(int64(d)))
}

// Set moves the clock to t if t is not in the past.
func (c *Manual) Set(t time.Duration) {
	for {
		cur := c.now.Load()
		if int64(t) <= cur || c.now.CompareAndSwap(cur, int64(t)) {
			return
		}
	}
}
