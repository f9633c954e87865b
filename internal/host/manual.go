package host

import (
	"math"
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"

	"coopsched/internal/clock"
)

// Manual is a run loop driven entirely by its caller. Time is virtual and
// only moves through Tick and Advance, so every test run sees the same
// interleaving. It must be used from a single goroutine.
type Manual struct {
	clock  *clock.Manual
	posted []func()
	timers *redblacktree.Tree // timerKey -> func()
	seq    uint64

	discreteInput   bool
	continuousInput bool
}

// timerKey orders timers by due time, then by arming order.
type timerKey struct {
	due time.Duration
	seq uint64
}

func compareTimerKeys(a, b any) int {
	ka, kb := a.(timerKey), b.(timerKey)
	switch {
	case ka.due < kb.due:
		return -1
	case ka.due > kb.due:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// NewManual creates a manual loop whose clock starts at zero.
func NewManual() *Manual {
	return &Manual{
		clock:  clock.NewManual(0),
		timers: redblacktree.NewWith(compareTimerKeys),
	}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Duration {
	return m.clock.Now()
}

// Tick moves the clock forward without firing timers. Callbacks use it to
// simulate how long their work takes.
func (m *Manual) Tick(d time.Duration) {
	m.clock.Advance(d)
}

// Post queues fn to run on a later Step or Flush.
func (m *Manual) Post(fn func()) {
	m.posted = append(m.posted, fn)
}

// AfterFunc arms a timer due d from now.
func (m *Manual) AfterFunc(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	m.seq++
	key := timerKey{due: later(m.Now(), d), seq: m.seq}
	m.timers.Put(key, fn)
	return func() {
		m.timers.Remove(key)
	}
}

// Step runs the oldest posted callback and reports whether there was one.
func (m *Manual) Step() bool {
	if len(m.posted) == 0 {
		return false
	}
	fn := m.posted[0]
	m.posted[0] = nil
	m.posted = m.posted[1:]
	fn()
	return true
}

// Flush runs posted callbacks, including ones posted while flushing, until
// none remain or limit callbacks have run. limit <= 0 means no limit. It
// returns how many ran.
func (m *Manual) Flush(limit int) int {
	n := 0
	for limit <= 0 || n < limit {
		if !m.Step() {
			break
		}
		n++
	}
	return n
}

// Advance moves the clock forward by d, firing every timer that falls due on
// the way at its due time.
func (m *Manual) Advance(d time.Duration) {
	target := later(m.Now(), d)
	for {
		node := m.timers.Left()
		if node == nil {
			break
		}
		key := node.Key.(timerKey)
		if key.due > target {
			break
		}
		fn := node.Value.(func())
		m.timers.Remove(key)
		m.clock.Set(key.due)
		fn()
	}
	m.clock.Set(target)
}

// Posted returns the number of callbacks waiting to run.
func (m *Manual) Posted() int {
	return len(m.posted)
}

// Timers returns the number of armed timers.
func (m *Manual) Timers() int {
	return m.timers.Size()
}

// NextTimer returns the due time of the earliest armed timer.
func (m *Manual) NextTimer() (time.Duration, bool) {
	node := m.timers.Left()
	if node == nil {
		return 0, false
	}
	return node.Key.(timerKey).due, true
}

// SetInputPending sets what InputPending reports.
func (m *Manual) SetInputPending(discrete, continuous bool) {
	m.discreteInput = discrete
	m.continuousInput = continuous
}

// InputPending reports simulated pending input.
func (m *Manual) InputPending(includeContinuous bool) bool {
	return m.discreteInput || (includeContinuous && m.continuousInput)
}

// later returns now+d, or the largest Duration if that would overflow.
func later(now, d time.Duration) time.Duration {
	if t := now + d; d <= 0 || t > now {
		return t
	}
	return math.MaxInt64
}
