package sched

import "time"

// Host is the run loop the scheduler lives on. It is the only place the
// scheduler touches platform primitives.
type Host interface {
	// Post runs fn as soon as possible, but only after the current call
	// stack has unwound. It must never call fn synchronously.
	Post(fn func())

	// AfterFunc runs fn on the loop once d has elapsed. cancel prevents fn
	// from running if it has not started yet.
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// InputSource is an optional Host capability reporting pending user input.
// Discrete input (clicks, key presses) is always reported; continuous input
// (pointer moves, scrolling) only when includeContinuous is set.
type InputSource interface {
	InputPending(includeContinuous bool) bool
}

// workFunc is one turn of the scheduler: it reports whether work remains.
type workFunc func(hasTimeRemaining bool, initialTime time.Duration) (bool, error)

// requestHostCallback records cb as the work to run on the next turn and
// posts a turn unless one is already in flight.
func (s *Scheduler) requestHostCallback(cb workFunc) {
	s.scheduledHostCallback = cb
	if !s.messageLoopRunning {
		s.messageLoopRunning = true
		s.host.Post(s.performWorkUntilDeadline)
	}
}

// requestHostTimeout arms the single delayed callback, replacing any
// previous one.
func (s *Scheduler) requestHostTimeout(fn func(now time.Duration), d time.Duration) {
	s.cancelHostTimeout()
	seq := s.timeoutSeq
	s.cancelTimeout = s.host.AfterFunc(d, func() {
		// A host may not be able to stop a timer that already fired.
		if seq != s.timeoutSeq {
			return
		}
		s.cancelTimeout = nil
		fn(s.clock.Now())
	})
}

func (s *Scheduler) cancelHostTimeout() {
	s.timeoutSeq++
	if s.cancelTimeout != nil {
		s.cancelTimeout()
		s.cancelTimeout = nil
	}
}

// performWorkUntilDeadline is what the host actually runs for each turn.
func (s *Scheduler) performWorkUntilDeadline() {
	if s.scheduledHostCallback == nil {
		s.messageLoopRunning = false
		s.needsPaint = false
		return
	}

	now := s.clock.Now()
	s.turnStart = now
	s.turnFrameInterval = s.frameInterval

	// If the turn fails, assume there is more work and keep going.
	hasMoreWork := true
	defer func() {
		if hasMoreWork {
			s.host.Post(s.performWorkUntilDeadline)
		} else {
			s.messageLoopRunning = false
			s.scheduledHostCallback = nil
		}
		// Yielding gives the host its chance to paint.
		s.needsPaint = false
	}()

	more, err := s.scheduledHostCallback(true, now)
	if err != nil {
		s.onError(err)
		return
	}
	hasMoreWork = more
}
