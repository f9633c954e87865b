package sched

import (
	"math"
	"time"
)

// addSat adds b to a, pinning the result at the Duration range instead of
// wrapping around.
func addSat(a, b time.Duration) time.Duration {
	sum := a + b
	switch {
	case b > 0 && sum < a:
		return math.MaxInt64
	case b < 0 && sum > a:
		return math.MinInt64
	}
	return sum
}

func (s *Scheduler) peekTask() *Task {
	t, _ := s.taskQueue.Peek()
	return t
}

// advanceTimers moves every due timer into the ready queue and drops
// cancelled ones. The timer queue is ordered by start time, so the first
// timer that is not due ends the scan.
func (s *Scheduler) advanceTimers(now time.Duration) {
	for {
		timer, ok := s.timerQueue.Peek()
		if !ok {
			return
		}
		switch {
		case timer.callback == nil:
			s.timerQueue.Pop()
		case timer.startTime <= now:
			s.timerQueue.Pop()
			timer.sortIndex = timer.expirationTime
			s.taskQueue.Push(timer)
			s.markTaskStart(timer, now)
		default:
			return
		}
	}
}

// handleTimeout runs when the delayed host callback fires.
func (s *Scheduler) handleTimeout(now time.Duration) {
	s.isHostTimeoutScheduled = false
	s.advanceTimers(now)

	if s.isHostCallbackScheduled {
		return
	}
	if !s.taskQueue.Empty() {
		s.isHostCallbackScheduled = true
		s.requestHostCallback(s.flushWork)
		return
	}
	s.armFirstTimer(now)
}

// armFirstTimer arms the host timeout for the earliest pending timer, if any.
func (s *Scheduler) armFirstTimer(now time.Duration) {
	first, ok := s.timerQueue.Peek()
	if !ok {
		return
	}
	s.isHostTimeoutScheduled = true
	s.requestHostTimeout(s.handleTimeout, first.startTime-now)
}

func (s *Scheduler) emit(kind EventKind, at time.Duration, t *Task) {
	ev := Event{At: at, Kind: kind}
	if t != nil {
		ev.TaskID = t.id
		ev.Priority = t.priority
	}
	s.events.Record(ev)
}

func (s *Scheduler) markTaskStart(t *Task, now time.Duration) {
	t.queued = true
	s.emit(EventTaskStart, now, t)
}

func (s *Scheduler) markTaskDone(t *Task, kind EventKind, now time.Duration) {
	t.queued = false
	s.emit(kind, now, t)
}
