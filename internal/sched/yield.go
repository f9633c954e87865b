package sched

import (
	"errors"
	"time"
)

// maxFrameRate is the highest frame rate ForceFrameRate accepts.
const maxFrameRate = 125

// ErrFrameRateOutOfRange is returned by ForceFrameRate for rates above 125 fps.
var ErrFrameRateOutOfRange = errors.New("sched: frame rate must be between 0 and 125 fps")

// ShouldYield reports whether the current turn has run long enough that the
// scheduler, or a long callback checking in, should hand the thread back to
// the host.
func (s *Scheduler) ShouldYield() bool {
	elapsed := s.clock.Now() - s.turnStart
	if elapsed < s.turnFrameInterval {
		// Blocked for less than a frame. Don't yield yet.
		return false
	}

	if s.input == nil {
		return true
	}
	if s.needsPaint {
		return true
	}
	switch {
	case elapsed < s.cfg.ContinuousYield():
		// Continuous input (pointer moves) can wait this long.
		return s.input.InputPending(false)
	case elapsed < s.cfg.MaxYield():
		return s.input.InputPending(s.cfg.IncludeContinuousInput)
	default:
		// There may be work we can't see, like network events.
		return true
	}
}

// RequestPaint asks the scheduler to yield at the next opportunity past the
// frame interval. The flag clears after each turn.
func (s *Scheduler) RequestPaint() {
	s.needsPaint = true
}

// ForceFrameRate sets the frame interval to target fps. fps <= 0 restores the
// configured default. Rates above 125 are rejected and the interval is left
// unchanged. The new interval applies from the next turn.
func (s *Scheduler) ForceFrameRate(fps int) error {
	if fps > maxFrameRate {
		s.logger.Warn("forcing frame rates higher than 125 fps is not supported",
			"fps", fps, "frame_interval", s.frameInterval)
		return ErrFrameRateOutOfRange
	}
	if fps <= 0 {
		s.frameInterval = s.cfg.FrameYield()
		return nil
	}
	s.frameInterval = time.Duration(1000/fps) * time.Millisecond
	return nil
}

// FrameInterval returns the interval that the next turn will use.
func (s *Scheduler) FrameInterval() time.Duration {
	return s.frameInterval
}
