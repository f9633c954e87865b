package job

import (
	"time"

	"coopsched/internal/sched"
)

// Chunked returns a resumable callback that runs step for units 0..n-1.
// After each unit it asks shouldYield; when told to yield it returns a
// continuation that picks up at the next unit. A task whose deadline has
// passed runs its remaining units without yielding.
func Chunked(n int, shouldYield func() bool, step func(i int) error) sched.Callback {
	next := 0
	var run sched.Callback
	run = func(didTimeout bool) (sched.Result, error) {
		for next < n {
			if err := step(next); err != nil {
				return sched.Done(), err
			}
			next++
			if next < n && !didTimeout && shouldYield() {
				return sched.Continue(run), nil
			}
		}
		return sched.Done(), nil
	}
	return run
}

// Sleep returns a callback that blocks for total, one unit at a time, and
// remembers how much is left across continuations.
func Sleep(total, unit time.Duration, shouldYield func() bool) sched.Callback {
	if unit <= 0 {
		unit = total
	}
	remaining := total
	var run sched.Callback
	run = func(didTimeout bool) (sched.Result, error) {
		for remaining > 0 {
			start := time.Now()
			time.Sleep(min(unit, remaining))
			remaining -= time.Since(start)
			if remaining < 0 {
				remaining = 0
			}
			if remaining > 0 && !didTimeout && shouldYield() {
				return sched.Continue(run), nil
			}
		}
		return sched.Done(), nil
	}
	return run
}
