package host

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a run loop on a single goroutine. Post and Submit may be called
// from any goroutine; queued functions run in order on the goroutine that
// called Run.
type Loop struct {
	mu     sync.Mutex
	jobs   []func() // producers append here
	spare  []func() // drained by Run, swapped with jobs
	wakeup chan struct{}
	logger *slog.Logger
}

// NewLoop creates a loop that reports panicking jobs to logger.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		wakeup: make(chan struct{}, 1),
		logger: logger.With("component", "loop"),
	}
}

// Post queues fn to run on the loop after everything already queued.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.jobs = append(l.jobs, fn)
	l.mu.Unlock()

	select {
	case l.wakeup <- struct{}{}:
	default:
	}
}

// Submit hands fn to the loop from another goroutine. It is Post under a
// name that reads better at call sites outside the loop.
func (l *Loop) Submit(fn func()) {
	l.Post(fn)
}

// AfterFunc posts fn to the loop once d has elapsed. cancel is safe to call
// from the loop even after the timer fired but before fn ran.
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// Run processes jobs until ctx is done. It returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		l.jobs, l.spare = l.spare[:0], l.jobs
		batch := l.spare
		l.mu.Unlock()

		for i, job := range batch {
			l.runJob(job)
			batch[i] = nil
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wakeup:
		}
	}
}

// runJob keeps the loop alive when a job panics; the panic is logged the way
// an uncaught exception would be reported by a host environment.
func (l *Loop) runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("job panicked", "panic", r)
		}
	}()
	job()
}
