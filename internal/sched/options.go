package sched

import (
	"log/slog"
	"time"

	"coopsched/internal/clock"
)

type options struct {
	config  Config
	clock   clock.Clock
	logger  *slog.Logger
	sink    EventSink
	onError func(error)
}

// Option configures a Scheduler.
type Option func(*options)

// WithConfig sets the yield thresholds and feature switches.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg.clamp()
	}
}

// WithClock overrides the time source. By default a host that also
// implements clock.Clock is used, otherwise a monotonic wall clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithEventSink receives profiling events.
func WithEventSink(s EventSink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithErrorHandler is called with every error a task callback returns. The
// default logs it.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

type scheduleOptions struct {
	delay time.Duration
}

// ScheduleOption configures a single ScheduleCallback call.
type ScheduleOption func(*scheduleOptions)

// WithDelay keeps the task out of the ready queue until d has elapsed.
// Non-positive delays are ignored.
func WithDelay(d time.Duration) ScheduleOption {
	return func(o *scheduleOptions) {
		o.delay = d
	}
}
