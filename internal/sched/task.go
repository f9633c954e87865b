package sched

import "time"

// TaskID identifies a task. IDs increase monotonically per scheduler and only
// break ties between equal sort keys.
type TaskID uint64

// Callback is one slice of a task's work. didTimeout is true when the task's
// deadline has already passed. Returning Continue(next) keeps the task alive
// with next as its new callback.
type Callback func(didTimeout bool) (Result, error)

// Result is the outcome of a Callback: either finished or a continuation.
type Result struct {
	next Callback
}

// Done reports that the task has no more work.
func Done() Result { return Result{} }

// Continue reports unfinished work to be resumed later at the same priority.
// A nil next is treated as Done.
func Continue(next Callback) Result { return Result{next: next} }

// Continuation returns the callback to resume with, if any.
func (r Result) Continuation() (Callback, bool) {
	return r.next, r.next != nil
}

// Task is one schedulable unit of work. The scheduler hands out *Task as the
// cancellation handle; its fields are read-only for callers.
type Task struct {
	id             TaskID
	callback       Callback // nil once cancelled or while running
	priority       Priority
	startTime      time.Duration
	expirationTime time.Duration
	sortIndex      time.Duration

	// queued is tracked for profiling only: set while the task sits in the
	// ready queue and has not finished, errored or been cancelled.
	queued bool
}

// SortIndex implements minheap.Node.
func (t *Task) SortIndex() int64 { return int64(t.sortIndex) }

// ID implements minheap.Node.
func (t *Task) ID() uint64 { return uint64(t.id) }

// TaskID returns the task's identifier.
func (t *Task) TaskID() TaskID { return t.id }

// Priority returns the level the task was scheduled at.
func (t *Task) Priority() Priority { return t.priority }

// StartTime is the scheduler time at which the task becomes eligible to run.
func (t *Task) StartTime() time.Duration { return t.startTime }

// ExpirationTime is StartTime plus the priority's timeout.
func (t *Task) ExpirationTime() time.Duration { return t.expirationTime }

// Cancelled reports whether the task has no callback left to run. This is
// also true for a task that finished or is currently executing.
func (t *Task) Cancelled() bool { return t.callback == nil }
