// Package sched implements a cooperative, single-threaded task scheduler that
// time-slices prioritized work on top of a host run loop.
//
// Tasks carry a priority, which fixes a timeout and therefore a deadline.
// Ready tasks run in deadline order; delayed tasks wait in a separate queue
// until their start time. Each host invocation runs tasks until the time
// slice is used up, then hands the thread back to the host and asks to be
// invoked again. A callback that wants to be resumed returns a continuation
// instead of finishing.
//
// A Scheduler is not safe for concurrent use. Every call, including those
// made from task callbacks, must happen on the host loop.
package sched
