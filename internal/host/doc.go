// Package host provides run loops the scheduler can be attached to: a
// deterministic manual loop for tests and tools, a goroutine-backed loop for
// Go programs, and an adapter for the goja_nodejs JavaScript event loop.
//
// All hosts satisfy sched.Host structurally; this package does not import
// the scheduler.
package host
