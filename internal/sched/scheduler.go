// internal/sched/scheduler.go

package sched

import (
	"fmt"
	"log/slog"
	"time"

	"coopsched/internal/clock"
	"coopsched/internal/minheap"
)

// Scheduler time-slices prioritized tasks on a single host loop.
type Scheduler struct {
	// Scheduler-related
	cfg     Config
	clock   clock.Clock
	host    Host
	input   InputSource // nil when the host cannot report input
	logger  *slog.Logger
	events  EventSink
	onError func(error)

	taskQueue     *minheap.MinHeap[*Task] // ready tasks by expiration time
	timerQueue    *minheap.MinHeap[*Task] // delayed tasks by start time
	taskIDCounter TaskID

	paused          bool
	currentTask     *Task
	currentPriority Priority

	// re-entrancy guards
	isPerformingWork        bool
	isHostCallbackScheduled bool
	isHostTimeoutScheduled  bool

	// host bridge
	messageLoopRunning    bool
	scheduledHostCallback workFunc
	cancelTimeout         func()
	timeoutSeq            uint64

	// yield heuristic
	frameInterval     time.Duration
	turnFrameInterval time.Duration // frameInterval latched at turn start
	turnStart         time.Duration
	needsPaint        bool
}

// New creates a scheduler on host.
func New(host Host, opts ...Option) *Scheduler {
	o := &options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}

	if o.clock == nil {
		if c, ok := host.(clock.Clock); ok {
			o.clock = c
		} else {
			o.clock = clock.NewMonotonic()
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.sink == nil {
		o.sink = nopSink{}
	}

	s := &Scheduler{
		cfg:             o.config,
		clock:           o.clock,
		host:            host,
		logger:          o.logger.With("component", "scheduler"),
		events:          o.sink,
		onError:         o.onError,
		taskQueue:       minheap.New[*Task](),
		timerQueue:      minheap.New[*Task](),
		currentPriority: NormalPriority,
		frameInterval:   o.config.FrameYield(),
	}
	s.turnFrameInterval = s.frameInterval
	if s.onError == nil {
		s.onError = func(err error) {
			s.logger.Error("task failed", "error", err)
		}
	}
	if in, ok := host.(InputSource); ok && o.config.EnableInputPending {
		s.input = in
	}
	return s
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Duration {
	return s.clock.Now()
}

// ScheduleCallback creates a task running cb at priority p. Invalid
// priorities are treated as Normal. The returned task is the handle for
// CancelCallback.
func (s *Scheduler) ScheduleCallback(p Priority, cb Callback, opts ...ScheduleOption) *Task {
	var so scheduleOptions
	for _, opt := range opts {
		opt(&so)
	}

	p = p.Normalize()
	now := s.clock.Now()
	start := now
	if so.delay > 0 {
		start = addSat(now, so.delay)
	}

	s.taskIDCounter++
	t := &Task{
		id:             s.taskIDCounter,
		callback:       cb,
		priority:       p,
		startTime:      start,
		expirationTime: addSat(start, p.Timeout()),
	}

	if start > now {
		// Delayed task.
		t.sortIndex = start
		s.timerQueue.Push(t)
		if s.taskQueue.Empty() {
			if first, _ := s.timerQueue.Peek(); first == t {
				// Everything is delayed and this is the earliest timer.
				if s.isHostTimeoutScheduled {
					s.cancelHostTimeout()
				} else {
					s.isHostTimeoutScheduled = true
				}
				s.requestHostTimeout(s.handleTimeout, start-now)
			}
		}
		return t
	}

	t.sortIndex = t.expirationTime
	s.taskQueue.Push(t)
	s.markTaskStart(t, now)
	// If we are already performing work, wait until the next time we yield.
	if !s.isHostCallbackScheduled && !s.isPerformingWork {
		s.isHostCallbackScheduled = true
		s.requestHostCallback(s.flushWork)
	}
	return t
}

// CancelCallback stops t from running. The task stays in its queue and is
// discarded when it reaches the head. Safe to call from inside a callback,
// including for the task that is currently running.
func (s *Scheduler) CancelCallback(t *Task) {
	if t == nil {
		return
	}
	if t.queued {
		s.markTaskDone(t, EventTaskCancel, s.clock.Now())
	}
	t.callback = nil
}

// flushWork is one turn: it runs the work loop with the re-entrancy guard
// held and restores the ambient priority on every exit path.
func (s *Scheduler) flushWork(hasTimeRemaining bool, initialTime time.Duration) (bool, error) {
	s.emit(EventSchedulerResume, initialTime, nil)

	// We'll need a host callback the next time work is scheduled.
	s.isHostCallbackScheduled = false
	if s.isHostTimeoutScheduled {
		// The loop advances timers itself.
		s.isHostTimeoutScheduled = false
		s.cancelHostTimeout()
	}

	s.isPerformingWork = true
	previousPriority := s.currentPriority
	returned := false
	defer func() {
		if !returned && s.currentTask != nil {
			// The callback panicked.
			s.markTaskDone(s.currentTask, EventTaskError, s.clock.Now())
		}
		s.currentTask = nil
		s.currentPriority = previousPriority
		s.isPerformingWork = false
		s.emit(EventSchedulerSuspend, s.clock.Now(), nil)
	}()

	more, err := s.workLoop(hasTimeRemaining, initialTime)
	returned = true
	return more, err
}

// workLoop runs ready tasks until the queue is empty or the slice is used
// up. It reports whether ready work remains.
func (s *Scheduler) workLoop(hasTimeRemaining bool, initialTime time.Duration) (bool, error) {
	now := initialTime
	s.advanceTimers(now)
	s.currentTask = s.peekTask()

	for s.currentTask != nil && !s.paused {
		t := s.currentTask
		if t.expirationTime > now && (!hasTimeRemaining || s.ShouldYield()) {
			// Not expired, and the slice is used up.
			break
		}

		cb := t.callback
		if cb == nil {
			// Cancelled.
			s.taskQueue.Pop()
			s.currentTask = s.peekTask()
			continue
		}

		t.callback = nil
		s.currentPriority = t.priority
		didTimeout := t.expirationTime <= now
		s.emit(EventTaskRun, now, t)

		res, err := cb(didTimeout)
		now = s.clock.Now()
		if err != nil {
			s.markTaskDone(t, EventTaskError, now)
			return true, fmt.Errorf("task %d: %w", t.id, err)
		}

		if next, ok := res.Continuation(); ok {
			// Always yield after a continuation, whatever is left of the
			// slice, so the host gets a chance to paint and handle input.
			t.callback = next
			s.emit(EventTaskYield, now, t)
			s.advanceTimers(now)
			return true, nil
		}

		s.markTaskDone(t, EventTaskComplete, now)
		// The callback may have scheduled a more urgent task, which is now
		// the head. Only pop t if it is still there.
		if s.peekTask() == t {
			s.taskQueue.Pop()
		}
		s.advanceTimers(now)
		s.currentTask = s.peekTask()
	}

	if s.paused {
		// ContinueExecution asks for a new turn.
		return false, nil
	}
	if s.currentTask != nil {
		return true, nil
	}
	s.armFirstTimer(now)
	return false, nil
}

// RunWithPriority runs fn with p as the current priority level and restores
// the previous level afterwards, even if fn panics.
func (s *Scheduler) RunWithPriority(p Priority, fn func() error) error {
	previous := s.currentPriority
	s.currentPriority = p.Normalize()
	defer func() { s.currentPriority = previous }()

	return fn()
}

// Next runs fn at Normal priority when the current level is Normal or more
// urgent; lower levels are kept.
func (s *Scheduler) Next(fn func() error) error {
	p := s.currentPriority
	switch p {
	case ImmediatePriority, UserBlockingPriority, NormalPriority:
		p = NormalPriority
	}
	return s.RunWithPriority(p, fn)
}

// WrapCallback captures the current priority level and returns a function
// that runs fn at that level whenever it is called.
func (s *Scheduler) WrapCallback(fn func() error) func() error {
	parent := s.currentPriority
	return func() error {
		return s.RunWithPriority(parent, fn)
	}
}

// CurrentPriorityLevel returns the ambient priority.
func (s *Scheduler) CurrentPriorityLevel() Priority {
	return s.currentPriority
}

// PauseExecution stops the work loop from running ready tasks. Tasks can
// still be scheduled and timers still advance.
func (s *Scheduler) PauseExecution() {
	s.paused = true
}

// ContinueExecution undoes PauseExecution and asks the host for a turn if
// there is work waiting.
func (s *Scheduler) ContinueExecution() {
	s.paused = false
	if s.taskQueue.Empty() && s.timerQueue.Empty() {
		return
	}
	if !s.isHostCallbackScheduled && !s.isPerformingWork {
		s.isHostCallbackScheduled = true
		s.requestHostCallback(s.flushWork)
	}
}

// FirstCallbackNode returns the head of the ready queue, or nil.
func (s *Scheduler) FirstCallbackNode() *Task {
	return s.peekTask()
}

// Pending returns the number of ready and delayed tasks. Cancelled tasks are
// counted until they are swept from the head of their queue.
func (s *Scheduler) Pending() (ready, delayed int) {
	return s.taskQueue.Len(), s.timerQueue.Len()
}
