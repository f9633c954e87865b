package sched

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"testing"
	"time"

	"coopsched/internal/clock"
	"coopsched/internal/host"
)

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *host.Manual, *Recorder) {
	t.Helper()
	h := host.NewManual()
	rec := &Recorder{}
	base := []Option{
		WithEventSink(rec),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(h, append(base, opts...)...), h, rec
}

// noInputConfig yields unconditionally once the frame interval is used up.
func noInputConfig() Config {
	cfg := DefaultConfig()
	cfg.EnableInputPending = false
	return cfg
}

func done(fn func()) Callback {
	return func(bool) (Result, error) {
		fn()
		return Done(), nil
	}
}

func TestScheduler_SingleTaskRunsOnce(t *testing.T) {
	s, h, _ := newTestScheduler(t)

	calls := 0
	s.ScheduleCallback(NormalPriority, done(func() { calls++ }))
	if calls != 0 {
		t.Fatal("callback ran synchronously inside ScheduleCallback")
	}

	if turns := h.Flush(0); turns != 1 {
		t.Errorf("expected 1 turn, got %d", turns)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if ready, delayed := s.Pending(); ready != 0 || delayed != 0 {
		t.Errorf("expected empty queues, got ready=%d delayed=%d", ready, delayed)
	}
	if s.messageLoopRunning {
		t.Error("expected message loop to stop once there is no more work")
	}
}

func TestScheduler_PriorityOrder(t *testing.T) {
	tests := map[string]struct {
		priorities []Priority
		want       []string
	}{
		"more urgent task runs first": {
			priorities: []Priority{LowPriority, ImmediatePriority},
			want:       []string{"2:immediate", "1:low"},
		},
		"all levels": {
			priorities: []Priority{IdlePriority, NormalPriority, UserBlockingPriority, LowPriority, ImmediatePriority},
			want:       []string{"5:immediate", "3:user-blocking", "2:normal", "4:low", "1:idle"},
		},
		"same priority keeps insertion order": {
			priorities: []Priority{NormalPriority, NormalPriority, NormalPriority},
			want:       []string{"1:normal", "2:normal", "3:normal"},
		},
		"invalid priority is normal": {
			priorities: []Priority{Priority(42), LowPriority, NormalPriority},
			want:       []string{"1:normal", "3:normal", "2:low"},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, h, _ := newTestScheduler(t)
			var got []string
			for i, p := range tt.priorities {
				s.ScheduleCallback(p, done(func() {
					got = append(got, fmt.Sprintf("%d:%s", i+1, s.CurrentPriorityLevel()))
				}))
			}
			h.Flush(0)

			if !slices.Equal(got, tt.want) {
				t.Errorf("mismatch:\n  got:  %v\n  want: %v", got, tt.want)
			}
		})
	}
}

func TestScheduler_ExpirationFollowsPriorityTable(t *testing.T) {
	s, h, _ := newTestScheduler(t)
	h.Tick(time.Second)

	var prev *Task
	for _, p := range Priorities() {
		task := s.ScheduleCallback(p, done(func() {}))
		if got, want := task.ExpirationTime(), time.Second+p.Timeout(); got != want {
			t.Errorf("%s: mismatch:\n  got:  %v\n  want: %v", p, got, want)
		}
		if prev != nil && task.ExpirationTime() <= prev.ExpirationTime() {
			t.Errorf("%s expires at %v, not after %s at %v", p, task.ExpirationTime(), prev.Priority(), prev.ExpirationTime())
		}
		prev = task
	}
}

func TestScheduler_DelayedTask(t *testing.T) {
	s, h, _ := newTestScheduler(t)

	calls := 0
	task := s.ScheduleCallback(NormalPriority, done(func() { calls++ }), WithDelay(100*time.Millisecond))
	if task.StartTime() != 100*time.Millisecond {
		t.Errorf("expected start time 100ms, got %v", task.StartTime())
	}
	if ready, delayed := s.Pending(); ready != 0 || delayed != 1 {
		t.Errorf("expected task in delayed queue, got ready=%d delayed=%d", ready, delayed)
	}
	if h.Posted() != 0 {
		t.Errorf("expected no turn requested for a delayed task, got %d", h.Posted())
	}
	if due, ok := h.NextTimer(); !ok || due != 100*time.Millisecond {
		t.Errorf("expected host timer at 100ms, got %v (%v)", due, ok)
	}

	h.Advance(50 * time.Millisecond)
	h.Flush(0)
	if calls != 0 {
		t.Fatalf("delayed task ran at %v", h.Now())
	}

	h.Advance(100 * time.Millisecond)
	h.Flush(0)
	if calls != 1 {
		t.Errorf("expected delayed task to run once by %v, got %d calls", h.Now(), calls)
	}
}

func TestScheduler_DelayedTaskSkippedByEarlierTurn(t *testing.T) {
	s, h, _ := newTestScheduler(t)

	var got []string
	s.ScheduleCallback(NormalPriority, done(func() { got = append(got, "delayed") }), WithDelay(100*time.Millisecond))
	h.Tick(50 * time.Millisecond)
	s.ScheduleCallback(NormalPriority, done(func() { got = append(got, "ready") }))
	h.Flush(0)

	if want := []string{"ready"}; !slices.Equal(got, want) {
		t.Fatalf("mismatch at 50ms:\n  got:  %v\n  want: %v", got, want)
	}

	// The loop re-arms the host timer for the remaining delay.
	if due, ok := h.NextTimer(); !ok || due != 100*time.Millisecond {
		t.Errorf("expected host timer at 100ms, got %v (%v)", due, ok)
	}
	h.Advance(100 * time.Millisecond)
	h.Flush(0)
	if want := []string{"ready", "delayed"}; !slices.Equal(got, want) {
		t.Errorf("mismatch at 150ms:\n  got:  %v\n  want: %v", got, want)
	}
}

func TestScheduler_DelayNeverRunsEarly(t *testing.T) {
	s, h, _ := newTestScheduler(t)
	r := rand.New(rand.NewSource(7))

	ran := 0
	for _, i := range r.Perm(20) {
		delay := time.Duration(i*10) * time.Millisecond
		var task *Task
		task = s.ScheduleCallback(NormalPriority, done(func() {
			ran++
			if h.Now() < task.StartTime() {
				t.Errorf("task with delay %v ran at %v", delay, h.Now())
			}
		}), WithDelay(delay))
	}

	for i := 0; i < 30; i++ {
		h.Flush(0)
		h.Advance(10 * time.Millisecond)
	}
	if ran != 20 {
		t.Errorf("expected 20 tasks to run, got %d", ran)
	}
}

func TestScheduler_EarlierTimerReplacesHostTimeout(t *testing.T) {
	s, h, _ := newTestScheduler(t)

	s.ScheduleCallback(NormalPriority, done(func() {}), WithDelay(100*time.Millisecond))
	s.ScheduleCallback(NormalPriority, done(func() {}), WithDelay(50*time.Millisecond))
	s.ScheduleCallback(NormalPriority, done(func() {}), WithDelay(200*time.Millisecond))

	if h.Timers() != 1 {
		t.Errorf("expected exactly one armed host timer, got %d", h.Timers())
	}
	if due, _ := h.NextTimer(); due != 50*time.Millisecond {
		t.Errorf("expected host timer at 50ms, got %v", due)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	tests := map[string]struct {
		delay time.Duration
	}{
		"ready task":   {},
		"delayed task": {delay: 20 * time.Millisecond},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, h, _ := newTestScheduler(t)
			called := false
			task := s.ScheduleCallback(NormalPriority, done(func() { called = true }), WithDelay(tt.delay))
			s.CancelCallback(task)
			if !task.Cancelled() {
				t.Error("expected task to report cancelled")
			}

			h.Flush(0)
			h.Advance(time.Second)
			h.Flush(0)

			if called {
				t.Error("cancelled callback was invoked")
			}
			if ready, delayed := s.Pending(); ready != 0 || delayed != 0 {
				t.Errorf("expected cancelled task to be swept, got ready=%d delayed=%d", ready, delayed)
			}
			if h.Posted() != 0 || h.Timers() != 0 {
				t.Errorf("expected no pending host work, got posted=%d timers=%d", h.Posted(), h.Timers())
			}
		})
	}
}

func TestScheduler_CancelHeadFromEarlierTask(t *testing.T) {
	s, h, rec := newTestScheduler(t)

	var got []string
	var second *Task
	s.ScheduleCallback(ImmediatePriority, done(func() {
		got = append(got, "first")
		s.CancelCallback(second)
	}))
	second = s.ScheduleCallback(ImmediatePriority, done(func() { got = append(got, "second") }))
	s.ScheduleCallback(NormalPriority, done(func() { got = append(got, "third") }))
	h.Flush(0)

	if want := []string{"first", "third"}; !slices.Equal(got, want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", got, want)
	}
	if want := []EventKind{EventTaskStart, EventTaskCancel}; !slices.Equal(rec.Kinds(second.TaskID()), want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", rec.Kinds(second.TaskID()), want)
	}
}

func TestScheduler_ContinuationResumesBeforeLessUrgentWork(t *testing.T) {
	s, h, rec := newTestScheduler(t)

	var got []string
	first := s.ScheduleCallback(NormalPriority, func(bool) (Result, error) {
		got = append(got, "normal:1")
		return Continue(done(func() { got = append(got, "normal:2") })), nil
	})
	s.ScheduleCallback(LowPriority, done(func() { got = append(got, "low") }))

	if !h.Step() {
		t.Fatal("expected a turn to be posted")
	}
	if want := []string{"normal:1"}; !slices.Equal(got, want) {
		t.Fatalf("a continuation must end the turn:\n  got:  %v\n  want: %v", got, want)
	}
	if s.FirstCallbackNode() != first {
		t.Error("expected the continued task to stay at the head of the queue")
	}
	if h.Posted() != 1 {
		t.Errorf("expected the next turn to be posted, got %d", h.Posted())
	}

	h.Flush(0)
	if want := []string{"normal:1", "normal:2", "low"}; !slices.Equal(got, want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", got, want)
	}
	want := []EventKind{EventTaskStart, EventTaskRun, EventTaskYield, EventTaskRun, EventTaskComplete}
	if !slices.Equal(rec.Kinds(first.TaskID()), want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", rec.Kinds(first.TaskID()), want)
	}
}

func TestScheduler_InfiniteContinuationRunsOncePerTurn(t *testing.T) {
	s, h, _ := newTestScheduler(t)

	calls := 0
	var forever Callback
	forever = func(bool) (Result, error) {
		calls++
		return Continue(forever), nil
	}
	s.ScheduleCallback(NormalPriority, forever)
	lowRan := false
	s.ScheduleCallback(LowPriority, done(func() { lowRan = true }))

	for turn := 1; turn <= 5; turn++ {
		if !h.Step() {
			t.Fatalf("turn %d: nothing posted", turn)
		}
		if calls != turn {
			t.Fatalf("turn %d: expected %d calls, got %d", turn, turn, calls)
		}
	}
	if lowRan {
		t.Error("less urgent task ran while a continuation was pending")
	}
}

func TestScheduler_TimeSlicing(t *testing.T) {
	s, h, _ := newTestScheduler(t, WithConfig(noInputConfig()))

	ran := 0
	for i := 0; i < 4; i++ {
		s.ScheduleCallback(NormalPriority, done(func() {
			ran++
			h.Tick(3 * time.Millisecond)
		}))
	}

	h.Step()
	if ran != 2 {
		t.Fatalf("expected 2 tasks in the first 5ms slice, got %d", ran)
	}
	if h.Posted() != 1 {
		t.Fatalf("expected another turn to be posted, got %d", h.Posted())
	}
	h.Step()
	if ran != 4 {
		t.Errorf("expected remaining tasks in the second slice, got %d", ran)
	}
	if h.Posted() != 0 {
		t.Errorf("expected no more turns, got %d", h.Posted())
	}
}

func TestScheduler_ExpiredTasksIgnoreYield(t *testing.T) {
	s, h, _ := newTestScheduler(t, WithConfig(noInputConfig()))

	var timeouts []bool
	for i := 0; i < 3; i++ {
		s.ScheduleCallback(UserBlockingPriority, func(didTimeout bool) (Result, error) {
			timeouts = append(timeouts, didTimeout)
			h.Tick(300 * time.Millisecond)
			return Done(), nil
		})
	}

	if turns := h.Flush(0); turns != 1 {
		t.Errorf("expected expired tasks to run in one turn, got %d turns", turns)
	}
	if want := []bool{false, true, true}; !slices.Equal(timeouts, want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", timeouts, want)
	}
}

func TestScheduler_ImmediateTaskTimesOut(t *testing.T) {
	s, h, _ := newTestScheduler(t)

	var got []bool
	record := func(didTimeout bool) (Result, error) {
		got = append(got, didTimeout)
		return Done(), nil
	}
	s.ScheduleCallback(ImmediatePriority, record)
	s.ScheduleCallback(NormalPriority, record)
	h.Flush(0)

	if want := []bool{true, false}; !slices.Equal(got, want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", got, want)
	}
}

func TestScheduler_ReentrantSchedule(t *testing.T) {
	s, h, _ := newTestScheduler(t)

	var got []string
	outerCalls := 0
	s.ScheduleCallback(NormalPriority, done(func() {
		outerCalls++
		got = append(got, "outer")
		s.ScheduleCallback(ImmediatePriority, done(func() { got = append(got, "inner") }))
		if h.Posted() != 0 {
			t.Error("scheduling from inside a callback must not post a second turn")
		}
	}))

	if turns := h.Flush(0); turns != 1 {
		t.Errorf("expected a single turn, got %d", turns)
	}
	if want := []string{"outer", "inner"}; !slices.Equal(got, want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", got, want)
	}
	if outerCalls != 1 {
		t.Errorf("preempted task must not run again, got %d calls", outerCalls)
	}
	if ready, _ := s.Pending(); ready != 0 {
		t.Errorf("expected ready queue to be drained, got %d", ready)
	}
}

func TestScheduler_CallbackError(t *testing.T) {
	errBoom := errors.New("boom")
	var reported []error
	s, h, rec := newTestScheduler(t, WithErrorHandler(func(err error) {
		reported = append(reported, err)
	}))

	failing := 0
	task := s.ScheduleCallback(UserBlockingPriority, func(bool) (Result, error) {
		failing++
		return Done(), errBoom
	})
	nextRan := false
	s.ScheduleCallback(NormalPriority, done(func() { nextRan = true }))

	h.Step()
	if len(reported) != 1 || !errors.Is(reported[0], errBoom) {
		t.Fatalf("expected boom to be reported, got %v", reported)
	}
	if s.isPerformingWork || s.CurrentPriorityLevel() != NormalPriority {
		t.Errorf("state not restored: performing=%v priority=%s", s.isPerformingWork, s.CurrentPriorityLevel())
	}
	if h.Posted() != 1 {
		t.Fatalf("expected a new turn after the failure, got %d", h.Posted())
	}

	h.Flush(0)
	if failing != 1 {
		t.Errorf("failed task must not run again, got %d calls", failing)
	}
	if !nextRan {
		t.Error("expected the next task to run after the failure")
	}
	if want := []EventKind{EventTaskStart, EventTaskRun, EventTaskError}; !slices.Equal(rec.Kinds(task.TaskID()), want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", rec.Kinds(task.TaskID()), want)
	}
}

func TestScheduler_CallbackPanic(t *testing.T) {
	s, h, rec := newTestScheduler(t)

	panicking := 0
	task := s.ScheduleCallback(UserBlockingPriority, func(bool) (Result, error) {
		panicking++
		panic("boom")
	})
	nextRan := false
	s.ScheduleCallback(NormalPriority, done(func() { nextRan = true }))

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Fatalf("expected the panic to reach the host, got %v", r)
			}
		}()
		h.Step()
	}()

	if s.isPerformingWork {
		t.Error("performing-work guard left set after panic")
	}
	if s.CurrentPriorityLevel() != NormalPriority {
		t.Errorf("priority not restored after panic: %s", s.CurrentPriorityLevel())
	}
	if h.Posted() != 1 {
		t.Fatalf("expected a new turn after the panic, got %d", h.Posted())
	}

	h.Flush(0)
	if panicking != 1 {
		t.Errorf("panicking task must not run again, got %d calls", panicking)
	}
	if !nextRan {
		t.Error("expected the next task to run after the panic")
	}
	if want := []EventKind{EventTaskStart, EventTaskRun, EventTaskError}; !slices.Equal(rec.Kinds(task.TaskID()), want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", rec.Kinds(task.TaskID()), want)
	}
}

func TestScheduler_PauseAndContinue(t *testing.T) {
	s, h, _ := newTestScheduler(t)

	calls := 0
	s.PauseExecution()
	s.ScheduleCallback(NormalPriority, done(func() { calls++ }))
	h.Flush(0)
	if calls != 0 {
		t.Fatal("task ran while paused")
	}
	if h.Posted() != 0 {
		t.Fatalf("paused scheduler kept requesting turns: %d", h.Posted())
	}

	s.ContinueExecution()
	h.Flush(0)
	if calls != 1 {
		t.Errorf("expected task to run after continuing, got %d calls", calls)
	}

	s.ContinueExecution()
	if h.Posted() != 0 {
		t.Errorf("continuing with no work must not post a turn, got %d", h.Posted())
	}
}

func TestScheduler_DrainIsIdempotent(t *testing.T) {
	s, h, _ := newTestScheduler(t, WithConfig(noInputConfig()))

	ran := 0
	for i, p := range Priorities() {
		s.ScheduleCallback(p, done(func() {
			ran++
			h.Tick(2 * time.Millisecond)
		}), WithDelay(time.Duration(i)*15*time.Millisecond))
	}
	s.ScheduleCallback(NormalPriority, func(bool) (Result, error) {
		ran++
		return Continue(done(func() { ran++ })), nil
	})

	for i := 0; i < 100 && (h.Posted() > 0 || h.Timers() > 0); i++ {
		h.Flush(0)
		if due, ok := h.NextTimer(); ok {
			h.Advance(due - h.Now())
		}
	}

	if ran != 7 {
		t.Errorf("expected 7 callback invocations, got %d", ran)
	}
	if ready, delayed := s.Pending(); ready != 0 || delayed != 0 {
		t.Errorf("expected empty queues, got ready=%d delayed=%d", ready, delayed)
	}
	if n := h.Flush(0); n != 0 {
		t.Errorf("expected further flushes to be no-ops, ran %d", n)
	}
	if s.FirstCallbackNode() != nil {
		t.Error("expected no first callback node")
	}
}

func TestScheduler_EventStream(t *testing.T) {
	s, h, rec := newTestScheduler(t)

	task := s.ScheduleCallback(NormalPriority, done(func() {}))
	h.Flush(0)

	var kinds []EventKind
	for _, ev := range rec.Events() {
		kinds = append(kinds, ev.Kind)
	}
	want := []EventKind{EventTaskStart, EventSchedulerResume, EventTaskRun, EventTaskComplete, EventSchedulerSuspend}
	if !slices.Equal(kinds, want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", kinds, want)
	}
	for _, ev := range rec.Events() {
		if ev.TaskID != 0 && (ev.TaskID != task.TaskID() || ev.Priority != NormalPriority) {
			t.Errorf("unexpected task event %+v", ev)
		}
	}
}

func TestScheduler_EventStreamReset(t *testing.T) {
	s, h, rec := newTestScheduler(t)

	s.ScheduleCallback(NormalPriority, done(func() {}))
	h.Flush(0)
	rec.Reset()

	second := s.ScheduleCallback(LowPriority, done(func() {}))
	h.Flush(0)

	for _, ev := range rec.Events() {
		if ev.TaskID != 0 && ev.TaskID != second.TaskID() {
			t.Errorf("event from before Reset survived: %+v", ev)
		}
	}
	if want := []EventKind{EventTaskStart, EventTaskRun, EventTaskComplete}; !slices.Equal(rec.Kinds(second.TaskID()), want) {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", rec.Kinds(second.TaskID()), want)
	}
}

func TestScheduler_CancelPendingContinuation(t *testing.T) {
	s, h, _ := newTestScheduler(t)

	calls := 0
	var work Callback
	work = func(bool) (Result, error) {
		calls++
		return Continue(work), nil
	}
	task := s.ScheduleCallback(NormalPriority, work)

	if !h.Step() {
		t.Fatal("expected a turn to be posted")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call after the first turn, got %d", calls)
	}

	s.CancelCallback(task)
	h.Flush(0)

	if calls != 1 {
		t.Errorf("stale continuation ran: %d calls", calls)
	}
	if ready, delayed := s.Pending(); ready != 0 || delayed != 0 {
		t.Errorf("expected empty queues, got ready=%d delayed=%d", ready, delayed)
	}
	if h.Posted() != 0 || h.Timers() != 0 {
		t.Errorf("expected no pending host work, got posted=%d timers=%d", h.Posted(), h.Timers())
	}
}

func TestScheduler_CancelSelf(t *testing.T) {
	tests := map[string]struct {
		continues bool
		wantCalls int
	}{
		// The task is finished either way; a returned continuation is still
		// attached and runs once.
		"returns done":         {continues: false, wantCalls: 1},
		"returns continuation": {continues: true, wantCalls: 2},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, h, _ := newTestScheduler(t)
			calls := 0
			var task *Task
			task = s.ScheduleCallback(NormalPriority, func(bool) (Result, error) {
				calls++
				s.CancelCallback(task)
				if tt.continues {
					return Continue(done(func() { calls++ })), nil
				}
				return Done(), nil
			})
			h.Flush(0)

			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
			if ready, delayed := s.Pending(); ready != 0 || delayed != 0 {
				t.Errorf("expected empty queues, got ready=%d delayed=%d", ready, delayed)
			}
			if h.Posted() != 0 {
				t.Errorf("expected nothing posted, got %d", h.Posted())
			}
		})
	}
}

func TestScheduler_HugeDelayNeverRuns(t *testing.T) {
	tests := map[string]struct {
		priority Priority
		delay    time.Duration
	}{
		"max delay":             {NormalPriority, time.Duration(math.MaxInt64)},
		"delay plus idle limit": {IdlePriority, time.Duration(math.MaxInt64) - IdlePriorityTimeout/2},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, h, _ := newTestScheduler(t)
			h.Tick(time.Millisecond)

			calls := 0
			task := s.ScheduleCallback(tt.priority, done(func() { calls++ }), WithDelay(tt.delay))
			if task.StartTime() <= h.Now() {
				t.Fatalf("start time %v wrapped around", task.StartTime())
			}
			if task.ExpirationTime() < task.StartTime() {
				t.Errorf("expiration %v before start %v", task.ExpirationTime(), task.StartTime())
			}
			if ready, delayed := s.Pending(); ready != 0 || delayed != 1 {
				t.Errorf("expected one delayed task, got ready=%d delayed=%d", ready, delayed)
			}

			h.Flush(0)
			h.Advance(24 * time.Hour)
			h.Flush(0)
			if calls != 0 {
				t.Errorf("task with delay %v ran at %v", tt.delay, h.Now())
			}
		})
	}
}

func TestAddSat(t *testing.T) {
	tests := map[string]struct {
		a, b, want time.Duration
	}{
		"plain":          {time.Second, time.Millisecond, time.Second + time.Millisecond},
		"negative":       {time.Second, -time.Millisecond, time.Second - time.Millisecond},
		"overflow":       {time.Millisecond, math.MaxInt64, math.MaxInt64},
		"underflow":      {math.MinInt64 + 1, -time.Second, math.MinInt64},
		"at the ceiling": {math.MaxInt64, 0, math.MaxInt64},
	}
	for name, tt := range tests {
		if got := addSat(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: mismatch:\n  got:  %v\n  want: %v", name, got, tt.want)
		}
	}
}

func TestScheduler_WithClock(t *testing.T) {
	c := clock.NewManual(10 * time.Second)
	s, h, _ := newTestScheduler(t, WithClock(c))
	h.Tick(time.Hour)

	if s.Now() != 10*time.Second {
		t.Errorf("expected the injected clock, got %v", s.Now())
	}
	task := s.ScheduleCallback(NormalPriority, done(func() {}))
	if want := 10*time.Second + NormalPriorityTimeout; task.ExpirationTime() != want {
		t.Errorf("mismatch:\n  got:  %v\n  want: %v", task.ExpirationTime(), want)
	}

	c.Advance(time.Second)
	if s.Now() != 11*time.Second {
		t.Errorf("expected scheduler time to follow the clock, got %v", s.Now())
	}
}
