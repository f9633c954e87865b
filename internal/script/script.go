// Package script exposes a Scheduler to JavaScript running on a goja runtime.
//
// Install defines a global scheduler object whose functions mirror the
// Scheduler's methods. Scheduled JavaScript callbacks receive didTimeout and
// may return a function to continue the same task on a later turn. A thrown
// exception becomes the task's error.
//
// The runtime is not goroutine safe, so the scheduler must be driven by the
// goroutine that owns vm, normally through host.Goja.
package script

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dop251/goja"

	"coopsched/internal/sched"
)

var constantNames = map[sched.Priority]string{
	sched.ImmediatePriority:    "ImmediatePriority",
	sched.UserBlockingPriority: "UserBlockingPriority",
	sched.NormalPriority:       "NormalPriority",
	sched.LowPriority:          "LowPriority",
	sched.IdlePriority:         "IdlePriority",
}

type binding struct {
	vm *goja.Runtime
	s  *sched.Scheduler
}

// Install sets the global scheduler object on vm.
func Install(vm *goja.Runtime, s *sched.Scheduler) error {
	b := &binding{vm: vm, s: s}
	obj := vm.NewObject()

	funcs := []struct {
		name string
		fn   func(goja.FunctionCall) goja.Value
	}{
		{"scheduleCallback", b.scheduleCallback},
		{"cancelCallback", b.cancelCallback},
		{"shouldYield", b.shouldYield},
		{"requestPaint", b.requestPaint},
		{"now", b.now},
		{"getCurrentPriorityLevel", b.currentPriorityLevel},
		{"runWithPriority", b.runWithPriority},
		{"next", b.next},
		{"wrapCallback", b.wrapCallback},
		{"forceFrameRate", b.forceFrameRate},
		{"pauseExecution", b.pauseExecution},
		{"continueExecution", b.continueExecution},
		{"getFirstCallbackNode", b.firstCallbackNode},
	}
	for _, f := range funcs {
		if err := obj.Set(f.name, f.fn); err != nil {
			return fmt.Errorf("script: set %s: %w", f.name, err)
		}
	}
	for _, p := range sched.Priorities() {
		if err := obj.Set(constantNames[p], int(p)); err != nil {
			return fmt.Errorf("script: set %s: %w", constantNames[p], err)
		}
	}
	return vm.Set("scheduler", obj)
}

// priority accepts a level number or a level name such as "user-blocking".
func (b *binding) priority(v goja.Value) sched.Priority {
	if s, ok := v.Export().(string); ok {
		p, _ := sched.ParsePriority(s)
		return p
	}
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return sched.NormalPriority
	}
	return sched.Priority(v.ToInteger())
}

func (b *binding) function(v goja.Value, op string) goja.Callable {
	fn, ok := goja.AssertFunction(v)
	if !ok {
		panic(b.vm.NewTypeError("scheduler.%s: callback is not a function", op))
	}
	return fn
}

// throw rethrows err into JavaScript, keeping the original value when err
// came from a JavaScript exception.
func (b *binding) throw(err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex.Value())
	}
	panic(b.vm.NewGoError(err))
}

func (b *binding) callback(fn goja.Callable) sched.Callback {
	return func(didTimeout bool) (sched.Result, error) {
		ret, err := fn(goja.Undefined(), b.vm.ToValue(didTimeout))
		if err != nil {
			return sched.Done(), err
		}
		if next, ok := goja.AssertFunction(ret); ok {
			return sched.Continue(b.callback(next)), nil
		}
		return sched.Done(), nil
	}
}

func (b *binding) scheduleCallback(call goja.FunctionCall) goja.Value {
	p := b.priority(call.Argument(0))
	fn := b.function(call.Argument(1), "scheduleCallback")

	var opts []sched.ScheduleOption
	if o := call.Argument(2); !goja.IsUndefined(o) && !goja.IsNull(o) {
		if obj, ok := o.(*goja.Object); ok {
			if d := obj.Get("delay"); d != nil && !goja.IsUndefined(d) {
				if ms := d.ToFloat(); ms > 0 {
					opts = append(opts, sched.WithDelay(fromMillis(ms)))
				}
			}
		}
	}
	return b.vm.ToValue(b.s.ScheduleCallback(p, b.callback(fn), opts...))
}

func (b *binding) task(v goja.Value) *sched.Task {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	t, _ := v.Export().(*sched.Task)
	return t
}

func (b *binding) cancelCallback(call goja.FunctionCall) goja.Value {
	if t := b.task(call.Argument(0)); t != nil {
		b.s.CancelCallback(t)
	}
	return goja.Undefined()
}

func (b *binding) shouldYield(goja.FunctionCall) goja.Value {
	return b.vm.ToValue(b.s.ShouldYield())
}

func (b *binding) requestPaint(goja.FunctionCall) goja.Value {
	b.s.RequestPaint()
	return goja.Undefined()
}

func (b *binding) now(goja.FunctionCall) goja.Value {
	return b.vm.ToValue(toMillis(b.s.Now()))
}

func (b *binding) currentPriorityLevel(goja.FunctionCall) goja.Value {
	return b.vm.ToValue(int(b.s.CurrentPriorityLevel()))
}

func (b *binding) runWithPriority(call goja.FunctionCall) goja.Value {
	p := b.priority(call.Argument(0))
	fn := b.function(call.Argument(1), "runWithPriority")

	var ret goja.Value
	err := b.s.RunWithPriority(p, func() error {
		var err error
		ret, err = fn(goja.Undefined())
		return err
	})
	if err != nil {
		b.throw(err)
	}
	return ret
}

func (b *binding) next(call goja.FunctionCall) goja.Value {
	fn := b.function(call.Argument(0), "next")

	var ret goja.Value
	err := b.s.Next(func() error {
		var err error
		ret, err = fn(goja.Undefined())
		return err
	})
	if err != nil {
		b.throw(err)
	}
	return ret
}

func (b *binding) wrapCallback(call goja.FunctionCall) goja.Value {
	fn := b.function(call.Argument(0), "wrapCallback")

	// The level is captured now; each call gets its own arguments and result.
	parent := b.s.CurrentPriorityLevel()
	return b.vm.ToValue(func(c goja.FunctionCall) goja.Value {
		var ret goja.Value
		err := b.s.RunWithPriority(parent, func() error {
			var err error
			ret, err = fn(c.This, c.Arguments...)
			return err
		})
		if err != nil {
			b.throw(err)
		}
		return ret
	})
}

func (b *binding) forceFrameRate(call goja.FunctionCall) goja.Value {
	// Out-of-range rates are logged by the scheduler and otherwise ignored.
	_ = b.s.ForceFrameRate(int(call.Argument(0).ToInteger()))
	return goja.Undefined()
}

func (b *binding) pauseExecution(goja.FunctionCall) goja.Value {
	b.s.PauseExecution()
	return goja.Undefined()
}

func (b *binding) continueExecution(goja.FunctionCall) goja.Value {
	b.s.ContinueExecution()
	return goja.Undefined()
}

func (b *binding) firstCallbackNode(goja.FunctionCall) goja.Value {
	t := b.s.FirstCallbackNode()
	if t == nil {
		return goja.Null()
	}
	return b.vm.ToValue(t)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// fromMillis converts a JavaScript millisecond count. Values past the
// Duration range, Infinity included, become the largest Duration.
func fromMillis(ms float64) time.Duration {
	if ms >= float64(math.MaxInt64)/float64(time.Millisecond) {
		return math.MaxInt64
	}
	return time.Duration(ms * float64(time.Millisecond))
}
