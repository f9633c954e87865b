package host

import (
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
)

// Goja runs the scheduler on a goja_nodejs event loop, alongside JavaScript
// timers and callbacks.
type Goja struct {
	loop *eventloop.EventLoop
}

// NewGoja wraps loop.
func NewGoja(loop *eventloop.EventLoop) *Goja {
	return &Goja{loop: loop}
}

// Loop returns the wrapped event loop.
func (g *Goja) Loop() *eventloop.EventLoop {
	return g.loop
}

// Post uses a zero-delay timer rather than RunOnLoop: a pending timer keeps
// EventLoop.Run from returning while the scheduler still has work.
func (g *Goja) Post(fn func()) {
	g.loop.SetTimeout(func(*goja.Runtime) { fn() }, 0)
}

// AfterFunc arms a loop timer.
func (g *Goja) AfterFunc(d time.Duration, fn func()) func() {
	t := g.loop.SetTimeout(func(*goja.Runtime) { fn() }, d)
	return func() {
		g.loop.ClearTimeout(t)
	}
}
