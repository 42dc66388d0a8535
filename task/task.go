// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package task

import (
	"context"
	"sync"
)

// cell is the shared slot between a Promise and its Task. Naive
// implementations allocate this on the heap unconditionally; we do the
// same here for simplicity; callers that allocate tasks profusely and can
// keep the promise and task in the same scope are the ones who would
// benefit from inlining it, and can use Resolved/Failed/Go to avoid the
// split allocation entirely when no external producer is involved.
type cell[T any] struct {
	mu   sync.Mutex
	done chan struct{}

	finished  bool
	cancelled bool
	value     T
	err       error

	hasCont bool
	contCtx context.Context
	cont    func(T, error)
}

// Promise is the producer half of a Task.
type Promise[T any] struct {
	c *cell[T]
}

// Task is the consumer half of a Promise.
type Task[T any] struct {
	c *cell[T]
}

// New allocates a linked Promise/Task pair for a value of type T.
func New[T any]() (*Promise[T], *Task[T]) {
	c := &cell[T]{done: make(chan struct{})}
	return &Promise[T]{c: c}, &Task[T]{c: c}
}

// Resolved returns a task that has already finished with value.
func Resolved[T any](value T) *Task[T] {
	p, t := New[T]()
	p.Finish(value)
	return t
}

// Failed returns a task that has already finished with err.
func Failed[T any](err error) *Task[T] {
	p, t := New[T]()
	p.FinishError(err)
	return t
}

// Go runs fn on a new goroutine and returns a task for its result.
func Go[T any](fn func() (T, error)) *Task[T] {
	p, t := New[T]()
	go func() {
		v, err := fn()
		p.finish(v, err)
	}()
	return t
}

// Cancelled reports whether the consumer side has abandoned the task. A
// producer still computing a result may check this to skip unnecessary
// work; it is advisory only and does not itself stop anything.
func (p *Promise[T]) Cancelled() bool {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	return p.c.cancelled
}

// Finish stores value as the task's result. If a continuation has been
// registered via Then and its context (if any) is still alive, the
// continuation is scheduled to run on its own goroutine; it never runs
// synchronously inside Finish. Finish must be called at most once per
// promise; a second call is a programming error that is diagnosed rather
// than silently accepted (see report_debug.go and report_release.go).
func (p *Promise[T]) Finish(value T) { p.finish(value, nil) }

// FinishError completes the task with an error instead of a value.
func (p *Promise[T]) FinishError(err error) {
	var zero T
	p.finish(zero, err)
}

func (p *Promise[T]) finish(value T, err error) {
	c := p.c
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		reportDoubleFinish()
		return
	}
	c.finished = true
	c.value, c.err = value, err
	close(c.done)

	cont, ctx, has, cancelled := c.cont, c.contCtx, c.hasCont, c.cancelled
	c.mu.Unlock()

	if has && !cancelled && contextAlive(ctx) {
		go cont(value, err)
	}
}

// Wait blocks the calling goroutine until the task completes or ctx is
// done, whichever comes first. It consumes nothing; a Task may be Waited
// on repeatedly by a single owner, though only one owner should ever hold
// it per the single-consumer contract.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.c.done:
		t.c.mu.Lock()
		v, err := t.c.value, t.c.err
		t.c.mu.Unlock()
		return v, err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel marks the task as cancelled. A continuation that has not yet run
// is dropped without running; a continuation registered afterward via Then
// is similarly never invoked. Cancel is idempotent and safe to call from
// any goroutine.
func (t *Task[T]) Cancel() {
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
	c.hasCont = false
	c.cont = nil
}

// Cancelled reports whether Cancel has been called on this task.
func (t *Task[T]) Cancelled() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.c.cancelled
}

// Then registers fn to run with t's eventual result and returns a new Task
// for fn's return value, consuming t in the process. If ctx is non-nil and
// is done by the time t completes, fn is dropped instead of invoked and the
// returned task is never completed. fn always runs on its own goroutine,
// even if t has already finished, so that callers never observe a
// re-entrant invocation from inside Then itself.
//
// Then must only be called once per task; a second call is a programming
// error (the underlying cell's continuation slot would simply be
// overwritten, silently discarding the first registration).
func Then[T, U any](t *Task[T], ctx context.Context, fn func(T, error) (U, error)) *Task[U] {
	np, nt := New[U]()
	c := t.c

	c.mu.Lock()
	if c.finished {
		value, err, cancelled := c.value, c.err, c.cancelled
		c.mu.Unlock()
		if !cancelled && contextAlive(ctx) {
			go func() {
				v, e := fn(value, err)
				np.finish(v, e)
			}()
		}
		return nt
	}
	c.hasCont = true
	c.contCtx = ctx
	c.cont = func(value T, err error) {
		v, e := fn(value, err)
		np.finish(v, e)
	}
	c.mu.Unlock()
	return nt
}

func contextAlive(ctx context.Context) bool {
	if ctx == nil {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	default:
		return true
	}
}
