package scope

import (
	"context"
	"sync"
)

// taskKey is the context.Value key under which a *Task rides so nested
// Scopes can find and reuse the Task installed by the outermost one.
type taskKey struct{}

// Task stands in for "the current host task" that spec.md §6 assumes the
// host runtime provides: a task with an integer cancellation-request
// counter, incremented by CancelRequest and decremented by
// UncancelRequest. The counter is the single source of truth nested Scopes
// use to decide ownership of a cancellation (§4.3): a Scope suppresses a
// propagating interruption only if, once it undoes its own request, the
// counter is back at the baseline it observed on entry — anything higher
// means some other party (an outer Scope, or an interop/taskgroup.Group)
// also wants this task interrupted, and must be left to find out for
// itself.
//
// Interrupted returns a channel that is closed while the counter is
// positive and replaced with a fresh, open channel the instant the counter
// returns to zero, so that code running on the same Task after a Scope has
// settled never observes a stale interruption from that Scope.
type Task struct {
	mu         sync.Mutex
	counter    int
	interrupt  chan struct{}
	changed    chan struct{}
	dispatcher *dispatcher
}

// NewTask creates a standalone Task with its own dispatcher. Most callers
// should use CurrentTask instead so nested Scopes share one Task.
func NewTask() *Task {
	return &Task{
		interrupt:  make(chan struct{}),
		changed:    make(chan struct{}),
		dispatcher: newDispatcher(),
	}
}

// CurrentTask returns the *Task riding on ctx, and a context carrying it,
// creating one only if ctx doesn't already carry one. The boolean result
// reports whether a new Task was created (and is therefore owned by the
// caller, responsible for eventually calling Close).
func CurrentTask(ctx context.Context) (*Task, context.Context, bool) {
	if t, ok := ctx.Value(taskKey{}).(*Task); ok {
		return t, ctx, false
	}
	t := NewTask()
	return t, context.WithValue(ctx, taskKey{}, t), true
}

// Counter reports the current cancellation-request counter.
func (t *Task) Counter() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counter
}

// Interrupted returns the channel to select on at a suspension point. It is
// re-fetched (not cached across suspension points) so that code observes a
// reopened channel once every outstanding cancellation request has been
// undone.
func (t *Task) Interrupted() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interrupt
}

// CancelRequest increments the counter, closing the interruption channel on
// the 0→positive transition, and returns the new counter value.
func (t *Task) CancelRequest() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counter == 0 {
		close(t.interrupt)
	}
	t.counter++
	t.notifyChangeLocked()
	return t.counter
}

// UncancelRequest decrements the counter, replacing the interruption
// channel with a fresh, open one on the positive→0 transition, and returns
// the new counter value. Calling UncancelRequest when the counter is
// already 0 is a no-op (mirrors the saturating behavior of matching
// cancel/uncancel pairs being called more times than they should).
func (t *Task) UncancelRequest() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counter == 0 {
		return 0
	}
	t.counter--
	if t.counter == 0 {
		t.interrupt = make(chan struct{})
	}
	t.notifyChangeLocked()
	return t.counter
}

// notifyChangeLocked closes and replaces the change channel on every
// counter mutation, not just 0-transitions, so a watcher comparing the
// counter against a non-zero baseline (a Scope nested under an already
// part-cancelled Task) can wake on every step instead of only the
// all-the-way-to-zero transition Interrupted reopens on. Must be called
// with t.mu held.
func (t *Task) notifyChangeLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}

// Changed returns a channel that closes the next time the counter is
// mutated by CancelRequest or UncancelRequest, re-fetched the same way as
// Interrupted so a watcher never misses or double-counts a transition.
func (t *Task) Changed() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}

// dispatcherFor exposes the Task's dispatcher to Triggers arming through it.
func (t *Task) dispatcherFor() *dispatcher { return t.dispatcher }

// ScheduleSoon defers fn to run on the Task's single dispatcher goroutine —
// never synchronously — returning a function that cancels fn if it hasn't
// run yet. Stock and user Triggers use this to relay their own firing
// (timer expiry, an external signal) through the Task's dispatcher so every
// firing for one Task is serialized, per spec.md §4.1's rule that Arm "must
// not itself deliver the callback synchronously".
func (t *Task) ScheduleSoon(fn func()) (cancel func()) {
	h := t.dispatcher.scheduleSoon(fn, nil)
	return h.cancel
}

// Close stops the Task's dispatcher goroutine. Only the Scope that created
// the Task (CurrentTask's created=true result) should call this, once it
// is certain no more Scopes will reuse the Task.
func (t *Task) Close() { t.dispatcher.stop() }
