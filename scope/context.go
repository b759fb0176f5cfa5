package scope

import (
	"context"
	"errors"
	"sync"
	"time"
)

// scopedContext merges a parent context.Context with a Task's interruption
// signal into one ordinary context.Context, so a Scope's body only ever
// needs to select on a single Done() channel regardless of which source —
// an inherited parent cancellation or this Task's own counter — caused it.
//
// Done()/Err() track this Scope's own baseline, not the raw shared
// Interrupted() channel: the Task's counter is shared with every other
// Scope riding the same Task, so a sibling Scope's trigger firing (and
// later suppressing its own interruption) must not permanently latch this
// Scope's ctx as done. Done() reopens once the counter drops back to (or
// below) the baseline observed at Enter, mirroring Task.Interrupted's own
// "re-fetched, not cached" contract — only a parent cancellation is
// permanent.
type scopedContext struct {
	parent   context.Context
	task     *Task
	baseline int
	stop     chan struct{}
	stopOnce sync.Once

	mu   sync.Mutex
	done chan struct{}
	err  error
}

func newScopedContext(parent context.Context, task *Task, baseline int) *scopedContext {
	sc := &scopedContext{
		parent:   parent,
		task:     task,
		baseline: baseline,
		done:     make(chan struct{}),
		stop:     make(chan struct{}),
	}
	go sc.watch()
	return sc
}

func (sc *scopedContext) watch() {
	for {
		// Fetch the change channel before reading the counter so a mutation
		// landing between the two still wakes the select below.
		changed := sc.task.Changed()
		if sc.task.Counter() > sc.baseline {
			sc.fire(ErrInterrupted)
		} else {
			sc.reopen()
		}

		select {
		case <-sc.parent.Done():
			sc.fire(sc.parent.Err())
			return
		case <-changed:
		case <-sc.stop:
			return
		}
	}
}

// fire closes the current done channel (unless already closed) and records
// err as the reason observed on it.
func (sc *scopedContext) fire(err error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	select {
	case <-sc.done:
	default:
		sc.err = err
		close(sc.done)
	}
}

// reopen restores a fresh, open Done() channel once this Scope's own share
// of an outstanding interruption has cleared. It never undoes a parent
// cancellation, which is permanent.
func (sc *scopedContext) reopen() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	select {
	case <-sc.done:
		if errors.Is(sc.err, ErrInterrupted) {
			sc.done = make(chan struct{})
			sc.err = nil
		}
	default:
	}
}

func (sc *scopedContext) Deadline() (time.Time, bool) { return sc.parent.Deadline() }

func (sc *scopedContext) Done() <-chan struct{} {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.done
}

func (sc *scopedContext) Err() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.err
}

func (sc *scopedContext) Value(key any) any { return sc.parent.Value(key) }

// close stops the watcher goroutine; idempotent and safe after the watcher
// has already fired and exited on its own.
func (sc *scopedContext) close() {
	sc.stopOnce.Do(func() { close(sc.stop) })
}
