package scope

import "sync/atomic"

// dispatcher is the stand-in for spec.md §6's "dispatcher supporting
// one-shot deferred callbacks that can be cancelled before they run". It is
// a single goroutine draining a queue in order, so every scheduled callback
// — a Trigger firing, a CancelToken's scheduled interruption — is
// serialized with respect to every other one, exactly as §5 requires,
// without any caller needing its own lock.
type dispatcher struct {
	queue chan func()
	stop_ chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		queue: make(chan func(), 64),
		stop_: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	for {
		select {
		case fn := <-d.queue:
			fn()
		case <-d.stop_:
			return
		}
	}
}

// scheduledHandle cancels a callback scheduled via scheduleSoon before it
// runs. Cancelling after it has already run is a safe no-op.
type scheduledHandle struct {
	cancelled atomic.Bool
}

func (h *scheduledHandle) cancel() { h.cancelled.Store(true) }

// scheduleSoon enqueues fn to run on the dispatcher goroutine on its next
// tick — deferred, never synchronous, per spec.md §4.3's "why deferred, not
// synchronous" rule. A panic inside fn is recovered and handed to onPanic
// (if non-nil) rather than killing the dispatcher goroutine or blocking
// callbacks queued behind it, per spec.md §7's Trigger-callback-exception
// isolation requirement. The returned handle cancels fn if it hasn't run
// yet.
func (d *dispatcher) scheduleSoon(fn func(), onPanic func(any)) *scheduledHandle {
	h := &scheduledHandle{}
	d.queue <- func() {
		if h.cancelled.Load() {
			return
		}
		defer func() {
			if r := recover(); r != nil && onPanic != nil {
				onPanic(r)
			}
		}()
		fn()
	}
	return h
}

func (d *dispatcher) stop() {
	select {
	case <-d.stop_:
	default:
		close(d.stop_)
	}
}
