package scope

import (
	"errors"
	"sync"
)

type tokenState int

const (
	tokenScheduled tokenState = iota
	tokenDelivered
	tokenRescinded
)

// cancelToken encapsulates exactly one scheduled-but-not-yet-delivered
// interruption of a Task, and settles its state at Scope exit (spec.md
// §4.3). A Scope owns at most one cancelToken at a time.
type cancelToken struct {
	mu       sync.Mutex
	state    tokenState
	task     *Task
	baseline int
	handle   *scheduledHandle
}

// scheduleInterruption creates a token and asks the dispatcher to deliver
// the interruption on its next tick — deferred, not synchronous, so that a
// body completing synchronously before the tick runs never actually
// observes a cancellation (spec.md §4.3, edge case "synchronous body,
// pre-triggered").
func scheduleInterruption(task *Task, baseline int, onPanic func(any)) *cancelToken {
	tok := &cancelToken{task: task, baseline: baseline, state: tokenScheduled}
	tok.handle = task.dispatcherFor().scheduleSoon(func() {
		tok.mu.Lock()
		defer tok.mu.Unlock()
		if tok.state != tokenScheduled {
			return
		}
		tok.state = tokenDelivered
		tok.task.CancelRequest()
	}, onPanic)
	return tok
}

// resolve settles the token at Scope exit given the error propagating out
// of the body, and reports whether that error should be suppressed
// (swallowed) by the Scope.
func (tok *cancelToken) resolve(bodyErr error) (suppress bool) {
	tok.mu.Lock()
	defer tok.mu.Unlock()

	switch tok.state {
	case tokenScheduled:
		// Never delivered: the body completed before the dispatcher tick.
		tok.handle.cancel()
		tok.state = tokenRescinded
		return false

	case tokenDelivered:
		newCounter := tok.task.UncancelRequest()
		if errors.Is(bodyErr, ErrInterrupted) && newCounter <= tok.baseline {
			// No outer scope also requested cancellation: we own it.
			return true
		}
		return false

	default: // tokenRescinded — resolve is called at most once in practice.
		return false
	}
}
