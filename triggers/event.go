package triggers

import (
	"fmt"
	"sync"

	"github.com/cancelkit/cancelscope/scope"
)

// Signal is a one-shot broadcast modeled directly on the DOM
// AbortController/AbortSignal pair: Fire is the controller side (called at
// most once; later calls are no-ops), and a Signal itself is the consumer
// side threaded through to an Event trigger. A Signal that has already
// fired delivers to a waiter added after the fact exactly as if it had
// fired at that instant — there is no way to miss a firing by arming late.
type Signal struct {
	mu      sync.Mutex
	fired   bool
	reason  any
	waiters map[*signalWaiter]struct{}
}

type signalWaiter struct {
	deliver func(any)
}

// NewSignal returns a Signal that has not fired.
func NewSignal() *Signal {
	return &Signal{waiters: make(map[*signalWaiter]struct{})}
}

// Fire broadcasts reason to every Event trigger currently armed against
// this Signal, and latches it for any armed afterward. Only the first call
// has any effect.
func (s *Signal) Fire(reason any) {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return
	}
	s.fired = true
	s.reason = reason
	waiters := make([]*signalWaiter, 0, len(s.waiters))
	for w := range s.waiters {
		waiters = append(waiters, w)
	}
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		w.deliver(reason)
	}
}

// Fired reports whether Fire has been called, and the reason it was called
// with.
func (s *Signal) Fired() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason, s.fired
}

// addWaiter registers w to be notified when the Signal fires, or notifies
// it immediately (still via the caller, synchronously) if it already has.
// The returned func removes the registration; safe to call after the
// Signal has already fired.
func (s *Signal) addWaiter(w *signalWaiter) (remove func()) {
	s.mu.Lock()
	if s.fired {
		reason := s.reason
		s.mu.Unlock()
		w.deliver(reason)
		return func() {}
	}
	s.waiters[w] = struct{}{}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.waiters, w)
		s.mu.Unlock()
	}
}

// Event is a Trigger that fires when its Signal does. code, if non-empty,
// becomes the recorded CancelReason's Code so a Scope can tell apart
// several distinct Event triggers with CancelledBy.
type Event struct {
	signal *Signal
	code   string
}

// NewEvent returns an Event trigger bound to signal. code may be empty.
func NewEvent(signal *Signal, code string) *Event {
	return &Event{signal: signal, code: code}
}

func (e *Event) reason(firedWith any) scope.CancelReason {
	message := "event signal fired"
	if firedWith != nil {
		message = fmt.Sprintf("event signal fired: %v", firedWith)
	}
	return scope.NewCancelReason(scope.KindEvent, message, e.code)
}

// Check implements scope.Trigger.
func (e *Event) Check() (scope.CancelReason, bool) {
	if firedWith, ok := e.signal.Fired(); ok {
		return e.reason(firedWith), true
	}
	return scope.CancelReason{}, false
}

// Arm implements scope.Trigger. The Signal may call back synchronously
// (when it has already fired) or later from whatever goroutine calls
// Fire; either way actual delivery to deliver is relayed through
// task.ScheduleSoon so it is always serialized on the Task's dispatcher.
func (e *Event) Arm(task *scope.Task, deliver func(scope.CancelReason)) (scope.TriggerHandle, error) {
	h := &eventHandle{}
	w := &signalWaiter{
		deliver: func(firedWith any) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.disarmed {
				return
			}
			h.schedCancel = task.ScheduleSoon(func() { deliver(e.reason(firedWith)) })
		},
	}
	h.remove = e.signal.addWaiter(w)
	return h, nil
}

type eventHandle struct {
	mu          sync.Mutex
	disarmed    bool
	remove      func()
	schedCancel func()
}

// Disarm implements scope.TriggerHandle.
func (h *eventHandle) Disarm() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disarmed {
		return
	}
	h.disarmed = true
	if h.remove != nil {
		h.remove()
	}
	if h.schedCancel != nil {
		h.schedCancel()
	}
}
