package scope

import (
	"context"
	"sync"
	"time"
)

// Observer receives lifecycle events for metrics/tracing. A nil Observer is
// skipped at every call site for near-zero overhead.
type Observer interface {
	ScopeEntered(ctx context.Context)
	ScopeExited(ctx context.Context, cancelled bool, reasons []CancelReason, dur time.Duration)
	TriggerFired(ctx context.Context, reason CancelReason)
	TriggerPanic(ctx context.Context, recovered any)
}

// Option configures a Scope at construction time.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver attaches an observer for metrics/tracing hooks (nil is the
// default and disables all hooks).
func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

// remainer is implemented by deadline-bearing Triggers (see triggers.Deadline).
type remainer interface {
	Remaining() time.Duration
}

// Scope is a per-use cancellation scope (spec.md §3). A Scope must not be
// entered more than once and is not shareable across host tasks.
type Scope struct {
	triggers []Trigger
	obs      Observer

	mu       sync.Mutex
	entered  bool
	settled  bool
	task     *Task
	ownsTask bool
	baseline int
	handles  []TriggerHandle
	token    *cancelToken
	reasons  []CancelReason

	remainers    []remainer
	enteredAt    time.Time
	remainingVal time.Duration
	lastCtx      context.Context
	sc           *scopedContext
}

// New creates a Scope guarded by the given Triggers. Zero Triggers is
// legal — such a Scope never cancels.
func New(triggers []Trigger, optFns ...Option) *Scope {
	o := options{}
	for _, fn := range optFns {
		fn(&o)
	}
	s := &Scope{triggers: triggers, obs: o.observer}
	for _, t := range triggers {
		if r, ok := t.(remainer); ok {
			s.remainers = append(s.remainers, r)
		}
	}
	return s
}

// Enter begins the scope (spec.md §4.2). It snapshots the host task's
// cancellation counter as the baseline, pre-checks every Trigger, and
// either schedules an immediate interruption (if any Trigger already holds)
// or arms every Trigger for later delivery. The returned context is what
// the wrapped body must select on; it is only valid until Exit is called.
func (s *Scope) Enter(parent context.Context) (context.Context, error) {
	if parent == nil {
		return nil, ErrNilContext
	}

	s.mu.Lock()
	if s.entered {
		s.mu.Unlock()
		return nil, ErrAlreadyEntered
	}
	s.entered = true
	s.mu.Unlock()

	task, ctxWithTask, created := CurrentTask(parent)
	s.task = task
	s.ownsTask = created
	s.baseline = task.Counter()
	s.enteredAt = time.Now()
	s.lastCtx = ctxWithTask

	if s.obs != nil {
		s.obs.ScopeEntered(ctxWithTask)
	}

	var preReasons []CancelReason
	for _, trig := range s.triggers {
		if reason, ok := trig.Check(); ok {
			preReasons = append(preReasons, reason)
		}
	}

	sc := newScopedContext(ctxWithTask, task, s.baseline)
	s.sc = sc

	if len(preReasons) > 0 {
		s.mu.Lock()
		s.reasons = append(s.reasons, preReasons...)
		s.mu.Unlock()
		for _, r := range preReasons {
			if s.obs != nil {
				s.obs.TriggerFired(ctxWithTask, r)
			}
		}
		s.token = scheduleInterruption(task, s.baseline, s.onTriggerPanic(ctxWithTask))
		return sc, nil
	}

	for _, trig := range s.triggers {
		h, err := trig.Arm(task, s.onTriggerFired(ctxWithTask))
		if err != nil {
			// Roll back any triggers armed before the failing one so Exit
			// still disarms a consistent set.
			for _, armed := range s.handles {
				armed.Disarm()
			}
			sc.close()
			if created {
				task.Close()
			}
			return nil, err
		}
		s.handles = append(s.handles, h)
	}

	return sc, nil
}

// onTriggerFired is invoked by an armed Trigger — always from the Task's
// dispatcher, never synchronously — the first time its condition becomes
// true. A panic raised while handling the firing is recovered and reported
// through the Observer's TriggerPanic hook.
func (s *Scope) onTriggerFired(ctx context.Context) func(CancelReason) {
	return func(reason CancelReason) {
		defer func() {
			if r := recover(); r != nil {
				s.onTriggerPanic(ctx)(r)
			}
		}()
		s.mu.Lock()
		first := len(s.reasons) == 0
		s.reasons = append(s.reasons, reason)
		s.mu.Unlock()

		if s.obs != nil {
			s.obs.TriggerFired(ctx, reason)
		}
		if first {
			s.token = scheduleInterruption(s.task, s.baseline, s.onTriggerPanic(ctx))
		}
	}
}

func (s *Scope) onTriggerPanic(ctx context.Context) func(any) {
	return func(r any) {
		if s.obs != nil {
			s.obs.TriggerPanic(ctx, r)
		}
	}
}

// Exit ends the scope (spec.md §4.2), given the error (if any) propagating
// out of the body. It disarms every Trigger, resolves the pending
// CancelToken (if one was scheduled), and either swallows bodyErr (when it
// is ErrInterrupted and this Scope owns that interruption) or returns it
// unchanged.
func (s *Scope) Exit(bodyErr error) error {
	for _, h := range s.handles {
		h.Disarm()
	}
	if s.sc != nil {
		s.sc.close()
	}

	suppress := false
	if s.token != nil {
		suppress = s.token.resolve(bodyErr)
	}

	s.mu.Lock()
	s.settled = true
	if len(s.remainers) > 0 {
		s.remainingVal = s.minRemainingLocked()
	}
	reasonsCopy := append([]CancelReason(nil), s.reasons...)
	cancelled := len(reasonsCopy) > 0
	s.mu.Unlock()

	if s.obs != nil {
		s.obs.ScopeExited(s.lastCtx, cancelled, reasonsCopy, time.Since(s.enteredAt))
	}

	if s.ownsTask {
		s.task.Close()
	}

	if suppress {
		return nil
	}
	return bodyErr
}

// Run is the recommended scoped-acquisition form: Enter, run body, Exit —
// in all three exit paths (normal return, error return, panic) exactly
// once. A panicking body is never suppressed or converted into a
// cancellation: Exit still runs (disarming triggers, resolving the token
// with a non-cancellation outcome) but the panic always re-propagates
// after it, per spec.md §7's "other body exceptions" row.
func (s *Scope) Run(parent context.Context, body func(context.Context) error) error {
	ctx, enterErr := s.Enter(parent)
	if enterErr != nil {
		return enterErr
	}

	var bodyErr error
	var panicVal any
	func() {
		defer func() { panicVal = recover() }()
		bodyErr = body(ctx)
	}()

	exitErr := s.Exit(bodyErr)
	if panicVal != nil {
		panic(panicVal)
	}
	return exitErr
}

// Cancelled reports whether at least one Reason was recorded. Valid only
// after Exit.
func (s *Scope) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reasons) > 0
}

// Reasons returns the recorded reasons in firing order. Valid only after
// Exit.
func (s *Scope) Reasons() []CancelReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CancelReason(nil), s.reasons...)
}

// CancelledBy reports whether any recorded Reason's code equals code.
func (s *Scope) CancelledBy(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reasons {
		if r.Code() == code {
			return true
		}
	}
	return false
}

// Remaining returns the minimum remaining budget across this Scope's
// deadline-bearing Triggers, or ErrNoDeadline if it holds none. While
// active it reflects the live remaining budget; after Exit it returns the
// value sampled at exit.
func (s *Scope) Remaining() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.remainers) == 0 {
		return 0, ErrNoDeadline
	}
	if s.settled {
		return s.remainingVal, nil
	}
	return s.minRemainingLocked(), nil
}

// minRemainingLocked must be called with s.mu held.
func (s *Scope) minRemainingLocked() time.Duration {
	least := time.Duration(1<<63 - 1)
	for _, r := range s.remainers {
		if d := r.Remaining(); d < least {
			least = d
		}
	}
	return least
}
