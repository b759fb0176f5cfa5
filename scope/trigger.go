package scope

import "errors"

// Misuse errors, surfaced to the caller as programming errors per spec.md
// §7's error taxonomy — none of them is recoverable by retrying.
var (
	// ErrAlreadyEntered is returned by Enter on a Scope that was already
	// entered once (spec.md §9: re-entrancy is forbidden).
	ErrAlreadyEntered = errors.New("scope: already entered")
	// ErrNilContext is returned by Enter when called with a nil parent
	// context.
	ErrNilContext = errors.New("scope: nil parent context")
	// ErrNoDeadline is returned by Remaining on a Scope holding no
	// deadline-bearing Trigger.
	ErrNoDeadline = errors.New("scope: no deadline trigger in this scope")
)

// ErrInterrupted is the single, non-subclassed cancellation sentinel
// (spec.md §7): a Scope's body observes this (via ctx.Err(), compared with
// errors.Is) when any Trigger fires or an outer cancellation source raises
// the host Task's counter. There are deliberately no subtypes — a task
// group dispatching on cancellation by identity, or a body's own error
// handling, must not be able to misclassify or inadvertently intercept a
// Scope-owned cancellation.
var ErrInterrupted = errors.New("scope: interrupted")

// Trigger defines "when should cancellation fire?" (spec.md §4.1). A
// Trigger is stateless with respect to any one Scope and may be reused
// across several.
type Trigger interface {
	// Check is synchronous and side-effect-free (or at worst idempotent).
	// It returns a reason and true iff the cancellation condition already
	// holds; it must not block or suspend.
	Check() (CancelReason, bool)

	// Arm registers deliver to be invoked exactly once when the condition
	// becomes true, always from task's dispatcher — never synchronously,
	// even if the condition is already true (Scope handles that case via
	// Check). The returned handle disarms the registration.
	Arm(task *Task, deliver func(CancelReason)) (TriggerHandle, error)
}

// TriggerHandle is a live, one-shot registration of an armed Trigger
// (spec.md §3). Disarm must be idempotent and safe to call both before and
// after the handle has fired.
type TriggerHandle interface {
	Disarm()
}
