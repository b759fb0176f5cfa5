// Package scope provides a multi-source cancellation scope for cooperative,
// single-threaded-per-task asynchronous Go code.
//
// A Scope is entered around a region of work with one or more Triggers
// (deadline expiry, an external one-shot event, or a user-defined
// condition). When any Trigger fires, the wrapped body is interrupted at
// its next suspension point (a select on the context returned by Enter).
// On Exit the Scope reports whether cancellation occurred and which
// Trigger(s) caused it; code after the Scope resumes normally.
//
// Go's context.Context has no notion of the counting, reopenable
// cancellation primitive this package's hardest problem depends on:
// distinguishing an inner Scope's own cancellation from an outer one, and
// never leaking a spurious interruption to code that runs after a Scope has
// already exited. Task and the unexported dispatcher supply that missing
// substrate; see SPEC_FULL.md for the full rationale.
package scope
