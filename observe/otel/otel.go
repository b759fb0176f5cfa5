package otel

import (
	"context"
	"time"

	"github.com/cancelkit/cancelscope/scope"
)

// Nop is a no-op implementation of the scope.Observer interface.
// It serves as a placeholder for an OpenTelemetry-backed observer without adding dependencies.
type Nop struct{}

// NewNop returns a no-op observer.
func NewNop() *Nop { return &Nop{} }

// ScopeEntered is a no-op.
func (*Nop) ScopeEntered(context.Context) {}

// ScopeExited is a no-op.
func (*Nop) ScopeExited(context.Context, bool, []scope.CancelReason, time.Duration) {}

// TriggerFired is a no-op.
func (*Nop) TriggerFired(context.Context, scope.CancelReason) {}

// TriggerPanic is a no-op.
func (*Nop) TriggerPanic(context.Context, any) {}

var _ scope.Observer = (*Nop)(nil)
