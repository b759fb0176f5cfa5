// Package taskgroup adapts golang.org/x/sync/errgroup's API onto the
// scope package's cancellation substrate, so a Group started inside (or
// around) a scope.Scope shares that Scope's host Task counter rather than
// deriving its own independent context.CancelFunc.
package taskgroup
