// Package triggers provides the stock Trigger implementations scope.Scope
// is built to compose with: a deadline budget and an externally fired
// one-shot event, modeled on the DOM AbortController/AbortSignal pattern.
//
// Both types only ever reach a scope.Scope through its public Trigger
// interface — neither needs special-casing by package scope.
package triggers
