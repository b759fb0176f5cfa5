// Package otel is the place for an OpenTelemetry observer plugin for the scope
// library. It holds only Nop, a scope.Observer that records nothing.
package otel
