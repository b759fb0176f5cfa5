package taskgroup

import (
	"context"
	"sync"

	"github.com/cancelkit/cancelscope/scope"
	"github.com/cancelkit/cancelscope/triggers"
)

// Option configures a Group at construction time.
type Option func(*options)

type options struct {
	maxConcurrency int
}

// WithMaxConcurrency bounds how many of the Group's functions run at once.
// n <= 0 means unbounded (the default).
func WithMaxConcurrency(n int) Option { return func(o *options) { o.maxConcurrency = n } }

// Group runs a set of functions concurrently, cancelling the rest on the
// first error — golang.org/x/sync/errgroup's contract, reimplemented over
// a scope.Scope instead of a private context.CancelFunc. The first error
// fires an internal one-shot Signal; the scope.Scope armed against it
// raises the host Task's cancellation counter exactly as any other
// Trigger would, so a Group nested inside an outer Scope and an outer
// Scope racing its own deadline against a Group's internal failure
// resolve ownership through the same baseline-counter rule (spec.md §4.3)
// rather than needing bespoke plumbing between the two.
type Group struct {
	sc     *scope.Scope
	signal *triggers.Signal
	limit  Limiter

	mu  sync.Mutex
	err error
	wg  sync.WaitGroup

	ctx context.Context
}

// WithContext returns a new Group and an associated context derived from
// ctx. The derived context is cancelled the first time a function passed
// to Go returns a non-nil error.
func WithContext(ctx context.Context, optFns ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	var o options
	for _, fn := range optFns {
		fn(&o)
	}

	signal := triggers.NewSignal()
	sc := scope.New([]scope.Trigger{triggers.NewEvent(signal, "group-error")})
	// Enter cannot fail here: ctx is non-nil and sc was just constructed.
	gctx, _ := sc.Enter(ctx)

	g := &Group{
		sc:     sc,
		signal: signal,
		limit:  newSemaphoreLimiter(o.maxConcurrency),
		ctx:    gctx,
	}
	return g, gctx
}

// Context returns the Group's derived context, the same one WithContext
// returned.
func (g *Group) Context() context.Context { return g.ctx }

// InFlight reports how many functions started with Go are currently
// running. An unbounded Group (no WithMaxConcurrency) always reports 0 —
// nothing gates it, so there's no occupancy to track.
func (g *Group) InFlight() int {
	if g.limit == nil {
		return 0
	}
	return g.limit.InFlight()
}

// Go runs f in its own goroutine. If f returns a non-nil error, the
// Group's context is cancelled and that is the first and only error Wait
// returns.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	if g.limit != nil {
		if err := g.limit.Acquire(g.ctx); err != nil {
			return
		}
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if g.limit != nil {
			defer g.limit.Release()
		}
		if err := f(); err != nil {
			g.recordErr(err)
		}
	}()
}

func (g *Group) recordErr(err error) {
	g.mu.Lock()
	first := g.err == nil
	if first {
		g.err = err
	}
	g.mu.Unlock()
	if first {
		g.signal.Fire(err)
	}
}

// Wait blocks until every function started with Go has returned, then
// settles the Group's Scope and returns the first non-nil error (if any).
func (g *Group) Wait() error {
	g.wg.Wait()
	g.mu.Lock()
	err := g.err
	g.mu.Unlock()
	return g.sc.Exit(err)
}
