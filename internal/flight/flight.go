// Package flight provides single-flight de-duplication of an async
// action: concurrent callers share one underlying execution instead of
// each triggering a duplicate. It guards the token refresh call so that
// any number of requests failing with 401 at the same moment produce
// exactly one refresh request.
package flight

import (
	"context"
	"sync"
)

// call is one in-flight execution shared by all concurrent callers.
type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Group de-duplicates concurrent executions of an action. The zero
// value is ready to use.
type Group[T any] struct {
	mu      sync.Mutex
	current *call[T]
}

// Do invokes fn unless an execution is already in flight, in which case
// the caller waits for the shared outcome instead. The check-and-set of
// the in-flight slot happens under the lock before any blocking call,
// so fn runs at most once per flight regardless of interleaving.
//
// The first caller's context is the one threaded into fn; cancelling it
// cancels the shared execution. A waiting caller whose own context is
// cancelled stops waiting and gets its context error, without
// disturbing the execution or the other waiters.
//
// Errors from fn propagate unchanged to every caller of the same
// flight. Once the execution settles the slot is cleared, so the next
// Do starts a fresh execution.
func (g *Group[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	g.mu.Lock()
	if c := g.current; c != nil {
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	c := &call[T]{done: make(chan struct{})}
	g.current = c
	g.mu.Unlock()

	c.val, c.err = fn(ctx)

	// Re-arm before waking waiters so a caller that immediately retries
	// starts a fresh execution rather than joining the settled one.
	g.mu.Lock()
	g.current = nil
	g.mu.Unlock()
	close(c.done)

	return c.val, c.err
}

// Pending reports whether an execution is currently in flight.
func (g *Group[T]) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current != nil
}
