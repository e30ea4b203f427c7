package queue

import (
	"context"
	"sync"
)

// Future is the result carrier handed back by Submit. Every admitted work
// item resolves its future exactly once, whether the task completes, fails,
// panics, or runs on the overflow path.
//
// A future has no cancellation: abandoning it does not stop the task. Callers
// that need a deadline race their context against the future with Wait; the
// task still runs to completion and the result is retained for any later
// Wait call.
type Future struct {
	once   sync.Once
	done   chan struct{}
	result any
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve records the outcome and releases all waiters. Later calls are
// no-ops, which keeps the exactly-one-resolution guarantee cheap to audit.
func (f *Future) resolve(result any, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}

// Done returns a channel that is closed once the work item reaches a
// terminal state. It never closes more than once and never reopens.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the work item resolves or ctx expires. A context error
// abandons the wait, not the task: Wait can be called again and returns the
// task's outcome once it lands.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolved reports whether the work item has reached a terminal state,
// without blocking.
func (f *Future) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
