// Package owner implements the single owner context that holds and mutates
// all browser state. Other goroutines never touch that state directly: they
// post closures with [Poster.Post], and the owner runs them in FIFO order,
// one at a time. This replaces locking around tab and navigation state.
package owner

import (
	"context"
	"sync"
)

// Poster accepts work to run on the owner context. Post must be safe to call
// from any goroutine and must never block.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to the Poster interface.
type PosterFunc func(fn func())

// Post calls f(fn).
func (f PosterFunc) Post(fn func()) { f(fn) }

// Inline is a Poster that runs work immediately on the caller's goroutine.
// It is only correct when every caller already is the owner, which makes it
// useful for single-goroutine tests.
var Inline Poster = PosterFunc(func(fn func()) { fn() })

// Loop is an unbounded FIFO of closures drained by the owner. Post never
// blocks and never drops work. The zero value is not usable; use NewLoop.
type Loop struct {
	ready chan struct{}

	mu    sync.Mutex
	queue []func()
}

// NewLoop creates an empty Loop.
func NewLoop() *Loop {
	return &Loop{ready: make(chan struct{}, 1)}
}

// Post enqueues fn. A nil fn is ignored.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

// Ready receives a value whenever work may be pending. Frontends that own an
// event loop of their own (a TUI update loop, for instance) wait on Ready and
// call Drain from inside that loop.
func (l *Loop) Ready() <-chan struct{} { return l.ready }

// Pending returns the number of queued closures.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Drain runs queued closures on the calling goroutine until the queue is
// empty, including closures posted while draining. It returns how many ran.
// Drain must only be called from the owner context.
func (l *Loop) Drain() int {
	ran := 0
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}

		for _, fn := range batch {
			fn()
			ran++
		}
	}
}

// Run makes the calling goroutine the owner: it drains work as it arrives
// until ctx is done. Work still queued at that point is left in place.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.ready:
			l.Drain()
		}
	}
}

// Do posts fn and blocks until the owner has run it or ctx is done. It must
// not be called from the owner context itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
