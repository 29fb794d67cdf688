package store

import (
	"context"
	"sync"
	"time"
)

// Handle coordinates the handoff between the single caller computing a key's
// value and any number of waiters. It is created once, when the key's slot is
// first claimed, and resolved exactly once by the claiming caller. Waiters
// that grabbed a reference while the key was pending can keep using the
// handle even after the store's slot for the key is removed or overwritten.
type Handle struct {
	mu   sync.Mutex
	done chan struct{}

	value any
	err   error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// MarkReady publishes value and wakes every waiter.
// Only the caller that claimed the pending slot may resolve the handle, and
// only once; resolving twice is a programmer error and panics.
func (h *Handle) MarkReady(value any) {
	h.resolve(value, nil)
}

// MarkFailed publishes err and wakes every waiter. All current waiters
// observe the same error. Resolving twice is a programmer error and panics.
func (h *Handle) MarkFailed(err error) {
	h.resolve(nil, err)
}

func (h *Handle) resolve(value any, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		panic("store: handle resolved twice")
	default:
	}

	h.value = value
	h.err = err
	close(h.done)
}

// Wait blocks until the handle is resolved, the timeout elapses, or ctx is
// cancelled. All waiters are released together when the handle resolves;
// there is no ordering among them. A wait that gives up returns ok=false and
// has no effect on the handle, the in-flight computation, or other waiters.
func (h *Handle) Wait(ctx context.Context, timeout time.Duration) (value any, err error, ok bool) {
	// Skip the timer when the handle is already resolved
	select {
	case <-h.done:
		return h.value, h.err, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.value, h.err, true
	case <-ctx.Done():
		return nil, nil, false
	case <-timer.C:
		return nil, nil, false
	}
}
