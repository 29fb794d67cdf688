package coalesce

import (
	"context"
	"fmt"
	"time"

	"github.com/Amund211/coalesce/internal/logging"
	"github.com/Amund211/coalesce/internal/store"
)

// Cache coalesces concurrent computations by key: for any key, at most one
// computation is in flight at a time, and every caller racing on that key
// receives the one result. Values stay cached until explicitly evicted.
//
// All methods are safe for concurrent use. Activity on one key never blocks
// progress on another.
type Cache struct {
	store    *store.Store
	timeout  time.Duration
	observer Observer
}

// New returns a Cache whose callers block at most timeout waiting for
// another caller's in-flight computation before giving up with
// ErrWaitTimeout. The timeout must be positive.
func New(timeout time.Duration, opts ...Option) *Cache {
	cache := &Cache{
		store:   store.New(),
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// GetOrCompute returns the cached value for key, or runs compute to produce
// it. If another caller is already computing the key, this call waits for
// that result instead of computing its own. A failed computation is reported
// to every current waiter and the key is cleared so a later call can retry.
//
// Values are shared between callers, not copied; treat them as immutable
// once returned. compute must not call back into the same cache with the
// same key: the inner call would wait on the outer one and block until this
// caller's own timeout fires.
//
// A ctx that is cancelled while waiting fails only this call, wrapped in
// ErrWaitTimeout. It never cancels the in-flight computation.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func() (any, error)) (any, error) {
	state, ok := c.store.Lookup(key)
	if ok {
		return c.resolveExisting(ctx, key, state)
	}

	state, didInsert := c.store.InsertPendingIfAbsent(key)
	if !didInsert {
		// Someone else claimed the key between the lookup and the insert
		return c.resolveExisting(ctx, key, state)
	}

	return c.compute(ctx, key, state.Pending, compute)
}

// Evict removes the cached value for key. Evicting an absent key is a no-op.
// Callers already waiting on an in-flight computation for the key are
// unaffected and still receive its result.
func (c *Cache) Evict(key string) {
	if c.store.Remove(key) {
		c.emit(EventEviction, key, 0)
	}
}

// Get returns the value for key through cache, running compute at most once
// concurrently per key. It fails with ErrTypeMismatch if the key already
// holds a value of a different type.
//
// The same key must always be used with the same type T.
func Get[T any](ctx context.Context, cache *Cache, key string, compute func() (T, error)) (T, error) {
	value, err := cache.GetOrCompute(ctx, key, func() (any, error) {
		return compute()
	})
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: key %q holds %T", ErrTypeMismatch, key, value)
	}
	return typed, nil
}

// resolveExisting handles a key that already has a slot: return the ready
// value, or wait on the pending computation.
func (c *Cache) resolveExisting(ctx context.Context, key string, state store.EntryState) (any, error) {
	if state.Ready {
		if state.Value == nil {
			// A ready entry always carries a value; drop the broken slot
			// so a retry starts clean.
			c.store.Remove(key)
			return nil, fmt.Errorf("%w: ready entry for key %q has no value", ErrEntryCorrupted, key)
		}
		c.emit(EventHit, key, 0)
		logging.FromContext(ctx).DebugContext(ctx, "Cache hit", "key", key)
		return state.Value, nil
	}

	if state.Pending == nil {
		c.store.Remove(key)
		return nil, fmt.Errorf("%w: entry for key %q is neither ready nor pending", ErrEntryCorrupted, key)
	}

	return c.await(ctx, key, state.Pending)
}

// await blocks on another caller's in-flight computation.
func (c *Cache) await(ctx context.Context, key string, handle *store.Handle) (any, error) {
	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "Waiting for in-flight computation", "key", key)

	start := time.Now()
	value, err, ok := handle.Wait(ctx, c.timeout)
	waited := time.Since(start)

	if !ok {
		c.emit(EventWaitTimeout, key, waited)
		logger.InfoContext(ctx, "Gave up waiting for in-flight computation", "key", key, "waited", waited.String())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrWaitTimeout, ctxErr)
		}
		return nil, fmt.Errorf("%w: key %q", ErrWaitTimeout, key)
	}

	if err != nil {
		// The computing caller broadcast its failure; it already wrapped
		// the error and cleared the slot.
		c.emit(EventFailure, key, waited)
		return nil, err
	}

	if value == nil {
		c.store.Remove(key)
		return nil, fmt.Errorf("%w: in-flight computation for key %q produced no value", ErrEntryCorrupted, key)
	}

	c.emit(EventCoalesced, key, waited)
	return value, nil
}

// compute runs the computation as the sole owner of the key's pending slot
// and publishes the outcome to the store and to every waiter on the handle.
func (c *Cache) compute(ctx context.Context, key string, handle *store.Handle, compute func() (any, error)) (value any, err error) {
	logger := logging.FromContext(ctx)
	c.emit(EventMiss, key, 0)
	logger.InfoContext(ctx, "Cache miss", "key", key)

	resolved := false
	defer func() {
		if resolved {
			return
		}
		// The computation panicked. Fail the waiters and clear the slot
		// instead of leaving the key pending forever, then degrade the
		// panic to an error for this caller.
		err = fmt.Errorf("%w: computation for key %q panicked: %v", ErrEntryCorrupted, key, recover())
		value = nil
		handle.MarkFailed(err)
		c.store.RemovePending(key, handle)
		c.emit(EventFailure, key, 0)
	}()

	result, computeErr := compute()
	if computeErr == nil && result == nil {
		// A nil value cannot be told apart from a broken slot on later
		// reads; refuse to publish it.
		computeErr = fmt.Errorf("computation for key %q returned nil", key)
	}
	if computeErr != nil {
		wrapped := fmt.Errorf("%w: %w", ErrComputationFailed, computeErr)
		resolved = true
		handle.MarkFailed(wrapped)
		// Clear the slot so a later caller retries instead of getting
		// stuck behind a failed flight
		c.store.RemovePending(key, handle)
		c.emit(EventFailure, key, 0)
		return nil, wrapped
	}

	resolved = true
	handle.MarkReady(result)
	c.store.PromoteToReady(key, result)
	return result, nil
}
