// Package coalesce provides keyed call coalescing: concurrent calls for the
// same key run the computation once and share the one result.
//
// When many goroutines ask for the same expensive value at the same time,
// the first caller for a key claims it and runs the computation; everyone
// else blocks on that single flight (bounded by the cache's wait timeout)
// and receives the same value. Once computed, the value stays cached until
// it is explicitly evicted with [Cache.Evict].
//
// Create a cache with [New], then fetch-or-compute values with [Get]:
//
//	cache := coalesce.New(1 * time.Second)
//
//	stats, err := coalesce.Get(ctx, cache, userID, func() (*Stats, error) {
//		return fetchStats(ctx, userID)
//	})
//
// Keys are opaque strings chosen by the caller, typically derived from the
// function identity and its arguments. The same key must always be used
// with the same value type; a wrong-type read fails with [ErrTypeMismatch].
//
// A failed computation is reported to every caller waiting on the key, and
// the key is cleared so the next call retries. A caller that times out
// waiting fails alone with [ErrWaitTimeout]; the computation keeps running
// and its result is published for everyone else. The cache never cancels a
// computation once started, so pair it with computation-level timeouts if
// the work can hang.
package coalesce
