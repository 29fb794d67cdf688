package coalesce

// Option configures a Cache created by New.
type Option func(*Cache)

// WithObserver attaches an Observer that receives hit, miss, coalesce,
// timeout, failure and eviction events for the lifetime of the cache.
func WithObserver(o Observer) Option {
	return func(cache *Cache) {
		cache.observer = o
	}
}
