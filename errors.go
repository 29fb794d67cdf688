package coalesce

import "errors"

var (
	// ErrComputationFailed wraps the error returned by a computation. The
	// same failure is observed by every caller waiting on the key when the
	// computation fails.
	ErrComputationFailed = errors.New("computation failed")

	// ErrWaitTimeout means this caller's bounded wait elapsed before the
	// in-flight computation finished. It is local to the caller: the
	// computation keeps running and other waiters are unaffected. Safe to
	// retry.
	ErrWaitTimeout = errors.New("timed out waiting for in-flight computation")

	// ErrTypeMismatch means the cached value for a key does not have the
	// type the caller asked for. Two different computations are sharing one
	// key; fix the keying at the call site.
	ErrTypeMismatch = errors.New("cached value has unexpected type")

	// ErrEntryCorrupted means the entry for a key was left in an
	// inconsistent state, e.g. by a computation that panicked. The entry is
	// dropped from the cache so a retry starts clean.
	ErrEntryCorrupted = errors.New("cache entry corrupted")
)
