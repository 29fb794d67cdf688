// Package store owns the key to entry mapping behind a single coarse lock,
// and the per-key handle that hands a computed value from the one computing
// caller to everyone waiting for it.
package store

import "sync"

// EntryState is the slot for a key. Exactly one of the two shapes holds:
// pending, with a live handle for the in-flight computation, or ready, with
// the published value.
type EntryState struct {
	// Pending is the handle for the in-flight computation. Nil once ready.
	Pending *Handle
	// Value is the published value. Only meaningful when Ready is true.
	Value any
	Ready bool
}

// Store maps keys to entry slots. The lock is held only for the O(1) map
// operations, never across a computation or a wait, so activity on one key
// never blocks progress on another.
type Store struct {
	mu      sync.Mutex
	entries map[string]EntryState
}

func New() *Store {
	return &Store{entries: make(map[string]EntryState)}
}

// Lookup returns the current slot for key.
func (s *Store) Lookup(key string) (EntryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.entries[key]
	return state, ok
}

// InsertPendingIfAbsent claims the slot for key if it is absent, returning a
// fresh pending state and didInsert=true. If the slot already exists, the
// existing state is returned instead. The check and the insert happen under
// one lock acquisition, so two racing callers can never both claim a key.
func (s *Store) InsertPendingIfAbsent(key string) (EntryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.entries[key]; ok {
		return state, false
	}

	state := EntryState{Pending: newHandle()}
	s.entries[key] = state
	return state, true
}

// PromoteToReady publishes value in the slot for key, replacing whatever is
// there. The computing caller calls this after resolving its handle; if the
// slot was evicted mid-flight this recreates it.
func (s *Store) PromoteToReady(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = EntryState{Value: value, Ready: true}
}

// Remove drops the slot for key and reports whether a slot was there to
// drop. Removing an absent key is a no-op. Handles already held by waiters
// stay valid; only the map slot goes away.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// RemovePending drops the slot for key only if it is still the pending slot
// owned by handle. A failed computation uses this to clear its own claim
// without clobbering a successor's slot after an eviction race.
func (s *Store) RemovePending(key string, handle *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.entries[key]; ok && state.Pending == handle {
		delete(s.entries, key)
	}
}
