package coalesce

import "time"

// Observer receives cache lifecycle events. Implementations must be safe for
// concurrent use; events for different keys may arrive concurrently.
type Observer interface {
	On(eventData EventData)
}

// Event represents a cache event type.
type Event int

const (
	// EventHit is emitted when a call finds a ready value.
	EventHit Event = iota
	// EventMiss is emitted when a call claims the key and runs the
	// computation.
	EventMiss
	// EventCoalesced is emitted when a call shared the result of another
	// caller's in-flight computation instead of starting its own.
	EventCoalesced
	// EventWaitTimeout is emitted when a call gave up waiting for an
	// in-flight computation.
	EventWaitTimeout
	// EventFailure is emitted when a call observed a failed computation.
	EventFailure
	// EventEviction is emitted when a key is explicitly evicted.
	EventEviction
)

// EventData carries the details of a cache event.
type EventData struct {
	Event Event
	Key   string
	// WaitDuration is how long the caller blocked on another caller's
	// computation. Only set for coalesced and timed out calls.
	WaitDuration time.Duration
}

func (c *Cache) emit(event Event, key string, waited time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.On(EventData{
		Event:        event,
		Key:          key,
		WaitDuration: waited,
	})
}
