package broadcast

import "errors"

var (
	// ErrSubscriberClosed is returned when the receiving side has been torn down
	ErrSubscriberClosed = errors.New("subscriber closed")
	// ErrSubscriberFull is returned when the subscriber cannot accept a line without blocking
	ErrSubscriberFull = errors.New("subscriber buffer full")
)

// Subscriber is an outbound delivery endpoint for rendered log lines.
// Send must not block; any non-nil error removes the subscriber for good.
type Subscriber interface {
	Send(message string) error
}

// SubscriberFunc adapts an ordinary function to the Subscriber interface.
type SubscriberFunc func(message string) error

// Send calls f(message).
func (f SubscriberFunc) Send(message string) error {
	return f(message)
}

// Result summarizes a single Broadcast call.
type Result struct {
	// Delivered is the number of subscribers that accepted the line
	Delivered int
	// Pruned is the number of subscribers removed because delivery failed
	Pruned int
}

// Broadcaster manages the subscriber set and delivers lines to it.
type Broadcaster interface {
	// Add registers a subscriber. No deduplication is performed.
	Add(subscriber Subscriber) error

	// Broadcast delivers message to every subscriber, removing those that fail.
	// A non-nil error means the broadcast was skipped entirely.
	Broadcast(message string) (Result, error)

	// Len returns the number of registered subscribers.
	Len() (int, error)

	// Poisoned reports whether a delivery terminated abnormally while holding the registry.
	Poisoned() bool

	// Recover clears the poisoned state.
	Recover()
}
