package broadcast

import (
	"github.com/rmacdonaldsmith/loghub-go/internal/guard"
	"github.com/rmacdonaldsmith/loghub-go/pkg/broadcast"
)

// Registry implements the broadcast.Broadcaster interface over an ordered slice of subscribers.
// It is safe for concurrent use.
type Registry struct {
	lock        guard.RWMutex
	subscribers []broadcast.Subscriber
}

// NewRegistry creates an empty subscriber registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a subscriber to the registry.
func (r *Registry) Add(subscriber broadcast.Subscriber) error {
	if subscriber == nil {
		return ErrNilSubscriber
	}
	return r.lock.Write(func() {
		r.subscribers = append(r.subscribers, subscriber)
	})
}

// Broadcast delivers message to every subscriber in a single pass, keeping only
// the subscribers that accepted it. If the registry is poisoned nothing is
// delivered and nothing is pruned.
//
// A subscriber that panics poisons the registry. It is removed before the lock
// is released, and the subscribers it cut off from this pass stay registered.
func (r *Registry) Broadcast(message string) (broadcast.Result, error) {
	var result broadcast.Result
	err := r.lock.Write(func() {
		subs := r.subscribers
		kept := subs[:0]
		next := 0
		defer func() {
			if next < len(subs) {
				// subs[next] did not return; keep the ones it never reached
				kept = append(kept, subs[next+1:]...)
			}
			// Drop references held by the tail so pruned subscribers can be collected
			clear(subs[len(kept):])
			r.subscribers = kept
		}()

		for ; next < len(subs); next++ {
			sub := subs[next]
			if sub.Send(message) == nil {
				kept = append(kept, sub)
				result.Delivered++
			} else {
				result.Pruned++
			}
		}
	})
	if err != nil {
		return broadcast.Result{}, err
	}
	return result, nil
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() (int, error) {
	var n int
	err := r.lock.Read(func() {
		n = len(r.subscribers)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Poisoned reports whether a delivery terminated abnormally while holding the registry.
func (r *Registry) Poisoned() bool {
	return r.lock.Poisoned()
}

// Recover clears the poisoned state. The subscriber that panicked is already gone;
// every other subscriber is kept.
func (r *Registry) Recover() {
	r.lock.Recover()
}

// Verify that Registry implements the Broadcaster interface at compile time
var _ broadcast.Broadcaster = (*Registry)(nil)
