package history

import (
	"github.com/gammazero/deque"

	"github.com/rmacdonaldsmith/loghub-go/internal/guard"
	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
)

// DefaultCapacity is the number of events retained when no capacity is configured.
const DefaultCapacity = 4096

// Bounded implements the history.Store interface with an in-memory deque.
// The oldest event is evicted before a new one is inserted once the capacity is reached.
// It is safe for concurrent use.
type Bounded struct {
	lock     guard.RWMutex
	events   deque.Deque[history.Event]
	capacity int
}

// NewBounded creates a new bounded history retaining at most capacity events.
// A non-positive capacity falls back to DefaultCapacity.
func NewBounded(capacity int) *Bounded {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bounded{capacity: capacity}
}

// Append adds an event at the back, evicting from the front while the history is full.
// It returns guard.ErrPoisoned, without touching the history, if a previous writer
// terminated abnormally.
func (b *Bounded) Append(event history.Event) error {
	return b.lock.Write(func() {
		for b.events.Len() >= b.capacity {
			b.events.PopFront()
		}
		b.events.PushBack(event)
	})
}

// Len returns the number of retained events.
func (b *Bounded) Len() (int, error) {
	var n int
	err := b.lock.Read(func() {
		n = b.events.Len()
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Events returns a copy of the retained events, oldest first.
func (b *Bounded) Events() ([]history.Event, error) {
	var out []history.Event
	err := b.lock.Read(func() {
		out = make([]history.Event, b.events.Len())
		for i := range out {
			out[i] = b.events.At(i)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Last returns a copy of at most n of the newest events, oldest first.
// A non-positive n returns every retained event.
func (b *Bounded) Last(n int) ([]history.Event, error) {
	var out []history.Event
	err := b.lock.Read(func() {
		size := b.events.Len()
		if n <= 0 || n > size {
			n = size
		}
		out = make([]history.Event, n)
		start := size - n
		for i := range out {
			out[i] = b.events.At(start + i)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Capacity returns the maximum number of retained events.
func (b *Bounded) Capacity() int {
	return b.capacity
}

// Poisoned reports whether a writer terminated abnormally while holding the history.
func (b *Bounded) Poisoned() bool {
	return b.lock.Poisoned()
}

// Recover clears the poisoned state. Retained events are kept as they are.
func (b *Bounded) Recover() {
	b.lock.Recover()
}

// Verify that Bounded implements the Store interface at compile time
var _ history.Store = (*Bounded)(nil)
