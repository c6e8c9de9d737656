package history

// Store defines the interface for a capacity-bounded, ordered history of log events.
type Store interface {
	// Append adds an event at the back, evicting from the front while the store is full.
	// A non-nil error means the append was skipped; the store is left unchanged.
	Append(event Event) error

	// Len returns the number of retained events.
	Len() (int, error)

	// Events returns a copy of the retained events, oldest first.
	Events() ([]Event, error)

	// Last returns a copy of at most n of the newest events, oldest first.
	// A non-positive n returns every retained event.
	Last(n int) ([]Event, error)

	// Capacity returns the maximum number of retained events.
	Capacity() int

	// Poisoned reports whether a writer terminated abnormally while holding the store.
	Poisoned() bool

	// Recover clears the poisoned state so the store accepts writes again.
	Recover()
}
