// Package history provides the value types and interfaces for bounded log history.
//
// This package defines the core abstractions for the history half of a log hub:
//   - Level: ordered log severity (Error is the most severe, Trace the least)
//   - Event: an immutable log event (level + rendered message)
//   - Store: interface for a capacity-bounded, append-only ordered sequence of events
//
// A Store never grows beyond its capacity. Appending to a full store evicts the
// oldest retained event first, so the store always holds the most recent events
// in insertion order (oldest first).
//
// Example usage:
//
//	store := history.NewBounded(4096) // internal/history
//
//	// Append an event
//	if err := store.Append(history.NewEvent(history.Info, "listening on :8080")); err != nil {
//		// store is poisoned; the append was skipped
//	}
//
//	// Take an ordered copy for a debug view
//	events, err := store.Events()
//	if err != nil {
//		return err
//	}
//	for _, e := range events {
//		fmt.Println(e.Level, e.Message)
//	}
//
// Implementations must be safe for concurrent use: many goroutines append while
// readers take snapshots.
package history
