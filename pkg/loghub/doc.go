// Package loghub provides the interfaces for the unified log hub.
//
// This package defines the abstractions the rest of the system programs against:
//   - Recorder: the single entry point a logging front-end calls for every line
//   - Hub: Recorder plus subscriber registration and diagnostics
//   - Snapshot: a point-in-time diagnostic view that reports corruption explicitly
//   - Stats: running counters for recorded, skipped and pruned work
//   - Observer: a hook fed by the hub for metrics
//
// The hub composes a history.Store and a broadcast.Broadcaster. Each call to
// Record appends the event to the store and then broadcasts its message. The
// two collections sit behind separate locks that are taken one after another,
// never nested.
//
// Record never fails. If either collection is poisoned, that step is skipped
// for the call. A panic inside a step is recovered inside the hub and the
// other step still runs. Logging is what the rest of the process uses to
// report its own failures, so the sink cannot be one of them.
//
// Example usage:
//
//	hub, err := loghub.NewDefault(loghub.NewConfig()) // internal/loghub
//	if err != nil {
//		return err
//	}
//
//	sub := broadcast.NewChanSubscriber(0)
//	_ = hub.AddSubscriber(sub)
//
//	hub.Record(history.Info, "server started")
//
//	if n, ok := hub.SnapshotLen(); ok {
//		fmt.Println("retained:", n)
//	}
//
// Observers are called synchronously from Record and must neither block nor log.
// Logging from an observer goes straight back into the hub.
package loghub
