// Package broadcast provides interfaces for fanning log lines out to live subscribers.
//
// This package defines the core abstractions for the subscriber half of a log hub:
//   - Subscriber: an endpoint that can receive a rendered log line
//   - Broadcaster: a registry that delivers each line to every subscriber
//
// Subscribers have no identity beyond themselves and there is no unsubscribe call.
// A subscriber leaves the registry the first time a delivery to it fails: the
// broadcaster removes it during the same Broadcast call that saw the failure and
// never retries it.
//
// Example usage:
//
//	sub := broadcast.NewChanSubscriber(256) // internal/broadcast
//	if err := registry.Add(sub); err != nil {
//		return err
//	}
//	defer sub.Close() // the next Broadcast prunes it
//
//	for {
//		select {
//		case line := <-sub.Messages():
//			fmt.Println(line)
//		case <-sub.Done():
//			return nil // dropped for being too slow, or closed
//		case <-ctx.Done():
//			return ctx.Err()
//		}
//	}
//
// Delivery must never block the caller of Broadcast: a subscriber that cannot
// accept a line immediately reports failure instead.
package broadcast
