package loghub

import (
	"github.com/rmacdonaldsmith/loghub-go/pkg/broadcast"
	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
)

// Recorder accepts rendered log lines. Implementations never fail the caller.
type Recorder interface {
	Record(level history.Level, message string)
}

// Hub is a Recorder that also manages subscribers and exposes diagnostics.
type Hub interface {
	Recorder

	// AddSubscriber registers an endpoint for every future Record call.
	AddSubscriber(subscriber broadcast.Subscriber) error

	// SnapshotLen returns the number of retained events.
	// ok is false when the history is poisoned and its length cannot be trusted.
	SnapshotLen() (n int, ok bool)

	// Snapshot returns a diagnostic view of both collections.
	Snapshot() Snapshot

	// History returns at most limit of the newest retained events, oldest first.
	// A non-positive limit returns everything.
	History(limit int) ([]history.Event, error)

	// Stats returns the running counters.
	Stats() Stats

	// Recover clears the poisoned state of both collections.
	Recover()
}

// Snapshot is a point-in-time diagnostic view of the hub.
type Snapshot struct {
	// HistoryAvailable is false when the history is poisoned
	HistoryAvailable bool `json:"historyAvailable"`
	// Length is the number of retained events; zero when unavailable
	Length int `json:"length"`
	// Capacity is max_retain_size
	Capacity int `json:"capacity"`
	// SubscribersAvailable is false when the subscriber registry is poisoned
	SubscribersAvailable bool `json:"subscribersAvailable"`
	// Subscribers is the number of registered subscribers; zero when unavailable
	Subscribers int `json:"subscribers"`
}

// Healthy reports whether both collections are usable.
func (s Snapshot) Healthy() bool {
	return s.HistoryAvailable && s.SubscribersAvailable
}

// Stats holds counters accumulated since the hub was created.
type Stats struct {
	Recorded         uint64 `json:"recorded"`
	HistorySkipped   uint64 `json:"historySkipped"`
	BroadcastSkipped uint64 `json:"broadcastSkipped"`
	Delivered        uint64 `json:"delivered"`
	Pruned           uint64 `json:"pruned"`
	Panics           uint64 `json:"panics"`
}

// Observer receives notifications from Record. It must not log.
type Observer interface {
	EventRecorded(level history.Level)
	HistorySkipped()
	BroadcastSkipped()
	Delivered(n int)
	SubscribersPruned(n int)
	StepPanicked()
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) EventRecorded(history.Level) {}
func (NopObserver) HistorySkipped()             {}
func (NopObserver) BroadcastSkipped()           {}
func (NopObserver) Delivered(int)               {}
func (NopObserver) SubscribersPruned(int)       {}
func (NopObserver) StepPanicked()               {}

var _ Observer = NopObserver{}
