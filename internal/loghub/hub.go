package loghub

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rmacdonaldsmith/loghub-go/internal/broadcast"
	"github.com/rmacdonaldsmith/loghub-go/internal/history"
	broadcastpkg "github.com/rmacdonaldsmith/loghub-go/pkg/broadcast"
	historypkg "github.com/rmacdonaldsmith/loghub-go/pkg/history"
	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

var (
	// ErrNilStore is returned when no history store is supplied
	ErrNilStore = errors.New("history store cannot be nil")
	// ErrNilBroadcaster is returned when no broadcaster is supplied
	ErrNilBroadcaster = errors.New("broadcaster cannot be nil")
)

// Hub implements the loghub.Hub interface.
// It composes a bounded history store and a subscriber broadcaster, both injected
// at construction. Callers share a single *Hub.
type Hub struct {
	store       historypkg.Store
	subscribers broadcastpkg.Broadcaster
	observer    loghub.Observer

	recorded         atomic.Uint64
	historySkipped   atomic.Uint64
	broadcastSkipped atomic.Uint64
	delivered        atomic.Uint64
	pruned           atomic.Uint64
	panics           atomic.Uint64
}

// Option configures a Hub
type Option func(*Hub)

// WithObserver installs an observer. A nil observer is ignored.
func WithObserver(observer loghub.Observer) Option {
	return func(h *Hub) {
		if observer != nil {
			h.observer = observer
		}
	}
}

// New creates a hub over the given store and broadcaster.
func New(store historypkg.Store, subscribers broadcastpkg.Broadcaster, opts ...Option) (*Hub, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if subscribers == nil {
		return nil, ErrNilBroadcaster
	}

	h := &Hub{
		store:       store,
		subscribers: subscribers,
		observer:    loghub.NopObserver{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// NewDefault creates a hub backed by an in-memory bounded history and a subscriber registry.
func NewDefault(config *Config, opts ...Option) (*Hub, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return New(history.NewBounded(config.MaxRetainSize), broadcast.NewRegistry(), opts...)
}

// Record appends the event to history and broadcasts its message.
// It never panics and never reports failure; a broken step is skipped.
func (h *Hub) Record(level historypkg.Level, message string) {
	defer func() {
		if r := recover(); r != nil {
			h.panics.Add(1)
		}
	}()

	event := historypkg.NewEvent(level, message)
	h.recorded.Add(1)
	h.observer.EventRecorded(level)

	h.appendHistory(event)
	h.broadcast(event.Message)
}

func (h *Hub) appendHistory(event historypkg.Event) {
	defer func() {
		if r := recover(); r != nil {
			h.stepPanicked()
			h.historySkipped.Add(1)
			h.observer.HistorySkipped()
		}
	}()

	if err := h.store.Append(event); err != nil {
		h.historySkipped.Add(1)
		h.observer.HistorySkipped()
	}
}

func (h *Hub) broadcast(message string) {
	defer func() {
		if r := recover(); r != nil {
			h.stepPanicked()
			h.broadcastSkipped.Add(1)
			h.observer.BroadcastSkipped()
		}
	}()

	result, err := h.subscribers.Broadcast(message)
	if err != nil {
		h.broadcastSkipped.Add(1)
		h.observer.BroadcastSkipped()
		return
	}

	h.delivered.Add(uint64(result.Delivered))
	h.observer.Delivered(result.Delivered)
	if result.Pruned > 0 {
		h.pruned.Add(uint64(result.Pruned))
		h.observer.SubscribersPruned(result.Pruned)
	}
}

func (h *Hub) stepPanicked() {
	h.panics.Add(1)
	h.observer.StepPanicked()
}

// AddSubscriber registers a subscriber for future Record calls.
func (h *Hub) AddSubscriber(subscriber broadcastpkg.Subscriber) error {
	if err := h.subscribers.Add(subscriber); err != nil {
		return fmt.Errorf("failed to add subscriber: %w", err)
	}
	return nil
}

// SnapshotLen returns the retained event count, or ok=false when the history is poisoned.
func (h *Hub) SnapshotLen() (int, bool) {
	n, err := h.store.Len()
	if err != nil {
		return 0, false
	}
	return n, true
}

// Snapshot returns a diagnostic view of both collections.
func (h *Hub) Snapshot() loghub.Snapshot {
	snap := loghub.Snapshot{Capacity: h.store.Capacity()}
	snap.Length, snap.HistoryAvailable = h.SnapshotLen()
	if n, err := h.subscribers.Len(); err == nil {
		snap.Subscribers = n
		snap.SubscribersAvailable = true
	}
	return snap
}

// History returns at most limit of the newest events, oldest first.
func (h *Hub) History(limit int) ([]historypkg.Event, error) {
	return h.store.Last(limit)
}

// Stats returns the running counters.
func (h *Hub) Stats() loghub.Stats {
	return loghub.Stats{
		Recorded:         h.recorded.Load(),
		HistorySkipped:   h.historySkipped.Load(),
		BroadcastSkipped: h.broadcastSkipped.Load(),
		Delivered:        h.delivered.Load(),
		Pruned:           h.pruned.Load(),
		Panics:           h.panics.Load(),
	}
}

// Recover clears the poisoned state of the history and the subscriber registry.
func (h *Hub) Recover() {
	h.store.Recover()
	h.subscribers.Recover()
}

// String renders the debug view.
func (h *Hub) String() string {
	n, ok := h.SnapshotLen()
	if !ok {
		return "Hub{history: <poisoned>}"
	}
	return fmt.Sprintf("Hub{history_len: %d}", n)
}

// Verify that Hub implements the loghub.Hub interface at compile time
var _ loghub.Hub = (*Hub)(nil)
var _ fmt.Stringer = (*Hub)(nil)
