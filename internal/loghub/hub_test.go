package loghub

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/loghub-go/internal/broadcast"
	"github.com/rmacdonaldsmith/loghub-go/internal/guard"
	"github.com/rmacdonaldsmith/loghub-go/internal/history"
	broadcastpkg "github.com/rmacdonaldsmith/loghub-go/pkg/broadcast"
	historypkg "github.com/rmacdonaldsmith/loghub-go/pkg/history"
)

// poisonableStore wraps a real store and can be forced into a poisoned
// or panicking state from the outside.
type poisonableStore struct {
	*history.Bounded
	lock   guard.RWMutex
	panics bool
}

func newPoisonableStore(capacity int) *poisonableStore {
	return &poisonableStore{Bounded: history.NewBounded(capacity)}
}

func (s *poisonableStore) poison() {
	defer func() { _ = recover() }()
	_ = s.lock.Write(func() { panic("writer died") })
}

func (s *poisonableStore) Append(event historypkg.Event) error {
	if s.panics {
		panic("store exploded")
	}
	var err error
	if lockErr := s.lock.Write(func() { err = s.Bounded.Append(event) }); lockErr != nil {
		return lockErr
	}
	return err
}

func (s *poisonableStore) Len() (int, error) {
	var (
		n   int
		err error
	)
	if lockErr := s.lock.Read(func() { n, err = s.Bounded.Len() }); lockErr != nil {
		return 0, lockErr
	}
	return n, err
}

func (s *poisonableStore) Poisoned() bool { return s.lock.Poisoned() }

func (s *poisonableStore) Recover() {
	s.lock.Recover()
	s.Bounded.Recover()
}

// countingObserver tallies notifications.
type countingObserver struct {
	mu               sync.Mutex
	recorded         map[historypkg.Level]int
	historySkipped   int
	broadcastSkipped int
	delivered        int
	pruned           int
	panicked         int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{recorded: make(map[historypkg.Level]int)}
}

func (o *countingObserver) EventRecorded(level historypkg.Level) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recorded[level]++
}
func (o *countingObserver) HistorySkipped()   { o.mu.Lock(); o.historySkipped++; o.mu.Unlock() }
func (o *countingObserver) BroadcastSkipped() { o.mu.Lock(); o.broadcastSkipped++; o.mu.Unlock() }
func (o *countingObserver) Delivered(n int)   { o.mu.Lock(); o.delivered += n; o.mu.Unlock() }
func (o *countingObserver) SubscribersPruned(n int) {
	o.mu.Lock()
	o.pruned += n
	o.mu.Unlock()
}
func (o *countingObserver) StepPanicked() { o.mu.Lock(); o.panicked++; o.mu.Unlock() }

func newTestHub(t *testing.T, capacity int, opts ...Option) *Hub {
	t.Helper()
	hub, err := NewDefault(NewConfig().WithMaxRetainSize(capacity), opts...)
	require.NoError(t, err)
	return hub
}

func historyMessages(t *testing.T, hub *Hub) []string {
	t.Helper()
	events, err := hub.History(0)
	require.NoError(t, err)
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Message
	}
	return out
}

func panickingSubscriber() broadcastpkg.Subscriber {
	return broadcastpkg.SubscriberFunc(func(string) error {
		panic("subscriber exploded")
	})
}

func TestNew_NilCollaborators(t *testing.T) {
	_, err := New(nil, broadcast.NewRegistry())
	assert.True(t, errors.Is(err, ErrNilStore))

	_, err = New(history.NewBounded(1), nil)
	assert.True(t, errors.Is(err, ErrNilBroadcaster))
}

func TestNewDefault_InvalidConfig(t *testing.T) {
	_, err := NewDefault(&Config{MaxRetainSize: -1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRetainSize))
}

func TestNewDefault_NilConfigUsesDefaults(t *testing.T) {
	hub, err := NewDefault(nil)
	require.NoError(t, err)
	assert.Equal(t, history.DefaultCapacity, hub.Snapshot().Capacity)
}

func TestHub_RetainsMostRecent(t *testing.T) {
	hub := newTestHub(t, 3)

	for _, msg := range []string{"a", "b", "c", "d"} {
		hub.Record(historypkg.Info, msg)
	}

	assert.Equal(t, []string{"b", "c", "d"}, historyMessages(t, hub))

	n, ok := hub.SnapshotLen()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestHub_BroadcastCompleteness(t *testing.T) {
	hub := newTestHub(t, 10)

	subs := make([]*broadcast.ChanSubscriber, 3)
	for i := range subs {
		subs[i] = broadcast.NewChanSubscriber(4)
		require.NoError(t, hub.AddSubscriber(subs[i]))
	}

	hub.Record(historypkg.Warn, "hello")

	for i, sub := range subs {
		select {
		case msg := <-sub.Messages():
			assert.Equal(t, "hello", msg, "subscriber %d", i)
		default:
			t.Fatalf("subscriber %d received nothing", i)
		}
		assert.Empty(t, sub.Messages(), "subscriber %d received more than once", i)
	}
}

func TestHub_PrunesTornDownSubscriber(t *testing.T) {
	hub := newTestHub(t, 10)
	live := broadcast.NewChanSubscriber(4)
	gone := broadcast.NewChanSubscriber(4)
	require.NoError(t, hub.AddSubscriber(gone))
	require.NoError(t, hub.AddSubscriber(live))

	require.NoError(t, gone.Close())
	hub.Record(historypkg.Info, "after")

	assert.Equal(t, "after", <-live.Messages())
	assert.Equal(t, 1, hub.Snapshot().Subscribers)
	assert.Equal(t, uint64(1), hub.Stats().Pruned)
}

func TestHub_StoresStructuredEvent(t *testing.T) {
	hub := newTestHub(t, 10)
	hub.Record(historypkg.Error, "disk failed")

	events, err := hub.History(0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, historypkg.Event{Level: historypkg.Error, Message: "disk failed"}, events[0])
}

func TestHub_PanickingSubscriberDoesNotEscape(t *testing.T) {
	hub := newTestHub(t, 10)
	require.NoError(t, hub.AddSubscriber(panickingSubscriber()))

	assert.NotPanics(t, func() { hub.Record(historypkg.Info, "first") })
	assert.NotPanics(t, func() { hub.Record(historypkg.Info, "second") })

	// History keeps working while the registry is poisoned
	assert.Equal(t, []string{"first", "second"}, historyMessages(t, hub))

	snap := hub.Snapshot()
	assert.True(t, snap.HistoryAvailable)
	assert.False(t, snap.SubscribersAvailable)
	assert.False(t, snap.Healthy())

	stats := hub.Stats()
	assert.Equal(t, uint64(2), stats.Recorded)
	assert.Equal(t, uint64(2), stats.BroadcastSkipped)
	assert.Equal(t, uint64(1), stats.Panics)

	err := hub.AddSubscriber(broadcast.NewChanSubscriber(1))
	assert.True(t, errors.Is(err, guard.ErrPoisoned))
}

func TestHub_PanickingHistoryStillBroadcasts(t *testing.T) {
	store := newPoisonableStore(10)
	store.panics = true
	hub, err := New(store, broadcast.NewRegistry())
	require.NoError(t, err)

	sub := broadcast.NewChanSubscriber(4)
	require.NoError(t, hub.AddSubscriber(sub))

	assert.NotPanics(t, func() { hub.Record(historypkg.Info, "still delivered") })
	assert.Equal(t, "still delivered", <-sub.Messages())
	assert.Equal(t, uint64(1), hub.Stats().HistorySkipped)
	assert.Equal(t, uint64(1), hub.Stats().Panics)
}

func TestHub_PoisonedHistoryIsSkippedSilently(t *testing.T) {
	store := newPoisonableStore(10)
	hub, err := New(store, broadcast.NewRegistry())
	require.NoError(t, err)

	sub := broadcast.NewChanSubscriber(4)
	require.NoError(t, hub.AddSubscriber(sub))

	hub.Record(historypkg.Info, "kept")
	store.poison()

	assert.NotPanics(t, func() { hub.Record(historypkg.Debug, "dropped") })

	assert.Equal(t, "kept", <-sub.Messages())
	assert.Equal(t, "dropped", <-sub.Messages(), "broadcast runs even when history is skipped")

	stats := hub.Stats()
	assert.Equal(t, uint64(1), stats.HistorySkipped)
	assert.Equal(t, uint64(0), stats.Panics)
}

func TestHub_SnapshotReportsPoisonedHistory(t *testing.T) {
	store := newPoisonableStore(10)
	hub, err := New(store, broadcast.NewRegistry())
	require.NoError(t, err)
	hub.Record(historypkg.Info, "kept")

	store.poison()

	n, ok := hub.SnapshotLen()
	assert.False(t, ok)
	assert.Equal(t, 0, n)
	assert.False(t, hub.Snapshot().HistoryAvailable)
	assert.Equal(t, "Hub{history: <poisoned>}", hub.String())

	hub.Recover()

	n, ok = hub.SnapshotLen()
	assert.True(t, ok)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Hub{history_len: 1}", hub.String())
}

func TestHub_RecoverClearsRegistry(t *testing.T) {
	hub := newTestHub(t, 10)
	require.NoError(t, hub.AddSubscriber(panickingSubscriber()))
	hub.Record(historypkg.Info, "poison")
	require.False(t, hub.Snapshot().SubscribersAvailable)

	hub.Recover()

	sub := broadcast.NewChanSubscriber(4)
	require.NoError(t, hub.AddSubscriber(sub))
	assert.True(t, hub.Snapshot().Healthy())

	hub.Record(historypkg.Info, "after")
	snap := hub.Snapshot()
	assert.True(t, snap.Healthy(), "panicking subscriber was removed and cannot poison again")
	assert.Equal(t, 1, snap.Subscribers)
	assert.Equal(t, "after", <-sub.Messages())
}

func TestHub_String(t *testing.T) {
	hub := newTestHub(t, 10)
	assert.Equal(t, "Hub{history_len: 0}", hub.String())

	hub.Record(historypkg.Info, "x")
	hub.Record(historypkg.Info, "y")
	assert.Equal(t, "Hub{history_len: 2}", fmt.Sprint(hub))
}

func TestHub_Observer(t *testing.T) {
	observer := newCountingObserver()
	hub := newTestHub(t, 10, WithObserver(observer))

	live := broadcast.NewChanSubscriber(8)
	gone := broadcast.NewChanSubscriber(8)
	require.NoError(t, hub.AddSubscriber(live))
	require.NoError(t, hub.AddSubscriber(gone))
	require.NoError(t, gone.Close())

	hub.Record(historypkg.Info, "one")
	hub.Record(historypkg.Error, "two")

	observer.mu.Lock()
	defer observer.mu.Unlock()
	assert.Equal(t, 1, observer.recorded[historypkg.Info])
	assert.Equal(t, 1, observer.recorded[historypkg.Error])
	assert.Equal(t, 2, observer.delivered)
	assert.Equal(t, 1, observer.pruned)
	assert.Equal(t, 0, observer.historySkipped)
}

func TestHub_ConcurrentRecordsAreConsistent(t *testing.T) {
	const capacity = 64
	hub := newTestHub(t, capacity)

	sub := broadcast.NewChanSubscriber(1000)
	require.NoError(t, hub.AddSubscriber(sub))

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				hub.Record(historypkg.Info, fmt.Sprintf("w%d-%d", w, i))
				hub.SnapshotLen()
			}
		}(w)
	}
	wg.Wait()

	n, ok := hub.SnapshotLen()
	require.True(t, ok)
	assert.Equal(t, capacity, n)

	events, err := hub.History(0)
	require.NoError(t, err)
	assert.Len(t, events, n)

	assert.Len(t, sub.Messages(), 500)
	assert.Equal(t, uint64(500), hub.Stats().Recorded)
}
