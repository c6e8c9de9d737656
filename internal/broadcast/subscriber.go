package broadcast

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/rmacdonaldsmith/loghub-go/pkg/broadcast"
)

// ErrNilSubscriber is returned when a nil subscriber is registered
var ErrNilSubscriber = errors.New("subscriber cannot be nil")

// DefaultBufferSize is the channel buffer used when none is given.
const DefaultBufferSize = 256

// ChanSubscriber is a subscriber backed by a buffered channel.
// The consumer reads from Messages and tears the subscriber down with Close.
// A full buffer counts as a failed delivery: the subscriber closes itself so the
// consumer can observe on Done that it was dropped.
type ChanSubscriber struct {
	id       string
	messages chan string
	done     chan struct{}
	once     sync.Once
	reason   error
}

// NewChanSubscriber creates a channel subscriber with the given buffer size.
// A non-positive size falls back to DefaultBufferSize.
func NewChanSubscriber(bufferSize int) *ChanSubscriber {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &ChanSubscriber{
		id:       uuid.NewString(),
		messages: make(chan string, bufferSize),
		done:     make(chan struct{}),
	}
}

// ID returns the unique identifier for this subscriber
func (s *ChanSubscriber) ID() string {
	return s.id
}

// Send delivers message without blocking.
func (s *ChanSubscriber) Send(message string) error {
	select {
	case <-s.done:
		return broadcast.ErrSubscriberClosed
	default:
	}

	select {
	case s.messages <- message:
		return nil
	default:
		s.closeWith(broadcast.ErrSubscriberFull)
		return broadcast.ErrSubscriberFull
	}
}

// Messages returns the channel delivered lines arrive on. It is never closed;
// select on Done to learn when no more lines will arrive.
func (s *ChanSubscriber) Messages() <-chan string {
	return s.messages
}

// Done returns a channel that is closed once the subscriber stops accepting lines.
func (s *ChanSubscriber) Done() <-chan struct{} {
	return s.done
}

// Err reports why the subscriber stopped: ErrSubscriberFull if it was dropped
// for falling behind, ErrSubscriberClosed after Close, nil while still live.
func (s *ChanSubscriber) Err() error {
	select {
	case <-s.done:
		return s.reason
	default:
		return nil
	}
}

// Close tears the subscriber down. The next broadcast removes it from the registry.
// Safe to call multiple times.
func (s *ChanSubscriber) Close() error {
	s.closeWith(broadcast.ErrSubscriberClosed)
	return nil
}

func (s *ChanSubscriber) closeWith(reason error) {
	s.once.Do(func() {
		s.reason = reason
		close(s.done)
	})
}

// channelSubscriber wraps a caller-owned channel.
type channelSubscriber struct {
	ch chan<- string
}

// FromChannel adapts a caller-owned send channel to the Subscriber interface.
// Delivery fails when the channel is full or has been closed by its owner.
func FromChannel(ch chan<- string) broadcast.Subscriber {
	return &channelSubscriber{ch: ch}
}

// Send delivers message without blocking. Sending on a channel closed by its
// owner panics in Go; that panic is turned into ErrSubscriberClosed.
func (c *channelSubscriber) Send(message string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = broadcast.ErrSubscriberClosed
		}
	}()

	select {
	case c.ch <- message:
		return nil
	default:
		return broadcast.ErrSubscriberFull
	}
}
