// Package fanout implements the progress fan-out bus (spec §4.8, component
// C8): per-investigation event distribution to N subscribers with
// at-most-once, per-subscriber-ordered delivery and the agent loop's
// drop-oldest-non-terminal backpressure policy.
package fanout

import (
	"sync"

	"github.com/brightframe/investigator/internal/agentloop"
)

// defaultQueueSize bounds each subscriber's pending-event queue. Once full,
// Emit drops the oldest non-terminal event to make room rather than
// blocking the publisher (spec §4.5 "Backpressure", §4.8).
const defaultQueueSize = 64

// subscriber is one registered listener's bounded, ordered event queue.
type subscriber struct {
	mu         sync.Mutex
	ch         chan agentloop.ProgressEvent
	closed     bool
	terminated bool
}

func newSubscriber(queueSize int) *subscriber {
	return &subscriber{ch: make(chan agentloop.ProgressEvent, queueSize)}
}

// deliver enqueues an event, applying the drop-oldest-non-terminal policy
// when the channel buffer is full. Terminal events (Completed, Error) are
// never dropped — if the buffer is full, the oldest non-terminal entry is
// evicted to make room instead.
func (s *subscriber) deliver(e agentloop.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.terminated {
		return
	}
	if e.Kind.Terminal() {
		s.terminated = true
	}

	select {
	case s.ch <- e:
		return
	default:
	}

	if e.Kind.Terminal() {
		s.makeRoomForTerminalLocked()
		select {
		case s.ch <- e:
		default:
		}
		return
	}

	// Non-terminal event and the buffer is full: drop the oldest
	// non-terminal entry already queued, if any, then retry; otherwise
	// drop the new event itself (every queued entry is terminal, which
	// cannot happen since the queue stops accepting further work once a
	// terminal event is enqueued).
	select {
	case <-s.ch:
		select {
		case s.ch <- e:
		default:
		}
	default:
	}
}

func (s *subscriber) makeRoomForTerminalLocked() {
	select {
	case <-s.ch:
	default:
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Bus distributes progress events keyed by investigation id. Subscriber
// registration, deregistration, and event emission are all safe to call
// concurrently (spec §4.8).
type Bus struct {
	queueSize int

	mu   sync.Mutex
	subs map[string]map[int]*subscriber
	next map[string]int
}

// NewBus constructs an empty Bus using the default per-subscriber queue
// size.
func NewBus() *Bus {
	return &Bus{queueSize: defaultQueueSize, subs: map[string]map[int]*subscriber{}, next: map[string]int{}}
}

// Subscribe registers a new listener for investigationID and returns a
// receive channel plus an unsubscribe function. The channel is closed when
// Unsubscribe is called.
func (b *Bus) Subscribe(investigationID string) (<-chan agentloop.ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[investigationID] == nil {
		b.subs[investigationID] = map[int]*subscriber{}
	}
	id := b.next[investigationID]
	b.next[investigationID] = id + 1

	sub := newSubscriber(b.queueSize)
	b.subs[investigationID][id] = sub

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.subs[investigationID]; ok {
			if s, ok := m[id]; ok {
				delete(m, id)
				s.close()
			}
			if len(m) == 0 {
				delete(b.subs, investigationID)
			}
		}
	}
	return sub.ch, unsubscribe
}

// Emit implements agentloop.Sink, fanning an event out to every subscriber
// currently registered for the event's investigation id.
func (b *Bus) Emit(e agentloop.ProgressEvent) {
	b.mu.Lock()
	subs := b.subs[e.InvestigationID]
	targets := make([]*subscriber, 0, len(subs))
	for _, s := range subs {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		s.deliver(e)
	}
}

// SubscriberCount reports how many listeners are registered for
// investigationID, mainly useful in tests.
func (b *Bus) SubscriberCount(investigationID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[investigationID])
}
