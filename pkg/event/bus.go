package event

import (
	"sync"
	"sync/atomic"
)

// Filter narrows which events a Subscription receives. All set fields
// are ANDed together; a nil/empty field imposes no constraint.
type Filter struct {
	Kinds     map[Kind]bool
	AgentIDs  map[string]bool
	Predicate func(Event) bool
}

func (f Filter) matches(e Event) bool {
	if len(f.Kinds) > 0 && !f.Kinds[e.Kind] {
		return false
	}
	if len(f.AgentIDs) > 0 && !f.AgentIDs[e.AgentID] {
		return false
	}
	if f.Predicate != nil && !f.Predicate(e) {
		return false
	}
	return true
}

// subscriber holds one filtered delivery channel plus the sequence
// counter it can use to detect missed events.
type subscriber struct {
	filter  Filter
	ch      chan Event
	missed  atomic.Uint64
	closeCh chan struct{}
}

// Subscription is the caller-facing handle returned by Bus.Subscribe.
type Subscription struct {
	bus *Bus
	sub *subscriber
}

// Events returns the channel events are delivered on. It is closed
// when Unsubscribe is called.
func (s *Subscription) Events() <-chan Event { return s.sub.ch }

// Missed returns how many events this subscriber has dropped due to
// back-pressure (§4.5).
func (s *Subscription) Missed() uint64 { return s.sub.missed.Load() }

// Unsubscribe stops delivery and releases the subscription's channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	for i, sub := range s.bus.subscribers {
		if sub == s.sub {
			s.bus.subscribers = append(s.bus.subscribers[:i], s.bus.subscribers[i+1:]...)
			close(sub.closeCh)
			close(sub.ch)
			return
		}
	}
}

// Bus is the in-process publish/subscribe event distribution channel
// (§4.5, §6). Delivery is best-effort, at-most-once per subscriber;
// publishers never block. Within one originating agent id, a single
// subscriber always observes events in publish order — delivery under
// the bus lock plus a buffered, FIFO-drop-oldest channel guarantee it.
type Bus struct {
	mu          sync.Mutex
	subscribers []*subscriber
	history     []Event
	historyCap  int
	seqByAgent  map[string]uint64
	bufferSize  int
}

// Option configures a Bus at construction.
type Option func(*Bus)

// WithHistoryCap bounds the ring buffer of past events (default 1000).
func WithHistoryCap(n int) Option { return func(b *Bus) { b.historyCap = n } }

// WithSubscriberBuffer sets each subscriber channel's buffer size
// (default 256); a full buffer causes the oldest buffered event for
// that subscriber to be evicted rather than blocking the publisher.
func WithSubscriberBuffer(n int) Option { return func(b *Bus) { b.bufferSize = n } }

// NewBus creates an isolated Bus instance. Tests should always use
// NewBus rather than the process-wide Default() so runs don't bleed
// events into each other.
func NewBus(opts ...Option) *Bus {
	b := &Bus{historyCap: 1000, bufferSize: 256, seqByAgent: make(map[string]uint64)}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Publish delivers e to every matching subscriber. Never blocks: a
// subscriber whose buffer is full has its oldest buffered event
// evicted to make room (§4.5 back-pressure).
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.seqByAgent[e.AgentID]++
	e.seq = b.seqByAgent[e.AgentID]

	b.history = append(b.history, e)
	if len(b.history) > b.historyCap {
		b.history = b.history[len(b.history)-b.historyCap:]
	}

	// Deliver while holding the lock: sends never block, concurrent
	// publishers cannot interleave, and Unsubscribe cannot close a
	// channel mid-send.
	defer b.mu.Unlock()

	for _, s := range b.subscribers {
		if !s.filter.matches(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			// Buffer full: drop the oldest to make room, never block.
			select {
			case <-s.ch:
				s.missed.Add(1)
			default:
			}
			select {
			case s.ch <- e:
			default:
				s.missed.Add(1)
			}
		}
	}
}

// Subscribe registers a new Subscription matching filter.
func (b *Bus) Subscribe(filter Filter) *Subscription {
	sub := &subscriber{filter: filter, ch: make(chan Event, b.bufferSize), closeCh: make(chan struct{})}
	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()
	return &Subscription{bus: b, sub: sub}
}

// History returns a snapshot of past events matching filter (newest
// last), drawn from the bounded ring buffer.
func (b *Bus) History(filter Filter) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, 0, len(b.history))
	for _, e := range b.history {
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

var (
	defaultBus     *Bus
	defaultBusOnce sync.Once
)

// Default returns the process-wide singleton Bus, lazily constructed
// on first use (§9 "Global state"). Production code should prefer
// this; tests should construct their own isolated Bus with NewBus.
func Default() *Bus {
	defaultBusOnce.Do(func() {
		defaultBus = NewBus()
	})
	return defaultBus
}
