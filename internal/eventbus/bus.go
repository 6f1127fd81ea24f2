package eventbus

import (
	"sync"
	"time"

	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
)

// Event is a single bus event.
//
// Sender identifies the publishing entity so handlers can ignore their own
// broadcasts. Data carries the event payload; its concrete type is agreed
// between publisher and subscribers per event type.
type Event struct {
	Type      string
	Sender    string
	Data      any
	Timestamp time.Time
}

// Handler processes one event. Handlers run on the subscriber's mailbox
// goroutine, one event at a time, in publish order.
type Handler func(Event)

// subscriber holds one registration and its ordered mailbox.
type subscriber struct {
	id      int
	handler Handler

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
}

func newSubscriber(id int, handler Handler) *subscriber {
	s := &subscriber{
		id:      id,
		handler: handler,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// push appends an event to the mailbox and wakes the drain goroutine.
func (s *subscriber) push(evt Event) {
	s.mu.Lock()
	if !s.closed {
		s.queue = append(s.queue, evt)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

// run drains the mailbox until close. Runs on its own goroutine.
func (s *subscriber) run(done func()) {
	defer done()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		evt := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.handler(evt)
	}
}

// close drains no further events. Events already queued are still delivered.
func (s *subscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
}

// Bus is the in-process event bus.
//
// Thread Safety: all methods are safe for concurrent use.
type Bus struct {
	logger *logging.Logger

	mu     sync.RWMutex
	subs   map[string][]*subscriber // event type -> subscribers in registration order
	nextID int
	closed bool
	wg     sync.WaitGroup
}

// New creates a new event bus.
func New(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Default()
	}
	return &Bus{
		logger: logger.With("component", "eventbus"),
		subs:   make(map[string][]*subscriber),
	}
}

// Subscribe registers a handler for the given event type and returns a
// cancel function that removes the registration. Events already queued for
// the subscriber when cancel is called are still delivered.
func (b *Bus) Subscribe(eventType string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	sub := newSubscriber(b.nextID, handler)
	b.subs[eventType] = append(b.subs[eventType], sub)

	b.wg.Add(1)
	go sub.run(b.wg.Done)

	id := sub.id
	return func() {
		b.mu.Lock()
		list := b.subs[eventType]
		for i, s := range list {
			if s.id == id {
				b.subs[eventType] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		sub.close()
	}
}

// Publish delivers the event to every subscriber of its type.
//
// Delivery is asynchronous: Publish enqueues and returns immediately.
// Subscribers registered at publish time each receive the event exactly
// once, in their own publish order. Events with no subscribers are dropped.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := b.subs[evt.Type]
	targets := make([]*subscriber, len(subs))
	copy(targets, subs)
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.push(evt)
	}

	b.logger.Debug("event published", "type", evt.Type, "sender", evt.Sender, "subscribers", len(targets))
}

// Close stops all subscribers and waits for queued events to drain.
// Publish calls after Close are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var all []*subscriber
	for _, list := range b.subs {
		all = append(all, list...)
	}
	b.subs = make(map[string][]*subscriber)
	b.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}
	b.wg.Wait()
}
