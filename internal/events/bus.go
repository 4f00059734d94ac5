// Package events provides the per-task publish/subscribe fan-out used to stream
// agent progress, and a websocket hub that forwards those events to browsers.
//
// Publishing never blocks: each subscription has a bounded queue and events
// that do not fit are dropped for that subscriber only. Within one topic,
// a subscriber observes events in publish order.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/clock"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
)

// Publisher is the write side of the bus used by the agent stages.
type Publisher interface {
	Publish(taskID string, eventType domain.EventType, data any)
}

// Subscriber is the read side of the bus.
type Subscriber interface {
	Subscribe(taskID string) *Subscription
}

// Bus is an in-process event bus keyed by task id.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	clock   clock.Clock
	logger  zerolog.Logger
	dropped atomic.Int64
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBufferSize sets the per-subscription queue size.
func WithBufferSize(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithClock sets the clock used to timestamp events.
func WithClock(c clock.Clock) BusOption {
	return func(b *Bus) {
		b.clock = c
	}
}

// NewBus creates an empty bus.
func NewBus(logger zerolog.Logger, opts ...BusOption) *Bus {
	b := &Bus{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: constants.DefaultEventBuffer,
		clock:  clock.RealClock{},
		logger: logger.With().Str("component", "event_bus").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers an event to every subscriber of taskID without blocking.
func (b *Bus) Publish(taskID string, eventType domain.EventType, data any) {
	ev := domain.Event{
		Topic:     taskID,
		Type:      eventType,
		Data:      data,
		Timestamp: b.clock.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[taskID] {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
			b.dropped.Add(1)
			b.logger.Debug().
				Str("task_id", taskID).
				Str("event_type", string(eventType)).
				Msg("subscriber queue full, event dropped")
		}
	}
}

// Subscribe registers a new subscription on taskID.
// The caller must Close it when done.
func (b *Bus) Subscribe(taskID string) *Subscription {
	ch := make(chan domain.Event, b.buffer)
	sub := &Subscription{C: ch, ch: ch, bus: b, topic: taskID}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[taskID] == nil {
		b.subs[taskID] = make(map[*Subscription]struct{})
	}
	b.subs[taskID][sub] = struct{}{}
	return sub
}

// SubscriberCount returns the number of live subscriptions on taskID.
func (b *Bus) SubscriberCount(taskID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[taskID])
}

// Dropped returns the total number of events dropped across all subscribers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[sub.topic]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.topic)
	}
	close(sub.ch)
}

// Subscription receives the events of one topic on C.
// C is closed after Close.
type Subscription struct {
	C       <-chan domain.Event
	ch      chan domain.Event
	bus     *Bus
	topic   string
	once    sync.Once
	dropped atomic.Int64
}

// Topic returns the task id this subscription listens on.
func (s *Subscription) Topic() string {
	return s.topic
}

// Dropped returns how many events this subscription missed because its queue was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

// Drain collects whatever is currently queued on the subscription without blocking.
func (s *Subscription) Drain() []domain.Event {
	var out []domain.Event
	for {
		select {
		case ev, ok := <-s.C:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Recorder is a Publisher that keeps every event in memory. Handy for tests
// and for the one-shot CLI run.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
	next   Publisher
}

// NewRecorder creates a Recorder that optionally forwards to next.
func NewRecorder(next Publisher) *Recorder {
	return &Recorder{next: next}
}

// Publish records the event and forwards it.
func (r *Recorder) Publish(taskID string, eventType domain.EventType, data any) {
	r.mu.Lock()
	r.events = append(r.events, domain.Event{Topic: taskID, Type: eventType, Data: data, Timestamp: time.Now().UTC()})
	r.mu.Unlock()
	if r.next != nil {
		r.next.Publish(taskID, eventType, data)
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// OfType returns the payloads of the recorded events of type t, in order.
func (r *Recorder) OfType(t domain.EventType) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev.Data)
		}
	}
	return out
}

var (
	_ Publisher  = (*Bus)(nil)
	_ Subscriber = (*Bus)(nil)
	_ Publisher  = (*Recorder)(nil)
)
