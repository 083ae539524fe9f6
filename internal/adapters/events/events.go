// Package events provides the in-memory domain event pipeline: engines
// publish committed state transitions onto a bounded bus and a
// dispatcher pool fans them out to registered sinks. Events are
// notifications with at-least-once delivery toward consumers, never the
// source of truth.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/forgeboard/internal/domain/types"
	"github.com/okian/forgeboard/pkg/metrics"
)

// Default bus configuration constants.
const (
	defaultCapacity = 10_000
)

// Event is the envelope carried through the pipeline.
type Event struct {
	ID     string          `json:"id"`
	Type   types.EventType `json:"type"`
	At     time.Time       `json:"at"`
	Fields map[string]any  `json:"fields"`
}

// Bus is a bounded in-memory event queue. Publishing never blocks the
// emitting engine: when the buffer is full the event is dropped and
// counted.
type Bus struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
	now    func() time.Time
}

// Option applies a configuration option to the Bus.
type Option func(*Bus)

// WithCapacity bounds the event buffer.
func WithCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.ch = make(chan Event, n)
		}
	}
}

// WithClock overrides the envelope time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBus creates a bounded event bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		ch:  make(chan Event, defaultCapacity),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Emit implements types.Emitter: it wraps the fields in an envelope and
// publishes it.
func (b *Bus) Emit(_ context.Context, evt types.EventType, fields map[string]any) {
	b.Publish(Event{
		ID:     uuid.NewString(),
		Type:   evt,
		At:     b.now(),
		Fields: fields,
	})
}

// Publish enqueues an event. Returns false if the bus is closed or full.
func (b *Bus) Publish(e Event) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		metrics.RecordEventDropped()
		return false
	}
	select {
	case b.ch <- e:
		metrics.RecordEventPublished()
		metrics.UpdateEventQueueSize(len(b.ch))
		return true
	default:
		metrics.RecordEventDropped()
		return false
	}
}

// Feed returns the channel the dispatcher consumes. The channel closes
// when the bus closes.
func (b *Bus) Feed() <-chan Event {
	return b.ch
}

// Len returns the number of buffered events.
func (b *Bus) Len() int {
	return len(b.ch)
}

// Close stops the bus. Publishes after Close are dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	close(b.ch)
	return nil
}
