package events

import (
	"context"
	"sync"

	"github.com/okian/forgeboard/pkg/logger"
	"github.com/okian/forgeboard/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultWorkers  = 4
	defaultSeenSize = 50_000
)

// Sink receives dispatched events. Handle must not panic; a slow sink
// slows the pool, not the emitting engines.
type Sink interface {
	Name() string
	Handle(ctx context.Context, e Event)
}

// Dispatcher drains the bus with a worker pool and fans each event out
// to every sink. Consumers assume at-least-once delivery, so the
// dispatcher keeps a bounded seen-set and hands a redelivered event ID
// to sinks at most once.
type Dispatcher struct {
	bus   *Bus
	sinks []Sink
	n     int

	mu    sync.Mutex
	seen  map[string]struct{}
	order []string // FIFO eviction for the seen-set
	max   int

	wg  sync.WaitGroup
	log logger.Logger
}

// DispatcherOption applies a configuration option to the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of dispatch goroutines.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.n = n
		}
	}
}

// WithSeenSize bounds the duplicate-suppression set.
func WithSeenSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.max = n
		}
	}
}

// NewDispatcher creates a dispatcher over bus delivering to sinks.
func NewDispatcher(bus *Bus, sinks []Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		bus:   bus,
		sinks: sinks,
		n:     defaultWorkers,
		seen:  make(map[string]struct{}),
		max:   defaultSeenSize,
		log:   logger.Get().Named("events"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker pool. Workers exit when ctx is canceled or
// the bus closes.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.n; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Wait blocks until all workers have drained and exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	feed := d.bus.Feed()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-feed:
			if !ok {
				return
			}
			d.dispatch(ctx, e)
		}
	}
}

// seenAndRecord atomically checks whether an event ID was delivered
// before and records it if not.
func (d *Dispatcher) seenAndRecord(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	if len(d.order) >= d.max {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	return false
}

func (d *Dispatcher) dispatch(ctx context.Context, e Event) {
	if d.seenAndRecord(e.ID) {
		return
	}
	metrics.UpdateEventQueueSize(d.bus.Len())
	for _, s := range d.sinks {
		s.Handle(ctx, e)
	}
	metrics.RecordEventDispatched()
}

// LogSink writes every event to the structured log at debug level.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a sink logging to the named logger.
func NewLogSink() *LogSink {
	return &LogSink{log: logger.Get().Named("event")}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Handle implements Sink.
func (s *LogSink) Handle(ctx context.Context, e Event) {
	s.log.Debug(ctx, string(e.Type),
		logger.String("event_id", e.ID),
		logger.Any("fields", e.Fields),
	)
}
