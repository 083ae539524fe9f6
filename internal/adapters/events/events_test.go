package events_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/forgeboard/internal/adapters/events"
	"github.com/okian/forgeboard/internal/domain/types"
	"github.com/okian/forgeboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// captureSink records handled events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Handle(_ context.Context, e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *captureSink) snapshot() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestBusPublish(t *testing.T) {
	Convey("Given a small bus", t, func() {
		bus := events.NewBus(events.WithCapacity(2))

		Convey("When publishing within capacity", func() {
			ok := bus.Publish(events.Event{ID: "a", Type: types.EventTipSent})
			So(ok, ShouldBeTrue)
			So(bus.Len(), ShouldEqual, 1)
		})

		Convey("When the buffer is full", func() {
			So(bus.Publish(events.Event{ID: "a"}), ShouldBeTrue)
			So(bus.Publish(events.Event{ID: "b"}), ShouldBeTrue)

			Convey("Then further publishes are dropped, not blocked", func() {
				So(bus.Publish(events.Event{ID: "c"}), ShouldBeFalse)
				So(bus.Len(), ShouldEqual, 2)
			})
		})

		Convey("When the bus is closed", func() {
			So(bus.Close(), ShouldBeNil)
			So(bus.Publish(events.Event{ID: "a"}), ShouldBeFalse)
			So(bus.Close(), ShouldEqual, events.ErrClosed)
		})
	})
}

func TestEmitEnvelope(t *testing.T) {
	Convey("Given a bus with a fixed clock", t, func() {
		at := time.Unix(1_700_000_000, 0)
		bus := events.NewBus(events.WithClock(func() time.Time { return at }))

		Convey("When an engine emits", func() {
			bus.Emit(context.Background(), types.EventLevelUp, map[string]any{"new_level": 3})

			Convey("Then the envelope carries id, type and timestamp", func() {
				e := <-bus.Feed()
				So(e.ID, ShouldNotBeBlank)
				So(e.Type, ShouldEqual, types.EventLevelUp)
				So(e.At.Equal(at), ShouldBeTrue)
				So(e.Fields["new_level"], ShouldEqual, 3)
			})
		})
	})
}

func TestDispatcherDelivery(t *testing.T) {
	Convey("Given a dispatcher over a bus", t, func() {
		bus := events.NewBus()
		sink := &captureSink{}
		d := events.NewDispatcher(bus, []events.Sink{sink}, events.WithWorkers(2))

		ctx, cancel := context.WithCancel(context.Background())
		d.Start(ctx)

		Convey("When events are published", func() {
			for _, id := range []string{"e1", "e2", "e3"} {
				So(bus.Publish(events.Event{ID: id, Type: types.EventVoteCast}), ShouldBeTrue)
			}
			So(bus.Close(), ShouldBeNil)
			d.Wait()
			cancel()

			Convey("Then every event reaches the sink exactly once", func() {
				got := sink.snapshot()
				So(len(got), ShouldEqual, 3)
				seen := map[string]bool{}
				for _, e := range got {
					seen[e.ID] = true
				}
				So(len(seen), ShouldEqual, 3)
			})
		})

		Convey("When the same event ID is delivered twice", func() {
			So(bus.Publish(events.Event{ID: "dup", Type: types.EventTipSent}), ShouldBeTrue)
			So(bus.Publish(events.Event{ID: "dup", Type: types.EventTipSent}), ShouldBeTrue)
			So(bus.Close(), ShouldBeNil)
			d.Wait()
			cancel()

			Convey("Then sinks see it once", func() {
				So(len(sink.snapshot()), ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsSink(t *testing.T) {
	Convey("Given the metrics sink", t, func() {
		sink := events.NewMetricsSink()

		Convey("Then handling any event type must not panic", func() {
			all := []types.EventType{
				types.EventCertificateMinted, types.EventXPGained, types.EventLevelUp,
				types.EventRarityUpgraded, types.EventMilestoneCreated,
				types.EventMilestoneVerified, types.EventMilestoneRejected,
				types.EventMilestoneEndorsed, types.EventMilestoneChallenged,
				types.EventTipSent, types.EventReputationEarned,
				types.EventStakeDeposited, types.EventStakeWithdrawn,
				types.EventProposalCreated, types.EventVoteCast,
				types.EventSeasonStarted, types.EventSeasonEnded,
			}
			So(func() {
				for _, evt := range all {
					sink.Handle(context.Background(), events.Event{
						ID:   string(evt),
						Type: evt,
						Fields: map[string]any{
							"amount": uint64(5), "fee": uint64(1), "levels_gained": 2,
						},
					})
				}
			}, ShouldNotPanic)
		})
	})
}
