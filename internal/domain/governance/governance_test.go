package governance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/forgeboard/internal/domain/governance"
	"github.com/okian/forgeboard/internal/domain/roles"
	"github.com/okian/forgeboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// repBook is a mutable in-memory reputation reader.
type repBook struct {
	mu  sync.RWMutex
	rep map[types.Identity]uint64
}

func newRepBook() *repBook {
	return &repBook{rep: make(map[types.Identity]uint64)}
}

func (b *repBook) set(id types.Identity, v uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rep[id] = v
}

func (b *repBook) ReputationOf(_ context.Context, id types.Identity) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rep[id]
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newEngine(clock *fakeClock) (*governance.Engine, *repBook) {
	book := newRepBook()
	auth := roles.NewTable(roles.WithAdmins("admin"))
	eng := governance.New(book, auth,
		governance.WithClock(clock.now),
		governance.WithVotingPeriod(72*time.Hour),
	)
	return eng, book
}

func TestCreateProposal(t *testing.T) {
	ctx := context.Background()

	Convey("Given a governance engine with a 100 reputation threshold", t, func() {
		clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
		eng, book := newEngine(clock)

		Convey("When a reputable identity proposes", func() {
			book.set("alice", 150)
			id, err := eng.CreateProposal(ctx, "alice", "raise endorse cost", "details")

			Convey("Then the proposal opens with a voting window", func() {
				So(err, ShouldBeNil)
				p, err := eng.ByID(ctx, id)
				So(err, ShouldBeNil)
				So(p.Proposer, ShouldEqual, types.Identity("alice"))
				So(p.StartTime, ShouldEqual, clock.t)
				So(p.EndTime, ShouldEqual, clock.t.Add(72*time.Hour))
				So(p.Executed, ShouldBeFalse)
				So(p.VotesFor, ShouldEqual, 0)
			})
		})

		Convey("When a low-reputation identity proposes", func() {
			book.set("pleb", 99)
			_, err := eng.CreateProposal(ctx, "pleb", "title", "d")
			So(err, ShouldEqual, governance.ErrLowReputation)
		})

		Convey("When the title is blank", func() {
			book.set("alice", 150)
			_, err := eng.CreateProposal(ctx, "alice", "  ", "d")
			So(err, ShouldEqual, governance.ErrInvalidInput)
		})
	})
}

func TestVote(t *testing.T) {
	ctx := context.Background()

	Convey("Given an open proposal", t, func() {
		clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
		eng, book := newEngine(clock)
		book.set("alice", 150)
		id, err := eng.CreateProposal(ctx, "alice", "proposal", "d")
		So(err, ShouldBeNil)

		Convey("When identities vote on both sides", func() {
			book.set("bob", 100)
			book.set("carol", 40)
			So(eng.Vote(ctx, "bob", id, true), ShouldBeNil)
			So(eng.Vote(ctx, "carol", id, false), ShouldBeNil)
			p, _ := eng.ByID(ctx, id)

			Convey("Then the tally is reputation weighted", func() {
				So(p.VotesFor, ShouldEqual, 100)
				So(p.VotesAgainst, ShouldEqual, 40)
				So(p.Receipts["bob"].Weight, ShouldEqual, 100)
				So(p.Receipts["bob"].Support, ShouldBeTrue)
			})
		})

		Convey("When a voter's reputation changes after voting", func() {
			book.set("bob", 100)
			So(eng.Vote(ctx, "bob", id, true), ShouldBeNil)
			book.set("bob", 500)
			p, _ := eng.ByID(ctx, id)

			Convey("Then the snapshotted weight stands", func() {
				So(p.VotesFor, ShouldEqual, 100)
				So(p.Receipts["bob"].Weight, ShouldEqual, 100)
			})
		})

		Convey("When an identity votes twice", func() {
			book.set("bob", 100)
			So(eng.Vote(ctx, "bob", id, true), ShouldBeNil)
			So(eng.Vote(ctx, "bob", id, false), ShouldEqual, governance.ErrAlreadyVoted)
			p, _ := eng.ByID(ctx, id)
			So(p.VotesFor, ShouldEqual, 100)
			So(p.VotesAgainst, ShouldEqual, 0)
		})

		Convey("When a zero-reputation identity votes", func() {
			So(eng.Vote(ctx, "ghost", id, true), ShouldEqual, governance.ErrZeroWeight)
		})

		Convey("When voting after the window closes", func() {
			book.set("bob", 100)
			clock.advance(73 * time.Hour)
			So(eng.Vote(ctx, "bob", id, true), ShouldEqual, governance.ErrOutsideWindow)
		})

		Convey("When voting on an unknown proposal", func() {
			book.set("bob", 100)
			So(eng.Vote(ctx, "bob", 999, true), ShouldEqual, governance.ErrNotFound)
		})
	})
}

func TestMarkExecuted(t *testing.T) {
	ctx := context.Background()

	Convey("Given a proposal past its window", t, func() {
		clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
		eng, book := newEngine(clock)
		book.set("alice", 150)
		id, _ := eng.CreateProposal(ctx, "alice", "proposal", "d")

		Convey("When the window is still open", func() {
			So(eng.MarkExecuted(ctx, "admin", id), ShouldEqual, governance.ErrWindowOpen)
		})

		Convey("When the window has closed", func() {
			clock.advance(80 * time.Hour)

			Convey("Then only an admin can mark execution, once", func() {
				So(eng.MarkExecuted(ctx, "alice", id), ShouldEqual, governance.ErrUnauthorized)
				So(eng.MarkExecuted(ctx, "admin", id), ShouldBeNil)
				p, _ := eng.ByID(ctx, id)
				So(p.Executed, ShouldBeTrue)
				So(eng.MarkExecuted(ctx, "admin", id), ShouldEqual, governance.ErrAlreadyExecuted)
			})
		})
	})
}
