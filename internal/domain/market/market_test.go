package market_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/forgeboard/internal/adapters/repository"
	"github.com/okian/forgeboard/internal/domain/market"
	"github.com/okian/forgeboard/internal/domain/progression"
	"github.com/okian/forgeboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeClock is a manually advanced time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// failStore refuses every ranking write.
type failStore struct{ err error }

func (s *failStore) SetPoints(context.Context, types.Identity, uint64) error {
	return s.err
}

func (s *failStore) TopN(context.Context, int) ([]types.Entry, error) {
	return nil, nil
}

func (s *failStore) Rank(context.Context, types.Identity) (types.Entry, error) {
	return types.Entry{}, s.err
}

func (s *failStore) Reset(context.Context) {}

func newMarket(ctx context.Context, clock *fakeClock, opts ...market.Option) (*market.Market, *progression.Engine, types.ID) {
	certs := progression.New()
	store := repository.NewTreapStore(ctx)
	opts = append([]market.Option{market.WithClock(clock.now)}, opts...)
	m := market.New(certs, store, opts...)
	certID, err := certs.Mint(ctx, "alice", types.CategorySolidityDev)
	So(err, ShouldBeNil)
	return m, certs, certID
}

func TestTip(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}

	Convey("Given a market with the default 5% fee", t, func() {
		m, _, _ := newMarket(ctx, clock)

		Convey("When bob tips alice 1000 units", func() {
			rcpt, err := m.Tip(ctx, "bob", "alice", 1000)

			Convey("Then the split is exact", func() {
				So(err, ShouldBeNil)
				So(rcpt.Fee, ShouldEqual, 50)
				So(rcpt.Net, ShouldEqual, 950)
				So(rcpt.Reputation, ShouldEqual, 100)
				So(m.FeesHeld(ctx), ShouldEqual, 50)
			})

			Convey("And alice's reputation and season points grow", func() {
				So(m.ReputationOf(ctx, "alice"), ShouldEqual, 100)
				seasonID, _ := m.CurrentSeason(ctx)
				pts, err := m.SeasonPoints(ctx, seasonID, "alice")
				So(err, ShouldBeNil)
				So(pts, ShouldEqual, 1000)
			})
		})

		Convey("When the fee and reputation rate are customised", func() {
			m2, _, _ := newMarket(ctx, clock, market.WithFeePercent(10), market.WithReputationRate(100))
			rcpt, err := m2.Tip(ctx, "bob", "alice", 1000)

			So(err, ShouldBeNil)
			So(rcpt.Fee, ShouldEqual, 100)
			So(rcpt.Net, ShouldEqual, 900)
			So(rcpt.Reputation, ShouldEqual, 10)
		})

		Convey("When the ranking store rejects the write", func() {
			errDown := errors.New("ranking store down")
			m2 := market.New(progression.New(), &failStore{err: errDown}, market.WithClock(clock.now))

			_, err := m2.Tip(ctx, "bob", "alice", 1000)

			Convey("Then the tip fails and nothing is committed", func() {
				So(err, ShouldEqual, errDown)
				So(m2.FeesHeld(ctx), ShouldEqual, 0)
				So(m2.ReputationOf(ctx, "alice"), ShouldEqual, 0)
				pts, perr := m2.SeasonPoints(ctx, 1, "alice")
				So(perr, ShouldBeNil)
				So(pts, ShouldEqual, 0)
			})
		})

		Convey("When tips are malformed", func() {
			_, err := m.Tip(ctx, "bob", "bob", 100)
			So(err, ShouldEqual, market.ErrSelfTip)

			_, err = m.Tip(ctx, "bob", "alice", 0)
			So(err, ShouldEqual, market.ErrZeroAmount)

			So(m.ReputationOf(ctx, "alice"), ShouldEqual, 0)
		})
	})
}

func TestEndorseSkill(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}

	Convey("Given bob with enough reputation", t, func() {
		m, _, certID := newMarket(ctx, clock)
		// 100 units of tips -> 10 reputation for bob
		_, err := m.Tip(ctx, "carol", "bob", 100)
		So(err, ShouldBeNil)
		So(m.ReputationOf(ctx, "bob"), ShouldEqual, 10)

		Convey("When bob endorses alice's certificate", func() {
			So(m.EndorseSkill(ctx, "bob", certID), ShouldBeNil)

			Convey("Then reputation moves at the configured multiple", func() {
				So(m.ReputationOf(ctx, "bob"), ShouldEqual, 0)
				So(m.ReputationOf(ctx, "alice"), ShouldEqual, 20)
			})

			Convey("And alice's season points include the credit", func() {
				seasonID, _ := m.CurrentSeason(ctx)
				pts, _ := m.SeasonPoints(ctx, seasonID, "alice")
				So(pts, ShouldEqual, 20)
			})
		})

		Convey("When the endorsement is invalid", func() {
			So(m.EndorseSkill(ctx, "alice", certID), ShouldEqual, market.ErrSelfEndorse)
			So(m.EndorseSkill(ctx, "broke", certID), ShouldEqual, market.ErrLowReputation)
			So(m.EndorseSkill(ctx, "bob", 999), ShouldEqual, market.ErrCertNotFound)
			So(m.ReputationOf(ctx, "bob"), ShouldEqual, 10)
		})
	})
}

func TestStakeWithdraw(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}

	Convey("Given a certificate with stakes", t, func() {
		m, certs, certID := newMarket(ctx, clock)

		h1, err := m.Stake(ctx, "bob", certID, 1000)
		So(err, ShouldBeNil)
		h2, err := m.Stake(ctx, "carol", certID, 500)
		So(err, ShouldBeNil)

		Convey("Then the pool reflects both deposits", func() {
			So(m.PoolTotal(ctx, certID), ShouldEqual, 1500)
			stakes := m.StakesByCertificate(ctx, certID)
			So(len(stakes), ShouldEqual, 2)
			So(stakes[0].Staker, ShouldEqual, types.Identity("bob"))
		})

		Convey("When bob withdraws at level 1", func() {
			rcpt, err := m.WithdrawStake(ctx, "bob", certID, h1)

			Convey("Then the reward is amount*level/100", func() {
				So(err, ShouldBeNil)
				So(rcpt.Amount, ShouldEqual, 1000)
				So(rcpt.Reward, ShouldEqual, 10)
				So(rcpt.Payout, ShouldEqual, 1010)
				So(m.PoolTotal(ctx, certID), ShouldEqual, 500)
			})

			Convey("And withdrawing the same handle again fails", func() {
				_, err := m.WithdrawStake(ctx, "bob", certID, h1)
				So(err, ShouldEqual, market.ErrNotFound)
			})

			Convey("And carol's handle is still valid afterwards", func() {
				rcpt, err := m.WithdrawStake(ctx, "carol", certID, h2)
				So(err, ShouldBeNil)
				So(rcpt.Amount, ShouldEqual, 500)
			})
		})

		Convey("When the certificate levels up before withdrawal", func() {
			// feed enough XP to reach a higher level, read live at withdrawal
			So(certs.AddXP(ctx, certID, 100), ShouldBeNil)
			level, _ := certs.Level(ctx, certID)
			So(level, ShouldEqual, 2)

			rcpt, err := m.WithdrawStake(ctx, "bob", certID, h1)
			So(err, ShouldBeNil)
			So(rcpt.Reward, ShouldEqual, 1000*uint64(level)/100)
		})

		Convey("When someone else tries to withdraw bob's stake", func() {
			_, err := m.WithdrawStake(ctx, "carol", certID, h1)
			So(err, ShouldEqual, market.ErrNotStaker)
			So(m.PoolTotal(ctx, certID), ShouldEqual, 1500)
		})

		Convey("When staking zero or against a missing certificate", func() {
			_, err := m.Stake(ctx, "bob", certID, 0)
			So(err, ShouldEqual, market.ErrZeroAmount)
			_, err = m.Stake(ctx, "bob", 999, 10)
			So(err, ShouldEqual, market.ErrCertNotFound)
		})
	})
}
