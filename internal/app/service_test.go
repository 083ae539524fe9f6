package service_test

import (
	"context"
	"testing"
	"time"

	service "github.com/okian/forgeboard/internal/app"
	"github.com/okian/forgeboard/internal/domain/roles"
	"github.com/okian/forgeboard/internal/domain/types"
	"github.com/okian/forgeboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithAdmins("admin"),
			service.WithOracles("oracle-1"),
			service.WithQueueSize(5_000),
			service.WithTipFeePercent(10),
			service.WithSeasonDuration(14*24*time.Hour),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})

			Convey("And stopping marks it stopped", func() {
				svc.Stop()
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_MilestoneFlow(t *testing.T) {
	Convey("Given a started service with an oracle", t, func() {
		svc := service.New(
			service.WithAdmins("admin"),
			service.WithOracles("oracle-1"),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		certID, err := svc.MintCertificate(ctx, "alice", types.CategorySolidityDev)
		So(err, ShouldBeNil)

		Convey("When a milestone is verified by the oracle", func() {
			mID, err := svc.CreateMilestone(ctx, "alice", certID,
				types.MilestoneProjectShipped, "shipped dex", "mainnet launch", "https://example.com/proof")
			So(err, ShouldBeNil)

			So(svc.VerifyMilestone(ctx, "oracle-1", mID, 100), ShouldBeNil)

			Convey("Then the certificate earns the XP", func() {
				cert, err := svc.Certificate(ctx, certID)
				So(err, ShouldBeNil)
				So(cert.Level, ShouldBeGreaterThan, 1)

				m, err := svc.Milestone(ctx, mID)
				So(err, ShouldBeNil)
				So(m.Status, ShouldEqual, types.StatusVerified)
				So(m.XPAwarded, ShouldEqual, 150)
			})
		})

		Convey("When three distinct peers endorse a milestone", func() {
			mID, err := svc.CreateMilestone(ctx, "alice", certID,
				types.MilestoneContribution, "fixed parser", "upstream patch", "https://example.com/pr")
			So(err, ShouldBeNil)

			So(svc.EndorseMilestone(ctx, "bob", mID), ShouldBeNil)
			So(svc.EndorseMilestone(ctx, "carol", mID), ShouldBeNil)
			So(svc.EndorseMilestone(ctx, "dave", mID), ShouldBeNil)

			Convey("Then it auto-verifies", func() {
				m, err := svc.Milestone(ctx, mID)
				So(err, ShouldBeNil)
				So(m.Status, ShouldEqual, types.StatusVerified)
			})
		})
	})
}

func TestService_AdminGates(t *testing.T) {
	Convey("Given a started service with one admin", t, func() {
		svc := service.New(service.WithAdmins("admin"))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		certID, err := svc.MintCertificate(ctx, "alice", types.CategoryAuditor)
		So(err, ShouldBeNil)

		Convey("When a non-admin grants XP", func() {
			err := svc.GrantXP(ctx, "mallory", certID, 500)

			Convey("Then it is rejected", func() {
				So(err, ShouldWrap, roles.ErrUnauthorized)
			})
		})

		Convey("When the admin grants XP", func() {
			So(svc.GrantXP(ctx, "admin", certID, 500), ShouldBeNil)

			cert, err := svc.Certificate(ctx, certID)
			So(err, ShouldBeNil)
			So(cert.Level, ShouldBeGreaterThan, 1)
		})

		Convey("When the admin reprices a milestone type", func() {
			So(svc.SetMilestoneBaseXP(ctx, "admin", types.MilestoneContribution, 75), ShouldBeNil)

			Convey("And a non-admin cannot", func() {
				err := svc.SetMilestoneBaseXP(ctx, "mallory", types.MilestoneContribution, 1)
				So(err, ShouldWrap, roles.ErrUnauthorized)
			})
		})

		Convey("When the admin promotes an oracle", func() {
			So(svc.GrantOracle(ctx, "admin", "oracle-2"), ShouldBeNil)

			Convey("Then the new oracle can verify", func() {
				mID, err := svc.CreateMilestone(ctx, "alice", certID,
					types.MilestoneAuditCompleted, "audited vault", "report", "https://example.com/report")
				So(err, ShouldBeNil)
				So(svc.VerifyMilestone(ctx, "oracle-2", mID, 100), ShouldBeNil)
			})
		})
	})
}

func TestService_MarketAndGovernance(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(
			service.WithAdmins("admin"),
			service.WithMinProposalReputation(50),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a tip flows through the market", func() {
			receipt, err := svc.Tip(ctx, "patron", "alice", 1000)
			So(err, ShouldBeNil)

			Convey("Then fee, net and reputation split correctly", func() {
				So(receipt.Fee, ShouldEqual, 50)
				So(receipt.Net, ShouldEqual, 950)
				So(svc.Reputation(ctx, "alice"), ShouldEqual, 100)
			})

			Convey("And the recipient can propose and vote", func() {
				pID, err := svc.CreateProposal(ctx, "alice", "fund audits", "allocate treasury")
				So(err, ShouldBeNil)

				So(svc.Vote(ctx, "alice", pID, true), ShouldBeNil)

				p, err := svc.Proposal(ctx, pID)
				So(err, ShouldBeNil)
				So(p.VotesFor, ShouldEqual, 100)
			})

			Convey("And the season records the gross as points", func() {
				seasonID, _ := svc.CurrentSeason(ctx)
				points, err := svc.SeasonPoints(ctx, seasonID, "alice")
				So(err, ShouldBeNil)
				So(points, ShouldEqual, 1000)

				entry, err := svc.SeasonRank(ctx, "alice")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
			})
		})

		Convey("When a stake is deposited and withdrawn", func() {
			certID, err := svc.MintCertificate(ctx, "alice", types.CategoryBackendDev)
			So(err, ShouldBeNil)

			handle, err := svc.DepositStake(ctx, "backer", certID, 1000)
			So(err, ShouldBeNil)
			So(svc.StakesByCertificate(ctx, certID), ShouldHaveLength, 1)

			receipt, err := svc.WithdrawStake(ctx, "backer", certID, handle)
			So(err, ShouldBeNil)

			Convey("Then the reward follows the certificate level", func() {
				So(receipt.Amount, ShouldEqual, 1000)
				So(receipt.Reward, ShouldEqual, 10) // level 1
				So(receipt.Payout, ShouldEqual, 1010)
			})

			Convey("And a second withdrawal fails", func() {
				_, err := svc.WithdrawStake(ctx, "backer", certID, handle)
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
			})
		})
	})
}
