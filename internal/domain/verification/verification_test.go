package verification_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/okian/forgeboard/internal/domain/progression"
	"github.com/okian/forgeboard/internal/domain/reward"
	"github.com/okian/forgeboard/internal/domain/roles"
	"github.com/okian/forgeboard/internal/domain/types"
	"github.com/okian/forgeboard/internal/domain/verification"
	. "github.com/smartystreets/goconvey/convey"
)

// fixture wires a verification engine against a real progression engine
// and a role table with one oracle and one admin.
type fixture struct {
	certs  *progression.Engine
	engine *verification.Engine
	certID types.ID
}

func newFixture(ctx context.Context) *fixture {
	certs := progression.New()
	auth := roles.NewTable(
		roles.WithAdmins("admin"),
		roles.WithOracles("oracle-1"),
	)
	eng := verification.New(certs, certs, auth)
	certID, err := certs.Mint(ctx, "alice", types.CategorySolidityDev)
	So(err, ShouldBeNil)
	return &fixture{certs: certs, engine: eng, certID: certID}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a builder with a certificate", t, func() {
		f := newFixture(ctx)

		Convey("When the owner submits a milestone", func() {
			id, err := f.engine.Create(ctx, "alice", f.certID,
				types.MilestoneContribution, "fix flaky CI", "details", "https://example.com/pr/1")

			Convey("Then it should start pending with no award", func() {
				So(err, ShouldBeNil)
				m, err := f.engine.ByID(ctx, id)
				So(err, ShouldBeNil)
				So(m.Status, ShouldEqual, types.StatusPending)
				So(m.XPAwarded, ShouldEqual, 0)
				So(m.Builder, ShouldEqual, types.Identity("alice"))
				So(m.EndorsementCount, ShouldEqual, 0)
			})
		})

		Convey("When a non-owner submits against the certificate", func() {
			_, err := f.engine.Create(ctx, "bob", f.certID,
				types.MilestoneContribution, "t", "d", "p")
			So(err, ShouldEqual, verification.ErrNotCertOwner)
		})

		Convey("When the certificate does not exist", func() {
			_, err := f.engine.Create(ctx, "alice", 999,
				types.MilestoneContribution, "t", "d", "p")
			So(err, ShouldEqual, verification.ErrNotFound)
		})

		Convey("When the input is malformed", func() {
			_, err := f.engine.Create(ctx, "alice", f.certID,
				types.MilestoneType("nope"), "t", "d", "p")
			So(err, ShouldEqual, verification.ErrInvalidInput)

			_, err = f.engine.Create(ctx, "alice", f.certID,
				types.MilestoneContribution, "   ", "d", "p")
			So(err, ShouldEqual, verification.ErrInvalidInput)
		})
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pending milestone", t, func() {
		f := newFixture(ctx)
		id, err := f.engine.Create(ctx, "alice", f.certID,
			types.MilestoneAuditCompleted, "audit", "d", "p")
		So(err, ShouldBeNil)

		Convey("When an oracle verifies at 100%", func() {
			So(f.engine.Verify(ctx, "oracle-1", id, 100), ShouldBeNil)
			m, _ := f.engine.ByID(ctx, id)

			Convey("Then the milestone is terminal with the base award", func() {
				So(m.Status, ShouldEqual, types.StatusVerified)
				So(m.XPAwarded, ShouldEqual, 300)
				So(m.Verifier, ShouldEqual, types.Identity("oracle-1"))
			})

			Convey("And the certificate received the XP", func() {
				cert, _ := f.certs.ByID(ctx, f.certID)
				So(cert.TotalMilestones, ShouldEqual, 1)
				So(cert.Level, ShouldBeGreaterThan, 1)
			})

			Convey("And no further verify, reject or endorse succeeds", func() {
				So(f.engine.Verify(ctx, "oracle-1", id, 100), ShouldEqual, verification.ErrNotPending)
				So(f.engine.Reject(ctx, "oracle-1", id, "late"), ShouldEqual, verification.ErrNotPending)
				So(f.engine.Endorse(ctx, "bob", id), ShouldEqual, verification.ErrNotPending)
			})
		})

		Convey("When an admin verifies with a boosted multiplier", func() {
			So(f.engine.Verify(ctx, "admin", id, 150), ShouldBeNil)
			m, _ := f.engine.ByID(ctx, id)
			So(m.XPAwarded, ShouldEqual, 450)
		})

		Convey("When an unauthorized identity verifies", func() {
			So(f.engine.Verify(ctx, "bob", id, 100), ShouldEqual, verification.ErrUnauthorized)
			m, _ := f.engine.ByID(ctx, id)
			So(m.Status, ShouldEqual, types.StatusPending)
		})

		Convey("When the multiplier is out of range", func() {
			So(f.engine.Verify(ctx, "oracle-1", id, 0), ShouldEqual, reward.ErrBadMultiplier)
			So(f.engine.Verify(ctx, "oracle-1", id, 9999), ShouldEqual, reward.ErrBadMultiplier)
		})

		Convey("When the milestone does not exist", func() {
			So(f.engine.Verify(ctx, "oracle-1", 999, 100), ShouldEqual, verification.ErrNotFound)
		})
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pending milestone", t, func() {
		f := newFixture(ctx)
		id, _ := f.engine.Create(ctx, "alice", f.certID,
			types.MilestoneContribution, "t", "d", "p")

		Convey("When an oracle rejects it", func() {
			So(f.engine.Reject(ctx, "oracle-1", id, "insufficient proof"), ShouldBeNil)
			m, _ := f.engine.ByID(ctx, id)

			Convey("Then it is terminal with no XP side effect", func() {
				So(m.Status, ShouldEqual, types.StatusRejected)
				So(m.XPAwarded, ShouldEqual, 0)
				cert, _ := f.certs.ByID(ctx, f.certID)
				So(cert.TotalMilestones, ShouldEqual, 0)
			})

			Convey("And it can no longer be challenged", func() {
				So(f.engine.Challenge(ctx, "bob", id), ShouldEqual, verification.ErrRejectedMilestone)
			})
		})

		Convey("When a non-oracle rejects", func() {
			So(f.engine.Reject(ctx, "bob", id, "nah"), ShouldEqual, verification.ErrUnauthorized)
		})
	})
}

func TestEndorseAutoVerify(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pending milestone", t, func() {
		f := newFixture(ctx)
		id, _ := f.engine.Create(ctx, "alice", f.certID,
			types.MilestoneProjectShipped, "shipped", "d", "p")

		Convey("When two distinct identities endorse", func() {
			So(f.engine.Endorse(ctx, "bob", id), ShouldBeNil)
			So(f.engine.Endorse(ctx, "carol", id), ShouldBeNil)
			m, _ := f.engine.ByID(ctx, id)

			Convey("Then the milestone stays pending", func() {
				So(m.Status, ShouldEqual, types.StatusPending)
				So(m.EndorsementCount, ShouldEqual, 2)
			})
		})

		Convey("When the third distinct endorsement lands", func() {
			So(f.engine.Endorse(ctx, "bob", id), ShouldBeNil)
			So(f.engine.Endorse(ctx, "carol", id), ShouldBeNil)
			So(f.engine.Endorse(ctx, "dave", id), ShouldBeNil)
			m, _ := f.engine.ByID(ctx, id)

			Convey("Then exactly one verification fires at 100%", func() {
				So(m.Status, ShouldEqual, types.StatusVerified)
				So(m.XPAwarded, ShouldEqual, 150)
				So(m.Verifier, ShouldEqual, types.Identity("community"))
			})

			Convey("And a fourth endorsement cannot double-grant", func() {
				So(f.engine.Endorse(ctx, "erin", id), ShouldEqual, verification.ErrNotPending)
				cert, _ := f.certs.ByID(ctx, f.certID)
				So(cert.TotalMilestones, ShouldEqual, 1)
			})
		})

		Convey("When the builder endorses their own milestone", func() {
			So(f.engine.Endorse(ctx, "alice", id), ShouldEqual, verification.ErrSelfEndorse)
		})

		Convey("When an identity endorses twice", func() {
			So(f.engine.Endorse(ctx, "bob", id), ShouldBeNil)
			So(f.engine.Endorse(ctx, "bob", id), ShouldEqual, verification.ErrAlreadyEndorsed)
			m, _ := f.engine.ByID(ctx, id)
			So(m.EndorsementCount, ShouldEqual, 1)
		})
	})
}

func TestChallenge(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pending milestone", t, func() {
		f := newFixture(ctx)
		id, _ := f.engine.Create(ctx, "alice", f.certID,
			types.MilestoneContribution, "t", "d", "p")

		Convey("When one identity challenges", func() {
			So(f.engine.Challenge(ctx, "bob", id), ShouldBeNil)
			m, _ := f.engine.ByID(ctx, id)

			Convey("Then the milestone stays pending below the threshold", func() {
				So(m.Status, ShouldEqual, types.StatusPending)
				So(m.ChallengeCount, ShouldEqual, 1)
			})

			Convey("And the same identity cannot challenge again", func() {
				So(f.engine.Challenge(ctx, "bob", id), ShouldEqual, verification.ErrAlreadyChallenged)
			})
		})

		Convey("When the challenge threshold is reached", func() {
			So(f.engine.Challenge(ctx, "bob", id), ShouldBeNil)
			So(f.engine.Challenge(ctx, "carol", id), ShouldBeNil)
			m, _ := f.engine.ByID(ctx, id)

			Convey("Then the milestone is flagged as challenged", func() {
				So(m.Status, ShouldEqual, types.StatusChallenged)
				So(m.ChallengeCount, ShouldEqual, 2)
			})

			Convey("And a challenged milestone cannot be endorsed", func() {
				So(f.engine.Endorse(ctx, "dave", id), ShouldEqual, verification.ErrNotPending)
			})
		})
	})

	Convey("Given a verified milestone", t, func() {
		f := newFixture(ctx)
		id, _ := f.engine.Create(ctx, "alice", f.certID,
			types.MilestoneContribution, "t", "d", "p")
		So(f.engine.Verify(ctx, "oracle-1", id, 100), ShouldBeNil)

		Convey("When identities challenge it past the threshold", func() {
			So(f.engine.Challenge(ctx, "bob", id), ShouldBeNil)
			So(f.engine.Challenge(ctx, "carol", id), ShouldBeNil)
			So(f.engine.Challenge(ctx, "dave", id), ShouldBeNil)
			m, _ := f.engine.ByID(ctx, id)

			Convey("Then only the counter moves; status and XP are untouched", func() {
				So(m.Status, ShouldEqual, types.StatusVerified)
				So(m.ChallengeCount, ShouldEqual, 3)
				So(m.XPAwarded, ShouldEqual, 50)
			})
		})
	})
}

func TestByBuilder(t *testing.T) {
	ctx := context.Background()

	Convey("Given several milestones from one builder", t, func() {
		f := newFixture(ctx)
		var ids []types.ID
		for i := 0; i < 3; i++ {
			id, err := f.engine.Create(ctx, "alice", f.certID,
				types.MilestoneContribution, fmt.Sprintf("work %d", i), "d", "p")
			So(err, ShouldBeNil)
			ids = append(ids, id)
		}

		Convey("Then ByBuilder lists them in creation order", func() {
			ms := f.engine.ByBuilder(ctx, "alice")
			So(len(ms), ShouldEqual, 3)
			for i, m := range ms {
				So(m.ID, ShouldEqual, ids[i])
			}
		})

		Convey("And an unknown builder yields an empty list", func() {
			So(len(f.engine.ByBuilder(ctx, "nobody")), ShouldEqual, 0)
		})
	})
}
