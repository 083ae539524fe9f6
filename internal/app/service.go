// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/forgeboard/internal/adapters/events"
	"github.com/okian/forgeboard/internal/adapters/repository"
	"github.com/okian/forgeboard/internal/domain/governance"
	"github.com/okian/forgeboard/internal/domain/market"
	"github.com/okian/forgeboard/internal/domain/progression"
	"github.com/okian/forgeboard/internal/domain/reward"
	"github.com/okian/forgeboard/internal/domain/roles"
	"github.com/okian/forgeboard/internal/domain/types"
	"github.com/okian/forgeboard/internal/domain/verification"
	"github.com/okian/forgeboard/pkg/logger"
	"github.com/okian/forgeboard/pkg/metrics"
)

// Service wires the ledger engines behind a single facade.
type Service struct {
	mu sync.RWMutex

	// Core components
	roles        *roles.Table
	rewards      *reward.Table
	progression  *progression.Engine
	verification *verification.Engine
	market       *market.Market
	governance   *governance.Engine
	ranking      repository.Store
	bus          *events.Bus
	dispatcher   *events.Dispatcher
	cron         *cron.Cron

	// Configuration
	admins            []types.Identity
	oracles           []types.Identity
	queueSize         int
	dispatcherWorkers int
	tipFeePercent     uint64
	endorseCost       uint64
	endorseCredit     uint64
	seasonDuration    time.Duration
	seasonAutoRoll    bool
	leaderboardSize   int
	votingPeriod      time.Duration
	minProposalRep    uint64
	clock             func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAdmins seeds the admin role set.
func WithAdmins(ids ...types.Identity) Option {
	return func(s *Service) {
		s.admins = append(s.admins, ids...)
	}
}

// WithOracles seeds the oracle role set.
func WithOracles(ids ...types.Identity) Option {
	return func(s *Service) {
		s.oracles = append(s.oracles, ids...)
	}
}

// WithQueueSize sets the event bus capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDispatcherWorkers sets the number of event dispatch workers.
func WithDispatcherWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dispatcherWorkers = n
		}
	}
}

// WithTipFeePercent sets the protocol cut taken from tips.
func WithTipFeePercent(p uint64) Option {
	return func(s *Service) {
		if p <= 100 {
			s.tipFeePercent = p
		}
	}
}

// WithEndorsePricing sets the reputation cost and credit of a skill
// endorsement.
func WithEndorsePricing(cost, credit uint64) Option {
	return func(s *Service) {
		if cost > 0 && credit > 0 {
			s.endorseCost = cost
			s.endorseCredit = credit
		}
	}
}

// WithSeasonDuration sets the competitive season length.
func WithSeasonDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.seasonDuration = d
		}
	}
}

// WithSeasonAutoRoll enables the scheduled season rollover job.
func WithSeasonAutoRoll(enabled bool) Option {
	return func(s *Service) {
		s.seasonAutoRoll = enabled
	}
}

// WithLeaderboardSize sets the number of entries frozen at season end.
func WithLeaderboardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardSize = n
		}
	}
}

// WithVotingPeriod sets how long proposals accept votes.
func WithVotingPeriod(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.votingPeriod = d
		}
	}
}

// WithMinProposalReputation gates proposal creation.
func WithMinProposalReputation(r uint64) Option {
	return func(s *Service) {
		s.minProposalRep = r
	}
}

// WithClock injects a deterministic clock into every engine.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:         10_000,
		dispatcherWorkers: runtime.NumCPU(),
		tipFeePercent:     5,
		endorseCost:       10,
		endorseCredit:     20,
		seasonDuration:    30 * 24 * time.Hour,
		leaderboardSize:   10,
		votingPeriod:      7 * 24 * time.Hour,
		minProposalRep:    100,
		clock:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting skill ledger service...")

	s.bus = events.NewBus(
		events.WithCapacity(s.queueSize),
		events.WithClock(s.clock),
	)
	s.roles = roles.NewTable(
		roles.WithAdmins(s.admins...),
		roles.WithOracles(s.oracles...),
	)
	s.rewards = reward.NewTable()
	s.progression = progression.New(
		progression.WithEmitter(s.bus),
		progression.WithClock(s.clock),
	)
	s.verification = verification.New(s.progression, s.progression, s.roles,
		verification.WithEmitter(s.bus),
		verification.WithClock(s.clock),
		verification.WithRewardTable(s.rewards),
	)
	s.ranking = repository.NewTreapStore(ctx)
	s.market = market.New(s.progression, s.ranking,
		market.WithEmitter(s.bus),
		market.WithClock(s.clock),
		market.WithFeePercent(s.tipFeePercent),
		market.WithEndorseCost(s.endorseCost),
		market.WithEndorseCredit(s.endorseCredit),
		market.WithSeasonDuration(s.seasonDuration),
		market.WithLeaderboardSize(s.leaderboardSize),
	)
	s.governance = governance.New(s.market, s.roles,
		governance.WithEmitter(s.bus),
		governance.WithClock(s.clock),
		governance.WithMinReputation(s.minProposalRep),
		governance.WithVotingPeriod(s.votingPeriod),
	)

	s.dispatcher = events.NewDispatcher(s.bus,
		[]events.Sink{events.NewLogSink(), events.NewMetricsSink()},
		events.WithWorkers(s.dispatcherWorkers),
	)
	s.dispatcher.Start(ctx)

	if s.seasonAutoRoll {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc("@hourly", s.tryEndSeason); err != nil {
			return err
		}
		s.cron.Start()
	}

	s.started = true
	s.logger.Info(ctx, "skill ledger service started",
		logger.Int("dispatcherWorkers", s.dispatcherWorkers),
		logger.Int("queueSize", s.queueSize),
		logger.Int("admins", len(s.admins)),
		logger.Int("oracles", len(s.oracles)),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping skill ledger service...")

	if s.cron != nil {
		s.cron.Stop()
	}
	if s.bus != nil {
		_ = s.bus.Close()
	}
	if s.dispatcher != nil {
		s.dispatcher.Wait()
	}

	s.started = false
	s.logger.Info(context.Background(), "skill ledger service stopped")
}

// tryEndSeason attempts a season rollover. A still-running season is the
// normal case and is not an error worth logging above debug.
func (s *Service) tryEndSeason() {
	ctx := context.Background()
	result, err := s.market.EndSeason(ctx)
	if err != nil {
		s.logger.Debug(ctx, "season rollover skipped", logger.Error(err))
		return
	}
	s.logger.Info(ctx, "season rolled over",
		logger.Uint64("season", uint64(result.ID)),
		logger.Int("leaderboard", len(result.Leaderboard)),
	)
}

// Progression facade.

// MintCertificate creates a fresh certificate for the caller.
func (s *Service) MintCertificate(ctx context.Context, owner types.Identity, category types.Category) (types.ID, error) {
	return s.progression.Mint(ctx, owner, category)
}

// Certificate returns a certificate by id.
func (s *Service) Certificate(ctx context.Context, id types.ID) (progression.Certificate, error) {
	return s.progression.ByID(ctx, id)
}

// CertificatesByOwner lists all certificates held by an identity.
func (s *Service) CertificatesByOwner(ctx context.Context, owner types.Identity) []progression.Certificate {
	return s.progression.ByOwner(ctx, owner)
}

// GrantXP feeds XP into a certificate outside the milestone flow. Admin only.
func (s *Service) GrantXP(ctx context.Context, caller types.Identity, id types.ID, amount uint64) error {
	if !s.roles.IsAdmin(ctx, caller) {
		return roles.ErrUnauthorized
	}
	return s.progression.AddXP(ctx, id, amount)
}

// Verification facade.

// CreateMilestone records a pending milestone against a caller-owned
// certificate.
func (s *Service) CreateMilestone(ctx context.Context, caller types.Identity, certID types.ID, mt types.MilestoneType, title, description, proof string) (types.ID, error) {
	return s.verification.Create(ctx, caller, certID, mt, title, description, proof)
}

// Milestone returns a milestone by id.
func (s *Service) Milestone(ctx context.Context, id types.ID) (verification.Milestone, error) {
	return s.verification.ByID(ctx, id)
}

// MilestonesByBuilder lists all milestones submitted by an identity.
func (s *Service) MilestonesByBuilder(ctx context.Context, builder types.Identity) []verification.Milestone {
	return s.verification.ByBuilder(ctx, builder)
}

// EndorseMilestone adds a peer endorsement.
func (s *Service) EndorseMilestone(ctx context.Context, caller types.Identity, id types.ID) error {
	return s.verification.Endorse(ctx, caller, id)
}

// VerifyMilestone verifies a pending milestone. Oracle or admin only.
func (s *Service) VerifyMilestone(ctx context.Context, caller types.Identity, id types.ID, multiplier uint64) error {
	return s.verification.Verify(ctx, caller, id, multiplier)
}

// RejectMilestone rejects a pending milestone. Oracle or admin only.
func (s *Service) RejectMilestone(ctx context.Context, caller types.Identity, id types.ID, reason string) error {
	return s.verification.Reject(ctx, caller, id, reason)
}

// ChallengeMilestone flags a milestone.
func (s *Service) ChallengeMilestone(ctx context.Context, caller types.Identity, id types.ID) error {
	return s.verification.Challenge(ctx, caller, id)
}

// AttestMilestone verifies a milestone from an offline oracle signature.
func (s *Service) AttestMilestone(ctx context.Context, id types.ID, multiplier uint64, sig []byte) error {
	return s.verification.VerifyWithSignature(ctx, id, multiplier, sig)
}

// Market facade.

// Tip transfers currency between identities, taking the protocol fee and
// crediting reputation and season points.
func (s *Service) Tip(ctx context.Context, from, to types.Identity, amount uint64) (market.TipReceipt, error) {
	return s.market.Tip(ctx, from, to, amount)
}

// Reputation returns an identity's reputation balance.
func (s *Service) Reputation(ctx context.Context, id types.Identity) uint64 {
	return s.market.ReputationOf(ctx, id)
}

// EndorseSkill spends the caller's reputation to credit a certificate
// owner.
func (s *Service) EndorseSkill(ctx context.Context, caller types.Identity, certID types.ID) error {
	return s.market.EndorseSkill(ctx, caller, certID)
}

// DepositStake stakes currency on a certificate and returns a stable
// handle for later withdrawal.
func (s *Service) DepositStake(ctx context.Context, staker types.Identity, certID types.ID, amount uint64) (uint64, error) {
	return s.market.Stake(ctx, staker, certID, amount)
}

// WithdrawStake removes a stake and pays out the level-based reward.
func (s *Service) WithdrawStake(ctx context.Context, staker types.Identity, certID types.ID, handle uint64) (market.WithdrawReceipt, error) {
	return s.market.WithdrawStake(ctx, staker, certID, handle)
}

// StakesByCertificate lists the live stakes on a certificate.
func (s *Service) StakesByCertificate(ctx context.Context, certID types.ID) []market.Stake {
	return s.market.StakesByCertificate(ctx, certID)
}

// Seasons facade.

// CurrentSeason reports the live season id and start time.
func (s *Service) CurrentSeason(ctx context.Context) (types.ID, time.Time) {
	return s.market.CurrentSeason(ctx)
}

// Leaderboard returns the live season's top N entries.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]types.Entry, error) {
	return s.market.Leaderboard(ctx, n)
}

// SeasonRank returns the live season entry for one identity.
func (s *Service) SeasonRank(ctx context.Context, id types.Identity) (types.Entry, error) {
	return s.market.Rank(ctx, id)
}

// Season returns a finished season's frozen result.
func (s *Service) Season(ctx context.Context, id types.ID) (market.SeasonResult, error) {
	return s.market.SeasonResult(ctx, id)
}

// SeasonPoints returns an identity's points in a live or finished season.
func (s *Service) SeasonPoints(ctx context.Context, seasonID types.ID, id types.Identity) (uint64, error) {
	return s.market.SeasonPoints(ctx, seasonID, id)
}

// EndSeason freezes the current season and starts the next one.
func (s *Service) EndSeason(ctx context.Context) (market.SeasonResult, error) {
	return s.market.EndSeason(ctx)
}

// Governance facade.

// CreateProposal opens a proposal for voting.
func (s *Service) CreateProposal(ctx context.Context, proposer types.Identity, title, description string) (types.ID, error) {
	return s.governance.CreateProposal(ctx, proposer, title, description)
}

// Proposal returns a proposal by id.
func (s *Service) Proposal(ctx context.Context, id types.ID) (governance.Proposal, error) {
	return s.governance.ByID(ctx, id)
}

// Vote casts a reputation-weighted vote.
func (s *Service) Vote(ctx context.Context, voter types.Identity, id types.ID, support bool) error {
	return s.governance.Vote(ctx, voter, id, support)
}

// ExecuteProposal marks a closed proposal executed. Admin only.
func (s *Service) ExecuteProposal(ctx context.Context, caller types.Identity, id types.ID) error {
	return s.governance.MarkExecuted(ctx, caller, id)
}

// Administration facade.

// GrantOracle adds an identity to the oracle set. Admin only.
func (s *Service) GrantOracle(ctx context.Context, caller, id types.Identity) error {
	return s.roles.GrantOracle(ctx, caller, id)
}

// RevokeOracle removes an identity from the oracle set. Admin only.
func (s *Service) RevokeOracle(ctx context.Context, caller, id types.Identity) error {
	return s.roles.RevokeOracle(ctx, caller, id)
}

// GrantAdmin adds an identity to the admin set. Admin only.
func (s *Service) GrantAdmin(ctx context.Context, caller, id types.Identity) error {
	return s.roles.GrantAdmin(ctx, caller, id)
}

// SetMilestoneBaseXP overrides a milestone type's base reward. Admin only.
func (s *Service) SetMilestoneBaseXP(ctx context.Context, caller types.Identity, mt types.MilestoneType, baseXP uint64) error {
	if !s.roles.IsAdmin(ctx, caller) {
		return roles.ErrUnauthorized
	}
	return s.rewards.SetBaseXP(ctx, mt, baseXP)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
	}

	if s.started {
		ctx := context.Background()
		seasonID, seasonStart := s.market.CurrentSeason(ctx)

		stats["certificates"] = s.progression.Count(ctx)
		stats["milestones"] = s.verification.Count(ctx)
		stats["proposals"] = s.governance.Count(ctx)
		stats["rankedIdentities"] = s.ranking.Count(ctx)
		stats["season"] = seasonID
		stats["seasonStart"] = seasonStart
		stats["queueLength"] = s.bus.Len()

		metrics.UpdateCertificatesTotal(s.progression.Count(ctx))
		metrics.UpdateMilestonesTotal(s.verification.Count(ctx))
		metrics.UpdateEventQueueSize(s.bus.Len())
	}

	return stats
}
