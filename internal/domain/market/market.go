// Package market owns per-identity reputation balances, per-certificate
// stake pools and seasonal scoring. It reads certificate state from the
// progression engine but never writes it.
package market

import (
	"context"
	"sync"
	"time"

	"github.com/okian/forgeboard/internal/domain/types"
)

// Default market parameters, overridable through options.
const (
	defaultFeePercent     = 5  // withheld from every tip
	defaultReputationRate = 10 // 1 reputation per this many gross units tipped
	defaultEndorseCost    = 10 // reputation deducted from the endorser
	defaultEndorseCredit  = 20 // reputation credited to the certificate owner

	defaultSeasonDuration  = 30 * 24 * time.Hour
	defaultLeaderboardSize = 10
)

// CertificateReader is the slice of the progression engine the market
// needs: ownership for skill endorsements and the live level for stake
// reward sizing.
type CertificateReader interface {
	Owner(ctx context.Context, id types.ID) (types.Identity, error)
	Level(ctx context.Context, id types.ID) (int, error)
}

// PointsStore maintains the live season ranking. The market writes
// absolute point totals into it and reads the frozen top-N at season end.
type PointsStore interface {
	SetPoints(ctx context.Context, id types.Identity, points uint64) error
	TopN(ctx context.Context, n int) ([]types.Entry, error)
	Rank(ctx context.Context, id types.Identity) (types.Entry, error)
	Reset(ctx context.Context)
}

// Stake is a caller's locked value backing a certificate. Handle is a
// stable key within the certificate's pool: it survives other stakers'
// withdrawals unchanged.
type Stake struct {
	Handle         uint64         `json:"handle"`
	Staker         types.Identity `json:"staker"`
	Amount         uint64         `json:"amount"`
	CertificateID  types.ID       `json:"certificate_id"`
	Timestamp      time.Time      `json:"timestamp"`
	RewardsClaimed uint64         `json:"rewards_claimed"`
}

// TipReceipt reports the settled split of a tip.
type TipReceipt struct {
	Gross      uint64 `json:"gross"`
	Fee        uint64 `json:"fee"`
	Net        uint64 `json:"net"`
	Reputation uint64 `json:"reputation"`
}

// WithdrawReceipt reports a stake withdrawal payout.
type WithdrawReceipt struct {
	Amount uint64 `json:"amount"`
	Reward uint64 `json:"reward"`
	Payout uint64 `json:"payout"`
}

// stakePool holds one certificate's stakes keyed by stable handle.
type stakePool struct {
	seq     uint64
	entries map[uint64]*Stake
	total   uint64
}

// Market is the reputation and staking engine.
type Market struct {
	mu         sync.RWMutex
	reputation map[types.Identity]uint64
	pools      map[types.ID]*stakePool
	feesHeld   uint64

	season  *season
	history []*SeasonResult

	certs   CertificateReader
	store   PointsStore
	emitter types.Emitter
	now     func() time.Time

	feePercent      uint64
	reputationRate  uint64
	endorseCost     uint64
	endorseCredit   uint64
	seasonDuration  time.Duration
	leaderboardSize int
}

// Option applies a configuration option to the Market.
type Option func(*Market)

// WithEmitter sets the event emitter.
func WithEmitter(e types.Emitter) Option {
	return func(m *Market) {
		if e != nil {
			m.emitter = e
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Market) {
		if now != nil {
			m.now = now
		}
	}
}

// WithFeePercent sets the tip fee percentage.
func WithFeePercent(p uint64) Option {
	return func(m *Market) {
		if p < 100 {
			m.feePercent = p
		}
	}
}

// WithReputationRate sets how many gross tip units earn one reputation.
func WithReputationRate(r uint64) Option {
	return func(m *Market) {
		if r > 0 {
			m.reputationRate = r
		}
	}
}

// WithEndorseCost sets the reputation cost of a skill endorsement.
func WithEndorseCost(c uint64) Option {
	return func(m *Market) {
		if c > 0 {
			m.endorseCost = c
		}
	}
}

// WithEndorseCredit sets the reputation credited by a skill endorsement.
func WithEndorseCredit(c uint64) Option {
	return func(m *Market) {
		if c > 0 {
			m.endorseCredit = c
		}
	}
}

// WithSeasonDuration sets the length of a scoring season.
func WithSeasonDuration(d time.Duration) Option {
	return func(m *Market) {
		if d > 0 {
			m.seasonDuration = d
		}
	}
}

// WithLeaderboardSize sets how many rows a frozen leaderboard keeps.
func WithLeaderboardSize(n int) Option {
	return func(m *Market) {
		if n > 0 {
			m.leaderboardSize = n
		}
	}
}

// New constructs a market backed by certs for certificate reads and
// store for the live season ranking. The first season starts immediately.
func New(certs CertificateReader, store PointsStore, opts ...Option) *Market {
	m := &Market{
		reputation:      make(map[types.Identity]uint64),
		pools:           make(map[types.ID]*stakePool),
		certs:           certs,
		store:           store,
		now:             time.Now,
		feePercent:      defaultFeePercent,
		reputationRate:  defaultReputationRate,
		endorseCost:     defaultEndorseCost,
		endorseCredit:   defaultEndorseCredit,
		seasonDuration:  defaultSeasonDuration,
		leaderboardSize: defaultLeaderboardSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.season = newSeason(1, m.now())
	m.emit(context.Background(), types.EventSeasonStarted, map[string]any{
		"season_id": m.season.id,
	})
	return m
}

// Tip transfers currency from one identity to another. A fixed fee is
// withheld, the net goes to the recipient, and the recipient earns
// reputation and season points proportional to the gross amount.
func (m *Market) Tip(ctx context.Context, from, to types.Identity, amount uint64) (TipReceipt, error) {
	if amount == 0 {
		return TipReceipt{}, ErrZeroAmount
	}
	if from == to {
		return TipReceipt{}, ErrSelfTip
	}

	fee := amount * m.feePercent / 100
	net := amount - fee
	rep := amount / m.reputationRate

	m.mu.Lock()
	// the ranking projection is written under the lock so it cannot
	// interleave with a season rollover's freeze and reset
	points := m.season.points[to] + amount
	if err := m.store.SetPoints(ctx, to, points); err != nil {
		m.mu.Unlock()
		return TipReceipt{}, err
	}
	m.feesHeld += fee
	m.reputation[to] += rep
	m.season.points[to] = points
	m.mu.Unlock()

	m.emit(ctx, types.EventTipSent, map[string]any{
		"from": from, "to": to,
		"gross": amount, "fee": fee, "net": net,
	})
	if rep > 0 {
		m.emit(ctx, types.EventReputationEarned, map[string]any{
			"identity": to, "amount": rep, "source": "tip",
		})
	}
	return TipReceipt{Gross: amount, Fee: fee, Net: net, Reputation: rep}, nil
}

// EndorseSkill spends the caller's reputation to boost a certificate
// owner's reputation and season points. The spender must hold the cost
// and must not own the certificate.
func (m *Market) EndorseSkill(ctx context.Context, spender types.Identity, certID types.ID) error {
	owner, err := m.certs.Owner(ctx, certID)
	if err != nil {
		return ErrCertNotFound
	}
	if owner == spender {
		return ErrSelfEndorse
	}

	m.mu.Lock()
	if m.reputation[spender] < m.endorseCost {
		m.mu.Unlock()
		return ErrLowReputation
	}
	points := m.season.points[owner] + m.endorseCredit
	if err := m.store.SetPoints(ctx, owner, points); err != nil {
		m.mu.Unlock()
		return err
	}
	m.reputation[spender] -= m.endorseCost
	m.reputation[owner] += m.endorseCredit
	m.season.points[owner] = points
	m.mu.Unlock()

	m.emit(ctx, types.EventReputationEarned, map[string]any{
		"identity": owner, "amount": m.endorseCredit, "source": "skill_endorsement",
		"certificate_id": certID, "spender": spender,
	})
	return nil
}

// Stake locks amount behind a certificate and returns a stable handle
// for later withdrawal.
func (m *Market) Stake(ctx context.Context, staker types.Identity, certID types.ID, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrZeroAmount
	}
	if _, err := m.certs.Owner(ctx, certID); err != nil {
		return 0, ErrCertNotFound
	}

	m.mu.Lock()
	pool, ok := m.pools[certID]
	if !ok {
		pool = &stakePool{entries: make(map[uint64]*Stake)}
		m.pools[certID] = pool
	}
	pool.seq++
	handle := pool.seq
	pool.entries[handle] = &Stake{
		Handle:        handle,
		Staker:        staker,
		Amount:        amount,
		CertificateID: certID,
		Timestamp:     m.now(),
	}
	pool.total += amount
	m.mu.Unlock()

	m.emit(ctx, types.EventStakeDeposited, map[string]any{
		"staker": staker, "certificate_id": certID,
		"amount": amount, "handle": handle,
	})
	return handle, nil
}

// WithdrawStake removes the caller's stake and pays amount plus a reward
// of amount*level/100, where level is read live from the progression
// engine at withdrawal time. Backing a certificate that grew after the
// stake was placed pays more.
func (m *Market) WithdrawStake(ctx context.Context, staker types.Identity, certID types.ID, handle uint64) (WithdrawReceipt, error) {
	level, err := m.certs.Level(ctx, certID)
	if err != nil {
		return WithdrawReceipt{}, ErrCertNotFound
	}

	m.mu.Lock()
	pool, ok := m.pools[certID]
	if !ok {
		m.mu.Unlock()
		return WithdrawReceipt{}, ErrNotFound
	}
	st, ok := pool.entries[handle]
	if !ok {
		m.mu.Unlock()
		return WithdrawReceipt{}, ErrNotFound
	}
	if st.Staker != staker {
		m.mu.Unlock()
		return WithdrawReceipt{}, ErrNotStaker
	}
	reward := st.Amount * uint64(level) / 100
	delete(pool.entries, handle)
	pool.total -= st.Amount
	m.mu.Unlock()

	m.emit(ctx, types.EventStakeWithdrawn, map[string]any{
		"staker": staker, "certificate_id": certID,
		"amount": st.Amount, "reward": reward, "handle": handle,
	})
	return WithdrawReceipt{Amount: st.Amount, Reward: reward, Payout: st.Amount + reward}, nil
}

// ReputationOf returns the identity's current reputation balance.
func (m *Market) ReputationOf(_ context.Context, id types.Identity) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reputation[id]
}

// StakesByCertificate returns copies of all live stakes backing a
// certificate, ordered by handle.
func (m *Market) StakesByCertificate(_ context.Context, certID types.ID) []Stake {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pool, ok := m.pools[certID]
	if !ok {
		return nil
	}
	out := make([]Stake, 0, len(pool.entries))
	for h := uint64(1); h <= pool.seq; h++ {
		if st, ok := pool.entries[h]; ok {
			out = append(out, *st)
		}
	}
	return out
}

// PoolTotal returns the aggregate amount staked behind a certificate.
func (m *Market) PoolTotal(_ context.Context, certID types.ID) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pool, ok := m.pools[certID]
	if !ok {
		return 0
	}
	return pool.total
}

// FeesHeld returns the total fees withheld from tips so far.
func (m *Market) FeesHeld(_ context.Context) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.feesHeld
}

func (m *Market) emit(ctx context.Context, evt types.EventType, fields map[string]any) {
	if m.emitter != nil {
		m.emitter.Emit(ctx, evt, fields)
	}
}
