// Package verification drives the milestone lifecycle: a builder submits
// a claim against a certificate they own, community endorsements or
// oracle attestations move it to a terminal state, and a successful
// verification feeds XP into the progression engine.
package verification

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/okian/forgeboard/internal/domain/progression"
	"github.com/okian/forgeboard/internal/domain/reward"
	"github.com/okian/forgeboard/internal/domain/roles"
	"github.com/okian/forgeboard/internal/domain/types"
)

// Threshold constants for counter-triggered transitions.
const (
	// EndorseThreshold distinct endorsements auto-verify a pending
	// milestone at the default multiplier.
	EndorseThreshold = 3
	// ChallengeThreshold distinct challenges move a pending milestone
	// to the Challenged warning state.
	ChallengeThreshold = 2

	// communityVerifier is recorded as the verifier on threshold-
	// triggered verifications, where no single oracle acted.
	communityVerifier = types.Identity("community")
)

// Milestone is a claimed achievement submitted against a certificate.
type Milestone struct {
	ID               types.ID              `json:"id"`
	Builder          types.Identity        `json:"builder"`
	CertificateID    types.ID              `json:"certificate_id"`
	Type             types.MilestoneType   `json:"type"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	ProofReference   string                `json:"proof_reference"`
	XPAwarded        uint64                `json:"xp_awarded"`
	Status           types.MilestoneStatus `json:"status"`
	CreatedAt        time.Time             `json:"created_at"`
	VerifiedAt       time.Time             `json:"verified_at"`
	Verifier         types.Identity        `json:"verifier"`
	EndorsementCount int                   `json:"endorsement_count"`
	ChallengeCount   int                   `json:"challenge_count"`
}

// CertificateReader is the slice of the progression engine the state
// machine needs: ownership checks at milestone creation.
type CertificateReader interface {
	Owner(ctx context.Context, id types.ID) (types.Identity, error)
}

// Engine is the milestone verification state machine.
type Engine struct {
	mu         sync.RWMutex
	milestones map[types.ID]*Milestone
	byBuilder  map[types.Identity][]types.ID
	endorsers  map[types.ID]map[types.Identity]struct{}
	challengers map[types.ID]map[types.Identity]struct{}
	seq        uint64

	certs   CertificateReader
	rewards *reward.Table
	sink    progression.XPSink
	auth    roles.Authorizer
	emitter types.Emitter
	now     func() time.Time
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithEmitter sets the event emitter.
func WithEmitter(e types.Emitter) Option {
	return func(en *Engine) {
		if e != nil {
			en.emitter = e
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(en *Engine) {
		if now != nil {
			en.now = now
		}
	}
}

// WithRewardTable overrides the default reward table.
func WithRewardTable(t *reward.Table) Option {
	return func(en *Engine) {
		if t != nil {
			en.rewards = t
		}
	}
}

// New constructs a verification engine. certs resolves certificate
// ownership, sink receives XP on verification, auth answers the oracle
// and admin checks.
func New(certs CertificateReader, sink progression.XPSink, auth roles.Authorizer, opts ...Option) *Engine {
	e := &Engine{
		milestones:  make(map[types.ID]*Milestone),
		byBuilder:   make(map[types.Identity][]types.ID),
		endorsers:   make(map[types.ID]map[types.Identity]struct{}),
		challengers: make(map[types.ID]map[types.Identity]struct{}),
		certs:       certs,
		rewards:     reward.NewTable(),
		sink:        sink,
		auth:        auth,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rewards exposes the reward table so the service can admin-gate
// adjustments to it.
func (e *Engine) Rewards() *reward.Table {
	return e.rewards
}

// Create submits a new pending milestone. The caller must currently own
// the referenced certificate.
func (e *Engine) Create(ctx context.Context, caller types.Identity, certID types.ID, mt types.MilestoneType, title, description, proof string) (types.ID, error) {
	if !mt.Valid() {
		return 0, ErrInvalidInput
	}
	if strings.TrimSpace(title) == "" {
		return 0, ErrInvalidInput
	}
	owner, err := e.certs.Owner(ctx, certID)
	if err != nil {
		return 0, ErrNotFound
	}
	if owner != caller {
		return 0, ErrNotCertOwner
	}

	e.mu.Lock()
	e.seq++
	id := types.ID(e.seq)
	m := &Milestone{
		ID:             id,
		Builder:        caller,
		CertificateID:  certID,
		Type:           mt,
		Title:          title,
		Description:    description,
		ProofReference: proof,
		Status:         types.StatusPending,
		CreatedAt:      e.now(),
	}
	e.milestones[id] = m
	e.byBuilder[caller] = append(e.byBuilder[caller], id)
	e.endorsers[id] = make(map[types.Identity]struct{})
	e.challengers[id] = make(map[types.Identity]struct{})
	e.mu.Unlock()

	e.emit(ctx, types.EventMilestoneCreated, map[string]any{
		"milestone_id":   id,
		"builder":        caller,
		"certificate_id": certID,
		"type":           mt,
	})
	return id, nil
}

// Endorse records a community endorsement. Each identity other than the
// builder may endorse a pending milestone once; the endorsement that
// reaches the threshold auto-verifies at the default multiplier.
func (e *Engine) Endorse(ctx context.Context, caller types.Identity, id types.ID) error {
	e.mu.Lock()
	m, ok := e.milestones[id]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	if m.Builder == caller {
		e.mu.Unlock()
		return ErrSelfEndorse
	}
	if m.Status != types.StatusPending {
		e.mu.Unlock()
		return ErrNotPending
	}
	if _, seen := e.endorsers[id][caller]; seen {
		e.mu.Unlock()
		return ErrAlreadyEndorsed
	}
	e.endorsers[id][caller] = struct{}{}
	m.EndorsementCount++
	count := m.EndorsementCount

	var verifyErr error
	autoVerified := false
	if count >= EndorseThreshold {
		verifyErr = e.verifyLocked(ctx, m, communityVerifier, reward.DefaultMultiplier)
		autoVerified = verifyErr == nil
	}
	e.mu.Unlock()

	e.emit(ctx, types.EventMilestoneEndorsed, map[string]any{
		"milestone_id": id,
		"endorser":     caller,
		"count":        count,
	})
	if autoVerified {
		e.emitVerified(ctx, m)
	}
	return verifyErr
}

// Verify moves a pending milestone to Verified. Only oracle or admin
// identities may call it directly.
func (e *Engine) Verify(ctx context.Context, caller types.Identity, id types.ID, multiplier uint64) error {
	if !e.auth.IsOracle(ctx, caller) && !e.auth.IsAdmin(ctx, caller) {
		return ErrUnauthorized
	}
	return e.verifyAs(ctx, caller, id, multiplier)
}

// verifyAs performs the Pending -> Verified transition with the given
// verifier identity already authorized.
func (e *Engine) verifyAs(ctx context.Context, verifier types.Identity, id types.ID, multiplier uint64) error {
	e.mu.Lock()
	m, ok := e.milestones[id]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	err := e.verifyLocked(ctx, m, verifier, multiplier)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.emitVerified(ctx, m)
	return nil
}

// verifyLocked applies the verification transition. Caller holds e.mu.
// The XP grant happens inside the critical section; on grant failure the
// milestone is left untouched.
func (e *Engine) verifyLocked(ctx context.Context, m *Milestone, verifier types.Identity, multiplier uint64) error {
	if m.Status != types.StatusPending {
		return ErrNotPending
	}
	xp, err := e.rewards.Compute(ctx, m.Type, multiplier)
	if err != nil {
		return err
	}
	if xp == 0 {
		return reward.ErrBadMultiplier
	}
	if err := e.sink.AddXP(ctx, m.CertificateID, xp); err != nil {
		return err
	}
	m.Status = types.StatusVerified
	m.XPAwarded = xp
	m.Verifier = verifier
	m.VerifiedAt = e.now()
	return nil
}

// Reject moves a pending milestone to Rejected with no XP side effect.
// Oracle or admin only.
func (e *Engine) Reject(ctx context.Context, caller types.Identity, id types.ID, reason string) error {
	if !e.auth.IsOracle(ctx, caller) && !e.auth.IsAdmin(ctx, caller) {
		return ErrUnauthorized
	}

	e.mu.Lock()
	m, ok := e.milestones[id]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	if m.Status != types.StatusPending {
		e.mu.Unlock()
		return ErrNotPending
	}
	m.Status = types.StatusRejected
	m.Verifier = caller
	e.mu.Unlock()

	e.emit(ctx, types.EventMilestoneRejected, map[string]any{
		"milestone_id": id,
		"verifier":     caller,
		"reason":       reason,
	})
	return nil
}

// Challenge records a dispute. Any identity may challenge once per
// milestone; rejected milestones cannot be challenged. Reaching the
// threshold moves a pending milestone to the Challenged warning state.
// Challenging a verified milestone only raises the counter; already
// granted XP is never reversed.
func (e *Engine) Challenge(ctx context.Context, caller types.Identity, id types.ID) error {
	e.mu.Lock()
	m, ok := e.milestones[id]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	if m.Status == types.StatusRejected {
		e.mu.Unlock()
		return ErrRejectedMilestone
	}
	if _, seen := e.challengers[id][caller]; seen {
		e.mu.Unlock()
		return ErrAlreadyChallenged
	}
	e.challengers[id][caller] = struct{}{}
	m.ChallengeCount++
	count := m.ChallengeCount
	if m.Status == types.StatusPending && count >= ChallengeThreshold {
		m.Status = types.StatusChallenged
	}
	status := m.Status
	e.mu.Unlock()

	e.emit(ctx, types.EventMilestoneChallenged, map[string]any{
		"milestone_id": id,
		"challenger":   caller,
		"count":        count,
		"status":       status,
	})
	return nil
}

// ByID returns a copy of the milestone.
func (e *Engine) ByID(_ context.Context, id types.ID) (Milestone, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.milestones[id]
	if !ok {
		return Milestone{}, ErrNotFound
	}
	return *m, nil
}

// ByBuilder returns copies of all milestones submitted by builder, in
// creation order.
func (e *Engine) ByBuilder(_ context.Context, builder types.Identity) []Milestone {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := e.byBuilder[builder]
	out := make([]Milestone, 0, len(ids))
	for _, id := range ids {
		out = append(out, *e.milestones[id])
	}
	return out
}

// Count returns the number of milestones ever created.
func (e *Engine) Count(_ context.Context) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.milestones)
}

func (e *Engine) emit(ctx context.Context, evt types.EventType, fields map[string]any) {
	if e.emitter != nil {
		e.emitter.Emit(ctx, evt, fields)
	}
}

// emitVerified reads the committed milestone state and emits the
// verification event. Called without the lock held.
func (e *Engine) emitVerified(ctx context.Context, m *Milestone) {
	e.mu.RLock()
	id, xp, verifier := m.ID, m.XPAwarded, m.Verifier
	e.mu.RUnlock()
	e.emit(ctx, types.EventMilestoneVerified, map[string]any{
		"milestone_id": id,
		"xp_awarded":   xp,
		"verifier":     verifier,
	})
}
