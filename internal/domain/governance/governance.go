// Package governance owns proposals and reputation-weighted votes. Vote
// weight is snapshotted from the reputation market at cast time and
// never re-evaluated, so later reputation changes cannot move a tally.
package governance

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/okian/forgeboard/internal/domain/roles"
	"github.com/okian/forgeboard/internal/domain/types"
)

// Default governance parameters, overridable through options.
const (
	defaultMinReputation = 100
	defaultVotingPeriod  = 7 * 24 * time.Hour
)

// ReputationReader is the slice of the market the governance module
// needs: the live reputation balance used as voting weight.
type ReputationReader interface {
	ReputationOf(ctx context.Context, id types.Identity) uint64
}

// Receipt records one identity's vote: weight at cast time and side.
type Receipt struct {
	Weight  uint64 `json:"weight"`
	Support bool   `json:"support"`
}

// Proposal is a governance proposal with its running tally.
type Proposal struct {
	ID           types.ID                   `json:"id"`
	Proposer     types.Identity             `json:"proposer"`
	Title        string                     `json:"title"`
	Description  string                     `json:"description"`
	VotesFor     uint64                     `json:"votes_for"`
	VotesAgainst uint64                     `json:"votes_against"`
	StartTime    time.Time                  `json:"start_time"`
	EndTime      time.Time                  `json:"end_time"`
	Executed     bool                       `json:"executed"`
	Receipts     map[types.Identity]Receipt `json:"receipts"`
}

// Engine is the governance module.
type Engine struct {
	mu        sync.RWMutex
	proposals map[types.ID]*Proposal
	seq       uint64

	reputation    ReputationReader
	auth          roles.Authorizer
	emitter       types.Emitter
	now           func() time.Time
	minReputation uint64
	votingPeriod  time.Duration
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

// WithMinReputation sets the reputation threshold to propose.
func WithMinReputation(r uint64) Option {
	return func(en *Engine) {
		if r > 0 {
			en.minReputation = r
		}
	}
}

// WithVotingPeriod sets the voting window length.
func WithVotingPeriod(d time.Duration) Option {
	return func(en *Engine) {
		if d > 0 {
			en.votingPeriod = d
		}
	}
}

// New constructs a governance engine reading vote weight from reputation.
func New(reputation ReputationReader, auth roles.Authorizer, opts ...Option) *Engine {
	e := &Engine{
		proposals:     make(map[types.ID]*Proposal),
		reputation:    reputation,
		auth:          auth,
		now:           time.Now,
		minReputation: defaultMinReputation,
		votingPeriod:  defaultVotingPeriod,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateProposal opens a proposal with a voting window starting now.
// The proposer must hold at least the minimum reputation.
func (e *Engine) CreateProposal(ctx context.Context, proposer types.Identity, title, description string) (types.ID, error) {
	if strings.TrimSpace(title) == "" {
		return 0, ErrInvalidInput
	}
	if e.reputation.ReputationOf(ctx, proposer) < e.minReputation {
		return 0, ErrLowReputation
	}

	e.mu.Lock()
	e.seq++
	id := types.ID(e.seq)
	now := e.now()
	e.proposals[id] = &Proposal{
		ID:          id,
		Proposer:    proposer,
		Title:       title,
		Description: description,
		StartTime:   now,
		EndTime:     now.Add(e.votingPeriod),
		Receipts:    make(map[types.Identity]Receipt),
	}
	e.mu.Unlock()

	e.emit(ctx, types.EventProposalCreated, map[string]any{
		"proposal_id": id,
		"proposer":    proposer,
		"title":       title,
	})
	return id, nil
}

// Vote casts a reputation-weighted vote. Each identity votes at most
// once per proposal, only inside the window; the weight recorded is the
// voter's reputation at this moment.
func (e *Engine) Vote(ctx context.Context, voter types.Identity, id types.ID, support bool) error {
	weight := e.reputation.ReputationOf(ctx, voter)

	e.mu.Lock()
	p, ok := e.proposals[id]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	now := e.now()
	if now.Before(p.StartTime) || now.After(p.EndTime) {
		e.mu.Unlock()
		return ErrOutsideWindow
	}
	if _, voted := p.Receipts[voter]; voted {
		e.mu.Unlock()
		return ErrAlreadyVoted
	}
	if weight == 0 {
		e.mu.Unlock()
		return ErrZeroWeight
	}
	p.Receipts[voter] = Receipt{Weight: weight, Support: support}
	if support {
		p.VotesFor += weight
	} else {
		p.VotesAgainst += weight
	}
	e.mu.Unlock()

	e.emit(ctx, types.EventVoteCast, map[string]any{
		"proposal_id": id,
		"voter":       voter,
		"support":     support,
		"weight":      weight,
	})
	return nil
}

// MarkExecuted records that the external policy executor acted on a
// passed proposal. Admin only, only after the window closes, only once.
func (e *Engine) MarkExecuted(ctx context.Context, caller types.Identity, id types.ID) error {
	if !e.auth.IsAdmin(ctx, caller) {
		return ErrUnauthorized
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.proposals[id]
	if !ok {
		return ErrNotFound
	}
	if e.now().Before(p.EndTime) {
		return ErrWindowOpen
	}
	if p.Executed {
		return ErrAlreadyExecuted
	}
	p.Executed = true
	return nil
}

// ByID returns a copy of the proposal, receipts included.
func (e *Engine) ByID(_ context.Context, id types.ID) (Proposal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.proposals[id]
	if !ok {
		return Proposal{}, ErrNotFound
	}
	out := *p
	out.Receipts = make(map[types.Identity]Receipt, len(p.Receipts))
	for k, v := range p.Receipts {
		out.Receipts[k] = v
	}
	return out, nil
}

// Count returns the number of proposals ever created.
func (e *Engine) Count(_ context.Context) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.proposals)
}

func (e *Engine) emit(ctx context.Context, evt types.EventType, fields map[string]any) {
	if e.emitter != nil {
		e.emitter.Emit(ctx, evt, fields)
	}
}
