// Package progression owns skill certificate records: it applies XP
// grants, computes level-ups against a fixed curve and derives rarity
// tiers. Certificates are permanent records; they are never destroyed.
package progression

import (
	"context"
	"sync"
	"time"

	"github.com/okian/forgeboard/internal/domain/types"
)

// Certificate is a uniquely-owned record of one skill category's
// progression. Mutated only by this engine.
type Certificate struct {
	ID              types.ID       `json:"id"`
	Owner           types.Identity `json:"owner"`
	Category        types.Category `json:"category"`
	Level           int            `json:"level"`
	XP              uint64         `json:"xp"`
	TotalMilestones uint64         `json:"total_milestones"`
	Rarity          types.Rarity   `json:"rarity"`
	CreatedAt       time.Time      `json:"created_at"`
	LastUpdated     time.Time      `json:"last_updated"`
}

// XPSink is the narrow capability through which the verification engine
// (or an equivalently authorized caller) feeds XP into progression.
// Holding a sink is the authorization; the engine itself does not check
// roles.
type XPSink interface {
	AddXP(ctx context.Context, id types.ID, amount uint64) error
}

// Engine is the skill progression engine. All state lives behind one
// mutex; every operation is all-or-nothing.
type Engine struct {
	mu    sync.RWMutex
	certs map[types.ID]*Certificate
	owned map[types.Identity][]types.ID
	seq   uint64

	curve   []uint64
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

// New constructs a progression engine with a freshly built XP curve.
func New(opts ...Option) *Engine {
	e := &Engine{
		certs: make(map[types.ID]*Certificate),
		owned: make(map[types.Identity][]types.ID),
		curve: buildCurve(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RequiredXP returns the XP needed to advance from level. Returns 0 for
// levels outside the leveling range (the level-100 cap included).
func (e *Engine) RequiredXP(level int) uint64 {
	if level < minLevel || level >= maxLevel {
		return 0
	}
	return e.curve[level]
}

// Mint creates a certificate at level 1, xp 0, rarity Common.
func (e *Engine) Mint(ctx context.Context, owner types.Identity, category types.Category) (types.ID, error) {
	if owner == "" {
		return 0, ErrInvalidOwner
	}
	if !category.Valid() {
		return 0, ErrInvalidCategory
	}

	e.mu.Lock()
	e.seq++
	id := types.ID(e.seq)
	now := e.now()
	cert := &Certificate{
		ID:          id,
		Owner:       owner,
		Category:    category,
		Level:       minLevel,
		Rarity:      types.RarityCommon,
		CreatedAt:   now,
		LastUpdated: now,
	}
	e.certs[id] = cert
	e.owned[owner] = append(e.owned[owner], id)
	e.mu.Unlock()

	e.emit(ctx, types.EventCertificateMinted, map[string]any{
		"certificate_id": id,
		"owner":          owner,
		"category":       category,
	})
	return id, nil
}

// AddXP credits amount to the certificate and increments its milestone
// count, then levels up repeatedly while the accumulated XP crosses the
// curve threshold. One large grant may cross several level boundaries.
// At the level cap XP still accrues but no further leveling occurs.
func (e *Engine) AddXP(ctx context.Context, id types.ID, amount uint64) error {
	if amount == 0 {
		return ErrZeroXP
	}

	e.mu.Lock()
	cert, ok := e.certs[id]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}

	cert.XP += amount
	cert.TotalMilestones++

	levelsGained := 0
	for cert.Level < maxLevel && cert.XP >= e.curve[cert.Level] {
		cert.XP -= e.curve[cert.Level]
		cert.Level++
		levelsGained++
	}

	var upgradedTo types.Rarity
	rarityUpgraded := false
	if next := rarityFor(cert.Level); next > cert.Rarity {
		cert.Rarity = next
		upgradedTo = next
		rarityUpgraded = true
	}

	cert.LastUpdated = e.now()
	newLevel := cert.Level
	owner := cert.Owner
	e.mu.Unlock()

	e.emit(ctx, types.EventXPGained, map[string]any{
		"certificate_id": id,
		"owner":          owner,
		"amount":         amount,
	})
	if levelsGained > 0 {
		e.emit(ctx, types.EventLevelUp, map[string]any{
			"certificate_id": id,
			"new_level":      newLevel,
			"levels_gained":  levelsGained,
		})
	}
	if rarityUpgraded {
		e.emit(ctx, types.EventRarityUpgraded, map[string]any{
			"certificate_id": id,
			"rarity":         upgradedTo.String(),
		})
	}
	return nil
}

// rarityFor maps a level to its rarity tier. Applied upgrade-only by the
// caller; a certificate's rarity never moves backward.
func rarityFor(level int) types.Rarity {
	switch {
	case level >= legendaryLevel:
		return types.RarityLegendary
	case level >= epicLevel:
		return types.RarityEpic
	case level >= rareLevel:
		return types.RarityRare
	case level >= uncommonLevel:
		return types.RarityUncommon
	default:
		return types.RarityCommon
	}
}

// ByID returns a copy of the certificate.
func (e *Engine) ByID(_ context.Context, id types.ID) (Certificate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cert, ok := e.certs[id]
	if !ok {
		return Certificate{}, ErrNotFound
	}
	return *cert, nil
}

// ByOwner returns copies of all certificates held by owner, in mint order.
func (e *Engine) ByOwner(_ context.Context, owner types.Identity) []Certificate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := e.owned[owner]
	out := make([]Certificate, 0, len(ids))
	for _, id := range ids {
		out = append(out, *e.certs[id])
	}
	return out
}

// Owner returns the current owner of a certificate.
func (e *Engine) Owner(_ context.Context, id types.ID) (types.Identity, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cert, ok := e.certs[id]
	if !ok {
		return "", ErrNotFound
	}
	return cert.Owner, nil
}

// Level returns the current level of a certificate. Read live by the
// staking market when sizing withdrawal rewards.
func (e *Engine) Level(_ context.Context, id types.ID) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cert, ok := e.certs[id]
	if !ok {
		return 0, ErrNotFound
	}
	return cert.Level, nil
}

// Count returns the number of certificates ever minted.
func (e *Engine) Count(_ context.Context) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.certs)
}

func (e *Engine) emit(ctx context.Context, evt types.EventType, fields map[string]any) {
	if e.emitter != nil {
		e.emitter.Emit(ctx, evt, fields)
	}
}
