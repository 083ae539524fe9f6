// Package reward defines the milestone reward table: base XP per
// milestone type plus the multiplier arithmetic applied at verification.
package reward

import (
	"context"
	"sync"

	"github.com/okian/forgeboard/internal/domain/types"
)

// Default reward configuration constants.
const (
	// DefaultMultiplier leaves the base reward unmodified (percent).
	DefaultMultiplier = 100
	// maxMultiplier caps oracle-supplied multipliers (percent).
	maxMultiplier = 500
)

// defaultBaseXP is the initial reward table. Routine contributions grant
// least; audited security work grants most.
var defaultBaseXP = map[types.MilestoneType]uint64{
	types.MilestoneContribution:     50,
	types.MilestoneProjectShipped:   150,
	types.MilestoneAuditCompleted:   300,
	types.MilestoneExploitPatched:   400,
	types.MilestoneProtocolLaunched: 600,
}

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithBaseXP overrides base rewards from a configuration map. Zero
// values are ignored so a partial map only overrides what it names.
func WithBaseXP(base map[types.MilestoneType]uint64) Option {
	return func(t *Table) {
		for mt, xp := range base {
			if mt.Valid() && xp > 0 {
				t.base[mt] = xp
			}
		}
	}
}

// Table holds base XP per milestone type. Set at initialization and
// adjustable only through SetBaseXP, which the service admin-gates.
type Table struct {
	mu   sync.RWMutex
	base map[types.MilestoneType]uint64
}

// NewTable creates a reward table with defaults, then applies options.
func NewTable(opts ...Option) *Table {
	t := &Table{base: make(map[types.MilestoneType]uint64, len(defaultBaseXP))}
	for mt, xp := range defaultBaseXP {
		t.base[mt] = xp
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BaseXP returns the base reward for a milestone type.
func (t *Table) BaseXP(_ context.Context, mt types.MilestoneType) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	xp, ok := t.base[mt]
	if !ok {
		return 0, ErrUnknownType
	}
	return xp, nil
}

// SetBaseXP replaces the base reward for a milestone type. The caller is
// responsible for admin-gating this; participants of a milestone must
// never reach it.
func (t *Table) SetBaseXP(_ context.Context, mt types.MilestoneType, xp uint64) error {
	if !mt.Valid() {
		return ErrUnknownType
	}
	if xp == 0 {
		return ErrZeroReward
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base[mt] = xp
	return nil
}

// Compute applies a percent multiplier to the base reward for mt.
// multiplier 100 leaves the base unmodified.
func (t *Table) Compute(ctx context.Context, mt types.MilestoneType, multiplier uint64) (uint64, error) {
	if multiplier == 0 || multiplier > maxMultiplier {
		return 0, ErrBadMultiplier
	}
	base, err := t.BaseXP(ctx, mt)
	if err != nil {
		return 0, err
	}
	return base * multiplier / 100, nil
}
