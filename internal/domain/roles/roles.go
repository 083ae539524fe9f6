// Package roles provides the role table consulted by per-operation
// authorization checks. Two roles exist: Admin (protocol operators) and
// Oracle (identities trusted to verify or reject milestones, directly or
// via signed attestations).
package roles

import (
	"context"
	"sync"

	"github.com/okian/forgeboard/internal/domain/types"
)

// Authorizer answers role membership questions.
type Authorizer interface {
	IsAdmin(ctx context.Context, id types.Identity) bool
	IsOracle(ctx context.Context, id types.Identity) bool
}

// Table is an in-memory role table. Grants and revocations are themselves
// admin-gated, so the table always needs at least one seed admin.
type Table struct {
	mu      sync.RWMutex
	admins  map[types.Identity]struct{}
	oracles map[types.Identity]struct{}
}

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithAdmins seeds the initial admin set.
func WithAdmins(ids ...types.Identity) Option {
	return func(t *Table) {
		for _, id := range ids {
			if id != "" {
				t.admins[id] = struct{}{}
			}
		}
	}
}

// WithOracles seeds the initial oracle set.
func WithOracles(ids ...types.Identity) Option {
	return func(t *Table) {
		for _, id := range ids {
			if id != "" {
				t.oracles[id] = struct{}{}
			}
		}
	}
}

// NewTable creates a role table with the provided options.
func NewTable(opts ...Option) *Table {
	t := &Table{
		admins:  make(map[types.Identity]struct{}),
		oracles: make(map[types.Identity]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsAdmin reports whether id holds the Admin role.
func (t *Table) IsAdmin(_ context.Context, id types.Identity) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.admins[id]
	return ok
}

// IsOracle reports whether id holds the Oracle role. Admins are not
// implicitly oracles; verification paths that accept either role check
// both explicitly.
func (t *Table) IsOracle(_ context.Context, id types.Identity) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.oracles[id]
	return ok
}

// GrantOracle adds id to the oracle set. Caller must be an admin.
func (t *Table) GrantOracle(ctx context.Context, caller, id types.Identity) error {
	if !t.IsAdmin(ctx, caller) {
		return ErrUnauthorized
	}
	if id == "" {
		return ErrInvalidIdentity
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.oracles[id] = struct{}{}
	return nil
}

// RevokeOracle removes id from the oracle set. Caller must be an admin.
func (t *Table) RevokeOracle(ctx context.Context, caller, id types.Identity) error {
	if !t.IsAdmin(ctx, caller) {
		return ErrUnauthorized
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.oracles, id)
	return nil
}

// GrantAdmin adds id to the admin set. Caller must be an admin.
func (t *Table) GrantAdmin(ctx context.Context, caller, id types.Identity) error {
	if !t.IsAdmin(ctx, caller) {
		return ErrUnauthorized
	}
	if id == "" {
		return ErrInvalidIdentity
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.admins[id] = struct{}{}
	return nil
}

// Oracles returns a snapshot of the oracle set.
func (t *Table) Oracles(_ context.Context) []types.Identity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.Identity, 0, len(t.oracles))
	for id := range t.oracles {
		out = append(out, id)
	}
	return out
}
