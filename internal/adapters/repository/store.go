// Package repository defines the season ranking store and its in-memory
// treap implementation.
package repository

import (
	"context"

	"github.com/okian/forgeboard/internal/domain/types"
)

// Store provides read/write access to the live season ranking.
type Store interface {
	// SetPoints sets the absolute season point total for an identity,
	// inserting it into the ranking on first write.
	SetPoints(ctx context.Context, id types.Identity, points uint64) error

	// Rank returns the current rank and points for an identity.
	// Returns ErrNotFound if the identity has no points this season.
	Rank(ctx context.Context, id types.Identity) (types.Entry, error)

	// TopN returns the top-N entries ordered by points desc, identity asc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of identities ranked this season.
	Count(ctx context.Context) int

	// Reset clears the ranking for a new season.
	Reset(ctx context.Context)
}
