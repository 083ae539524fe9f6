package repository

import (
	"context"
	"math/rand"
	"sync"

	"github.com/okian/forgeboard/internal/domain/types"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: points DESC, then identity ASC (deterministic). The BST
// comparator treats "less" as "ranks earlier", so an in-order traversal
// produces the leaderboard from best to worst and an identity's rank is
// the number of nodes ordered before it plus one.

// treap node
type node struct {
	id     types.Identity
	points uint64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aPoints, aID) ranks earlier than (bPoints, bID).
func less(aPoints uint64, aID types.Identity, bPoints uint64, bID types.Identity) bool {
	if aPoints != bPoints {
		return aPoints > bPoints // higher points rank earlier
	}
	return aID < bID // tie-breaker by identity asc
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// TreapStore implements Store with a randomized balanced treap plus a
// points index for O(1) lookups.
type TreapStore struct {
	mu      sync.RWMutex
	root    *node
	byID    map[types.Identity]uint64
	rng     *rand.Rand
	maxTopN int
}

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMaxTopN caps the largest TopN request the store will serve.
func WithMaxTopN(n int) Option {
	return func(s *TreapStore) {
		if n > 0 {
			s.maxTopN = n
		}
	}
}

// defaultMaxTopN bounds leaderboard reads.
const defaultMaxTopN = 1000

// NewTreapStore creates an empty ranking store.
func NewTreapStore(_ context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:    make(map[types.Identity]uint64),
		rng:     rand.New(rand.NewSource(rand.Int63())), //nolint:gosec // balance randomness, not security
		maxTopN: defaultMaxTopN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TreapStore) insert(root *node, n *node) *node {
	if root == nil {
		n.size = 1
		return n
	}
	if less(n.points, n.id, root.points, root.id) {
		root.left = s.insert(root.left, n)
		if root.left.prio > root.prio {
			root = rotateRight(root)
		}
	} else {
		root.right = s.insert(root.right, n)
		if root.right.prio > root.prio {
			root = rotateLeft(root)
		}
	}
	fix(root)
	return root
}

func (s *TreapStore) remove(root *node, points uint64, id types.Identity) *node {
	if root == nil {
		return nil
	}
	switch {
	case points == root.points && id == root.id:
		switch {
		case root.left == nil:
			return root.right
		case root.right == nil:
			return root.left
		case root.left.prio > root.right.prio:
			root = rotateRight(root)
			root.right = s.remove(root.right, points, id)
		default:
			root = rotateLeft(root)
			root.left = s.remove(root.left, points, id)
		}
	case less(points, id, root.points, root.id):
		root.left = s.remove(root.left, points, id)
	default:
		root.right = s.remove(root.right, points, id)
	}
	fix(root)
	return root
}

// SetPoints sets the absolute point total for an identity.
func (s *TreapStore) SetPoints(_ context.Context, id types.Identity, points uint64) error {
	if id == "" {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[id]; ok {
		if old == points {
			return nil
		}
		s.root = s.remove(s.root, old, id)
	}
	s.byID[id] = points
	s.root = s.insert(s.root, &node{id: id, points: points, prio: s.rng.Uint64()})
	return nil
}

// Rank returns the identity's current rank (1-based) and points.
func (s *TreapStore) Rank(_ context.Context, id types.Identity) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.byID[id]
	if !ok {
		return types.Entry{}, ErrNotFound
	}

	// Count nodes ordered strictly before (points, id).
	rank := 1
	cur := s.root
	for cur != nil {
		if less(cur.points, cur.id, points, id) {
			rank += nsize(cur.left) + 1
			cur = cur.right
		} else {
			cur = cur.left
		}
	}
	return types.Entry{Rank: rank, Identity: id, Points: points}, nil
}

// TopN returns the first n entries of the ranking.
func (s *TreapStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n < 1 || n > s.maxTopN {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entry, 0, n)
	var walk func(*node)
	walk = func(cur *node) {
		if cur == nil || len(out) >= n {
			return
		}
		walk(cur.left)
		if len(out) < n {
			out = append(out, types.Entry{
				Rank:     len(out) + 1,
				Identity: cur.id,
				Points:   cur.points,
			})
			walk(cur.right)
		}
	}
	walk(s.root)
	return out, nil
}

// Count returns the number of identities ranked.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Reset clears the ranking for a new season.
func (s *TreapStore) Reset(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = nil
	s.byID = make(map[types.Identity]uint64)
}
