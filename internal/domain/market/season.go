package market

import (
	"context"
	"time"

	"github.com/okian/forgeboard/internal/domain/types"
)

// season is the live scoring window. Points accumulate per identity
// until the duration elapses and the season is rolled over.
type season struct {
	id     types.ID
	start  time.Time
	points map[types.Identity]uint64
}

func newSeason(id types.ID, start time.Time) *season {
	return &season{
		id:     id,
		start:  start,
		points: make(map[types.Identity]uint64),
	}
}

// SeasonResult is the immutable record of an ended season: the frozen
// top-N leaderboard plus the full point table for audits.
type SeasonResult struct {
	ID          types.ID                  `json:"id"`
	StartTime   time.Time                 `json:"start_time"`
	EndedAt     time.Time                 `json:"ended_at"`
	Leaderboard []types.Entry             `json:"leaderboard"`
	Points      map[types.Identity]uint64 `json:"points"`
}

// snapshot returns a copy that shares nothing with the history entry,
// so callers cannot mutate the frozen record.
func (r *SeasonResult) snapshot() SeasonResult {
	out := *r
	out.Leaderboard = append([]types.Entry(nil), r.Leaderboard...)
	out.Points = make(map[types.Identity]uint64, len(r.Points))
	for k, v := range r.Points {
		out.Points[k] = v
	}
	return out
}

// CurrentSeason reports the live season id and start time.
func (m *Market) CurrentSeason(_ context.Context) (types.ID, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.season.id, m.season.start
}

// SeasonPoints returns an identity's points in the given season: live
// for the current season, frozen for an ended one.
func (m *Market) SeasonPoints(_ context.Context, seasonID types.ID, id types.Identity) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if seasonID == m.season.id {
		return m.season.points[id], nil
	}
	for _, res := range m.history {
		if res.ID == seasonID {
			return res.Points[id], nil
		}
	}
	return 0, ErrSeasonNotFound
}

// SeasonResult returns the frozen record of an ended season.
func (m *Market) SeasonResult(_ context.Context, seasonID types.ID) (SeasonResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, res := range m.history {
		if res.ID == seasonID {
			return res.snapshot(), nil
		}
	}
	return SeasonResult{}, ErrSeasonNotFound
}

// Leaderboard returns the live top-N season ranking.
func (m *Market) Leaderboard(ctx context.Context, n int) ([]types.Entry, error) {
	return m.store.TopN(ctx, n)
}

// Rank returns an identity's live season rank.
func (m *Market) Rank(ctx context.Context, id types.Identity) (types.Entry, error) {
	return m.store.Rank(ctx, id)
}

// EndSeason freezes the ending season's leaderboard and point table,
// appends them to history and starts a fresh season. It is only valid
// once the season duration has elapsed. The frozen leaderboard order is
// deterministic: points descending, identity ascending.
func (m *Market) EndSeason(ctx context.Context) (SeasonResult, error) {
	m.mu.Lock()
	now := m.now()
	if now.Sub(m.season.start) < m.seasonDuration {
		m.mu.Unlock()
		return SeasonResult{}, ErrSeasonRunning
	}

	board, err := m.store.TopN(ctx, m.leaderboardSize)
	if err != nil {
		m.mu.Unlock()
		return SeasonResult{}, err
	}

	ended := m.season
	res := &SeasonResult{
		ID:          ended.id,
		StartTime:   ended.start,
		EndedAt:     now,
		Leaderboard: board,
		Points:      ended.points,
	}
	m.history = append(m.history, res)

	m.season = newSeason(ended.id+1, now)
	m.store.Reset(ctx)
	newID := m.season.id
	m.mu.Unlock()

	m.emit(ctx, types.EventSeasonEnded, map[string]any{
		"season_id": res.ID,
		"entries":   len(res.Leaderboard),
	})
	m.emit(ctx, types.EventSeasonStarted, map[string]any{
		"season_id": newID,
	})
	return res.snapshot(), nil
}
