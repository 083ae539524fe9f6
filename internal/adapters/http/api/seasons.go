// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/forgeboard/internal/domain/market"
	"github.com/okian/forgeboard/internal/domain/types"
)

// SeasonDependencies defines the interface for season operations.
type SeasonDependencies interface {
	CurrentSeason(ctx context.Context) (types.ID, time.Time)
	Leaderboard(ctx context.Context, n int) ([]types.Entry, error)
	SeasonRank(ctx context.Context, id types.Identity) (types.Entry, error)
	Season(ctx context.Context, id types.ID) (market.SeasonResult, error)
	SeasonPoints(ctx context.Context, seasonID types.ID, id types.Identity) (uint64, error)
	EndSeason(ctx context.Context) (market.SeasonResult, error)
}

// SeasonHandler handles season requests.
type SeasonHandler struct {
	deps     SeasonDependencies
	maxLimit int
}

// NewSeasonHandler creates a new season handler.
func NewSeasonHandler(deps SeasonDependencies, maxLimit int) *SeasonHandler {
	return &SeasonHandler{deps: deps, maxLimit: maxLimit}
}

type currentSeasonResponse struct {
	ID        types.ID  `json:"id"`
	StartTime time.Time `json:"start_time"`
}

type seasonPointsResponse struct {
	Season   types.ID       `json:"season"`
	Identity types.Identity `json:"identity"`
	Points   uint64         `json:"points"`
}

// HandleSeasons routes requests under /seasons/:
//
//	GET  /seasons/current
//	GET  /seasons/current/leaderboard?limit=N
//	GET  /seasons/current/rank/{identity}
//	POST /seasons/end
//	GET  /seasons/{id}
//	GET  /seasons/{id}/points/{identity}
func (h *SeasonHandler) HandleSeasons(w http.ResponseWriter, r *http.Request) {
	segs := strings.Split(strings.TrimPrefix(r.URL.Path, "/seasons/"), "/")

	switch {
	case segs[0] == "current":
		h.handleCurrent(w, r, segs[1:])
	case segs[0] == "end" && len(segs) == 1 && r.Method == http.MethodPost:
		result, err := h.deps.EndSeason(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case r.Method == http.MethodGet:
		h.handlePast(w, r, segs)
	default:
		http.NotFound(w, r)
	}
}

func (h *SeasonHandler) handleCurrent(w http.ResponseWriter, r *http.Request, rest []string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	switch {
	case len(rest) == 0:
		id, start := h.deps.CurrentSeason(r.Context())
		writeJSON(w, http.StatusOK, currentSeasonResponse{ID: id, StartTime: start})
	case len(rest) == 1 && rest[0] == "leaderboard":
		h.leaderboard(w, r)
	case len(rest) == 2 && rest[0] == "rank":
		entry, err := h.deps.SeasonRank(r.Context(), types.Identity(rest[1]))
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	default:
		http.NotFound(w, r)
	}
}

func (h *SeasonHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	n := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			respondError(w, ErrBadRequest)
			return
		}
		n = parsed
	}
	if n > h.maxLimit {
		respondError(w, ErrBadRequest)
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), n)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *SeasonHandler) handlePast(w http.ResponseWriter, r *http.Request, segs []string) {
	id, err := pathID(segs[0])
	if err != nil {
		respondError(w, err)
		return
	}
	switch {
	case len(segs) == 1:
		result, err := h.deps.Season(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case len(segs) == 3 && segs[1] == "points":
		identity := types.Identity(segs[2])
		points, err := h.deps.SeasonPoints(r.Context(), id, identity)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, seasonPointsResponse{Season: id, Identity: identity, Points: points})
	default:
		http.NotFound(w, r)
	}
}
