// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/forgeboard/internal/domain/types"
)

// RewardDependencies defines the interface for reward table administration.
type RewardDependencies interface {
	SetMilestoneBaseXP(ctx context.Context, caller types.Identity, mt types.MilestoneType, baseXP uint64) error
}

// RewardHandler handles reward table requests.
type RewardHandler struct {
	deps RewardDependencies
}

// NewRewardHandler creates a new reward handler.
func NewRewardHandler(deps RewardDependencies) *RewardHandler {
	return &RewardHandler{deps: deps}
}

type rewardRequest struct {
	BaseXP uint64 `json:"base_xp"`
}

// HandlePutReward handles PUT /rewards/{milestone_type} requests.
func (h *RewardHandler) HandlePutReward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/rewards/")
	if path == "" || strings.Contains(path, "/") {
		respondError(w, ErrBadRequest)
		return
	}
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	if err := h.deps.SetMilestoneBaseXP(r.Context(), caller, types.MilestoneType(path), req.BaseXP); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
