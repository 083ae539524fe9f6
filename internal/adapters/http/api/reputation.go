// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/forgeboard/internal/domain/types"
)

// ReputationDependencies defines the interface for reputation queries.
type ReputationDependencies interface {
	Reputation(ctx context.Context, id types.Identity) uint64
}

// ReputationHandler handles reputation requests.
type ReputationHandler struct {
	deps ReputationDependencies
}

// NewReputationHandler creates a new reputation handler.
func NewReputationHandler(deps ReputationDependencies) *ReputationHandler {
	return &ReputationHandler{deps: deps}
}

type reputationResponse struct {
	Identity   types.Identity `json:"identity"`
	Reputation uint64         `json:"reputation"`
}

// HandleGetReputation handles GET /reputation/{identity} requests.
func (h *ReputationHandler) HandleGetReputation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/reputation/")
	if path == "" || strings.Contains(path, "/") {
		respondError(w, ErrBadRequest)
		return
	}
	id := types.Identity(path)
	writeJSON(w, http.StatusOK, reputationResponse{
		Identity:   id,
		Reputation: h.deps.Reputation(r.Context(), id),
	})
}
