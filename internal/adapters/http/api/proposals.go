// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/forgeboard/internal/domain/governance"
	"github.com/okian/forgeboard/internal/domain/types"
)

// ProposalDependencies defines the interface for governance operations.
type ProposalDependencies interface {
	CreateProposal(ctx context.Context, proposer types.Identity, title, description string) (types.ID, error)
	Proposal(ctx context.Context, id types.ID) (governance.Proposal, error)
	Vote(ctx context.Context, voter types.Identity, id types.ID, support bool) error
	ExecuteProposal(ctx context.Context, caller types.Identity, id types.ID) error
}

// ProposalHandler handles governance requests.
type ProposalHandler struct {
	deps ProposalDependencies
}

// NewProposalHandler creates a new proposal handler.
func NewProposalHandler(deps ProposalDependencies) *ProposalHandler {
	return &ProposalHandler{deps: deps}
}

type proposalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// HandleProposals handles POST /proposals requests.
func (h *ProposalHandler) HandleProposals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req proposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	id, err := h.deps.CreateProposal(r.Context(), caller, req.Title, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

type voteRequest struct {
	Support bool `json:"support"`
}

// HandleProposal handles requests under /proposals/{id}:
//
//	GET  /proposals/{id}
//	POST /proposals/{id}/votes
//	POST /proposals/{id}/execute
func (h *ProposalHandler) HandleProposal(w http.ResponseWriter, r *http.Request) {
	segs := strings.Split(strings.TrimPrefix(r.URL.Path, "/proposals/"), "/")
	id, err := pathID(segs[0])
	if err != nil {
		respondError(w, err)
		return
	}

	switch {
	case len(segs) == 1 && r.Method == http.MethodGet:
		p, err := h.deps.Proposal(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case len(segs) == 2 && segs[1] == "votes" && r.Method == http.MethodPost:
		h.vote(w, r, id)
	case len(segs) == 2 && segs[1] == "execute" && r.Method == http.MethodPost:
		h.execute(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *ProposalHandler) vote(w http.ResponseWriter, r *http.Request, id types.ID) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	if err := h.deps.Vote(r.Context(), caller, id, req.Support); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "voted"})
}

func (h *ProposalHandler) execute(w http.ResponseWriter, r *http.Request, id types.ID) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.deps.ExecuteProposal(r.Context(), caller, id); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "executed"})
}
