// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/forgeboard/internal/domain/types"
	"github.com/okian/forgeboard/internal/domain/verification"
)

// MilestoneDependencies defines the interface for milestone operations.
type MilestoneDependencies interface {
	CreateMilestone(ctx context.Context, caller types.Identity, certID types.ID, mt types.MilestoneType, title, description, proof string) (types.ID, error)
	Milestone(ctx context.Context, id types.ID) (verification.Milestone, error)
	MilestonesByBuilder(ctx context.Context, builder types.Identity) []verification.Milestone
	EndorseMilestone(ctx context.Context, caller types.Identity, id types.ID) error
	VerifyMilestone(ctx context.Context, caller types.Identity, id types.ID, multiplier uint64) error
	RejectMilestone(ctx context.Context, caller types.Identity, id types.ID, reason string) error
	ChallengeMilestone(ctx context.Context, caller types.Identity, id types.ID) error
	AttestMilestone(ctx context.Context, id types.ID, multiplier uint64, sig []byte) error
}

// MilestoneHandler handles milestone requests.
type MilestoneHandler struct {
	deps MilestoneDependencies
}

// NewMilestoneHandler creates a new milestone handler.
func NewMilestoneHandler(deps MilestoneDependencies) *MilestoneHandler {
	return &MilestoneHandler{deps: deps}
}

type milestoneRequest struct {
	CertificateID  types.ID `json:"certificate_id"`
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	ProofReference string   `json:"proof_reference"`
}

// HandleMilestones handles POST /milestones and GET /milestones?builder=X.
func (h *MilestoneHandler) HandleMilestones(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.listByBuilder(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *MilestoneHandler) create(w http.ResponseWriter, r *http.Request) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req milestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	id, err := h.deps.CreateMilestone(r.Context(), caller, req.CertificateID,
		types.MilestoneType(req.Type), req.Title, req.Description, req.ProofReference)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (h *MilestoneHandler) listByBuilder(w http.ResponseWriter, r *http.Request) {
	builder := types.Identity(r.URL.Query().Get("builder"))
	if builder == "" {
		respondError(w, ErrBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.MilestonesByBuilder(r.Context(), builder))
}

// HandleMilestone handles requests under /milestones/{id}:
//
//	GET  /milestones/{id}
//	POST /milestones/{id}/endorse
//	POST /milestones/{id}/verify
//	POST /milestones/{id}/reject
//	POST /milestones/{id}/challenge
//	POST /milestones/{id}/attest
func (h *MilestoneHandler) HandleMilestone(w http.ResponseWriter, r *http.Request) {
	segs := strings.Split(strings.TrimPrefix(r.URL.Path, "/milestones/"), "/")
	id, err := pathID(segs[0])
	if err != nil {
		respondError(w, err)
		return
	}

	if len(segs) == 1 {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		m, err := h.deps.Milestone(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
		return
	}
	if len(segs) != 2 || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	switch segs[1] {
	case "endorse":
		h.act(w, r, id, h.deps.EndorseMilestone, "endorsed")
	case "challenge":
		h.act(w, r, id, h.deps.ChallengeMilestone, "challenged")
	case "verify":
		h.verify(w, r, id)
	case "reject":
		h.reject(w, r, id)
	case "attest":
		h.attest(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// act covers the body-less caller actions that share a shape.
func (h *MilestoneHandler) act(w http.ResponseWriter, r *http.Request, id types.ID,
	op func(context.Context, types.Identity, types.ID) error, status string) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := op(r.Context(), caller, id); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

type verifyRequest struct {
	Multiplier uint64 `json:"multiplier"`
}

func (h *MilestoneHandler) verify(w http.ResponseWriter, r *http.Request, id types.ID) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	if err := h.deps.VerifyMilestone(r.Context(), caller, id, req.Multiplier); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *MilestoneHandler) reject(w http.ResponseWriter, r *http.Request, id types.ID) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	if err := h.deps.RejectMilestone(r.Context(), caller, id, req.Reason); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

type attestRequest struct {
	Multiplier uint64 `json:"multiplier"`
	Signature  string `json:"signature"`
}

// attest verifies a milestone from an offline oracle signature. No
// identity header is required: the signer is recovered from the
// signature itself.
func (h *MilestoneHandler) attest(w http.ResponseWriter, r *http.Request, id types.ID) {
	var req attestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	sig, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	if err := h.deps.AttestMilestone(r.Context(), id, req.Multiplier, sig); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
