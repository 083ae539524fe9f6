// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/forgeboard/internal/domain/progression"
	"github.com/okian/forgeboard/internal/domain/types"
)

// CertificateDependencies defines the interface for certificate operations.
type CertificateDependencies interface {
	MintCertificate(ctx context.Context, owner types.Identity, category types.Category) (types.ID, error)
	Certificate(ctx context.Context, id types.ID) (progression.Certificate, error)
	CertificatesByOwner(ctx context.Context, owner types.Identity) []progression.Certificate
	GrantXP(ctx context.Context, caller types.Identity, id types.ID, amount uint64) error
	EndorseSkill(ctx context.Context, caller types.Identity, certID types.ID) error
}

// CertificateHandler handles certificate requests.
type CertificateHandler struct {
	deps   CertificateDependencies
	stakes *StakeHandler
}

// NewCertificateHandler creates a new certificate handler.
func NewCertificateHandler(deps CertificateDependencies, stakes StakeDependencies) *CertificateHandler {
	return &CertificateHandler{deps: deps, stakes: NewStakeHandler(stakes)}
}

type mintRequest struct {
	Category string `json:"category"`
}

type idResponse struct {
	ID types.ID `json:"id"`
}

// HandleCertificates handles POST /certificates and GET /certificates?owner=X.
func (h *CertificateHandler) HandleCertificates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.mint(w, r)
	case http.MethodGet:
		h.listByOwner(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *CertificateHandler) mint(w http.ResponseWriter, r *http.Request) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	id, err := h.deps.MintCertificate(r.Context(), caller, types.Category(req.Category))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (h *CertificateHandler) listByOwner(w http.ResponseWriter, r *http.Request) {
	owner := types.Identity(r.URL.Query().Get("owner"))
	if owner == "" {
		respondError(w, ErrBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.CertificatesByOwner(r.Context(), owner))
}

// HandleCertificate handles requests under /certificates/{id}:
//
//	GET    /certificates/{id}
//	POST   /certificates/{id}/xp
//	POST   /certificates/{id}/endorse
//	GET    /certificates/{id}/stakes
//	POST   /certificates/{id}/stakes
//	DELETE /certificates/{id}/stakes/{handle}
func (h *CertificateHandler) HandleCertificate(w http.ResponseWriter, r *http.Request) {
	segs := strings.Split(strings.TrimPrefix(r.URL.Path, "/certificates/"), "/")
	id, err := pathID(segs[0])
	if err != nil {
		respondError(w, err)
		return
	}

	switch {
	case len(segs) == 1 && r.Method == http.MethodGet:
		cert, err := h.deps.Certificate(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cert)
	case len(segs) == 2 && segs[1] == "xp" && r.Method == http.MethodPost:
		h.grantXP(w, r, id)
	case len(segs) == 2 && segs[1] == "endorse" && r.Method == http.MethodPost:
		h.endorse(w, r, id)
	case len(segs) >= 2 && segs[1] == "stakes":
		h.stakes.Handle(w, r, id, segs[2:])
	default:
		http.NotFound(w, r)
	}
}

type grantXPRequest struct {
	Amount uint64 `json:"amount"`
}

func (h *CertificateHandler) grantXP(w http.ResponseWriter, r *http.Request, id types.ID) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req grantXPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	if err := h.deps.GrantXP(r.Context(), caller, id, req.Amount); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

func (h *CertificateHandler) endorse(w http.ResponseWriter, r *http.Request, id types.ID) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.deps.EndorseSkill(r.Context(), caller, id); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "endorsed"})
}
