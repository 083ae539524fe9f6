// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/okian/forgeboard/internal/domain/market"
	"github.com/okian/forgeboard/internal/domain/types"
)

// StakeDependencies defines the interface for stake operations.
type StakeDependencies interface {
	DepositStake(ctx context.Context, staker types.Identity, certID types.ID, amount uint64) (uint64, error)
	WithdrawStake(ctx context.Context, staker types.Identity, certID types.ID, handle uint64) (market.WithdrawReceipt, error)
	StakesByCertificate(ctx context.Context, certID types.ID) []market.Stake
}

// StakeHandler handles the stake subresource under a certificate.
type StakeHandler struct {
	deps StakeDependencies
}

// NewStakeHandler creates a new stake handler.
func NewStakeHandler(deps StakeDependencies) *StakeHandler {
	return &StakeHandler{deps: deps}
}

type depositRequest struct {
	Amount uint64 `json:"amount"`
}

type depositResponse struct {
	Handle uint64 `json:"handle"`
}

// Handle routes /certificates/{id}/stakes[/{handle}] requests. The rest
// slice holds the path segments after "stakes".
func (h *StakeHandler) Handle(w http.ResponseWriter, r *http.Request, certID types.ID, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.StakesByCertificate(r.Context(), certID))
	case len(rest) == 0 && r.Method == http.MethodPost:
		h.deposit(w, r, certID)
	case len(rest) == 1 && r.Method == http.MethodDelete:
		h.withdraw(w, r, certID, rest[0])
	default:
		http.NotFound(w, r)
	}
}

func (h *StakeHandler) deposit(w http.ResponseWriter, r *http.Request, certID types.ID) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	handle, err := h.deps.DepositStake(r.Context(), caller, certID, req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, depositResponse{Handle: handle})
}

func (h *StakeHandler) withdraw(w http.ResponseWriter, r *http.Request, certID types.ID, seg string) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	handle, err := strconv.ParseUint(seg, 10, 64)
	if err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	receipt, err := h.deps.WithdrawStake(r.Context(), caller, certID, handle)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
