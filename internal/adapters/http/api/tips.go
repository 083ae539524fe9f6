// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/forgeboard/internal/domain/market"
	"github.com/okian/forgeboard/internal/domain/types"
)

// TipDependencies defines the interface for tip operations.
type TipDependencies interface {
	Tip(ctx context.Context, from, to types.Identity, amount uint64) (market.TipReceipt, error)
}

// TipHandler handles tip requests.
type TipHandler struct {
	deps TipDependencies
}

// NewTipHandler creates a new tip handler.
func NewTipHandler(deps TipDependencies) *TipHandler {
	return &TipHandler{deps: deps}
}

type tipRequest struct {
	To     types.Identity `json:"to"`
	Amount uint64         `json:"amount"`
}

// HandlePostTip handles POST /tips requests.
func (h *TipHandler) HandlePostTip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req tipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	receipt, err := h.deps.Tip(r.Context(), caller, req.To, req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
