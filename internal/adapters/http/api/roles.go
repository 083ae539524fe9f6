// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/forgeboard/internal/domain/types"
)

// RoleDependencies defines the interface for role administration.
type RoleDependencies interface {
	GrantOracle(ctx context.Context, caller, id types.Identity) error
	RevokeOracle(ctx context.Context, caller, id types.Identity) error
	GrantAdmin(ctx context.Context, caller, id types.Identity) error
}

// RoleHandler handles role administration requests.
type RoleHandler struct {
	deps RoleDependencies
}

// NewRoleHandler creates a new role handler.
func NewRoleHandler(deps RoleDependencies) *RoleHandler {
	return &RoleHandler{deps: deps}
}

type roleRequest struct {
	Identity types.Identity `json:"identity"`
}

// HandleRoles routes requests under /roles/:
//
//	POST   /roles/oracles
//	DELETE /roles/oracles/{identity}
//	POST   /roles/admins
func (h *RoleHandler) HandleRoles(w http.ResponseWriter, r *http.Request) {
	caller, err := callerIdentity(r)
	if err != nil {
		respondError(w, err)
		return
	}
	segs := strings.Split(strings.TrimPrefix(r.URL.Path, "/roles/"), "/")

	switch {
	case segs[0] == "oracles" && len(segs) == 1 && r.Method == http.MethodPost:
		h.grant(w, r, caller, h.deps.GrantOracle)
	case segs[0] == "oracles" && len(segs) == 2 && r.Method == http.MethodDelete:
		if err := h.deps.RevokeOracle(r.Context(), caller, types.Identity(segs[1])); err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
	case segs[0] == "admins" && len(segs) == 1 && r.Method == http.MethodPost:
		h.grant(w, r, caller, h.deps.GrantAdmin)
	default:
		http.NotFound(w, r)
	}
}

func (h *RoleHandler) grant(w http.ResponseWriter, r *http.Request, caller types.Identity,
	op func(context.Context, types.Identity, types.Identity) error) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, ErrBadRequest)
		return
	}
	if err := op(r.Context(), caller, req.Identity); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}
