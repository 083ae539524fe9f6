// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/forgeboard/internal/adapters/repository"
	"github.com/okian/forgeboard/internal/domain/governance"
	"github.com/okian/forgeboard/internal/domain/market"
	"github.com/okian/forgeboard/internal/domain/progression"
	"github.com/okian/forgeboard/internal/domain/reward"
	"github.com/okian/forgeboard/internal/domain/roles"
	"github.com/okian/forgeboard/internal/domain/types"
	"github.com/okian/forgeboard/internal/domain/verification"
)

// identityHeader carries the established caller identity. Authentication
// itself happens upstream; the handlers treat the header as trusted input.
const identityHeader = "X-Forge-Identity"

// Dependencies bundles every per-resource interface the server needs.
// Using an interface bundle keeps the handler layer loosely coupled to
// implementations in other packages.
type Dependencies interface {
	CertificateDependencies
	MilestoneDependencies
	TipDependencies
	ReputationDependencies
	StakeDependencies
	SeasonDependencies
	ProposalDependencies
	RoleDependencies
	RewardDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	certificateHandler *CertificateHandler
	milestoneHandler   *MilestoneHandler
	tipHandler         *TipHandler
	reputationHandler  *ReputationHandler
	seasonHandler      *SeasonHandler
	proposalHandler    *ProposalHandler
	roleHandler        *RoleHandler
	rewardHandler      *RewardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxLeaderboardLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		certificateHandler: NewCertificateHandler(deps, deps),
		milestoneHandler:   NewMilestoneHandler(deps),
		tipHandler:         NewTipHandler(deps),
		reputationHandler:  NewReputationHandler(deps),
		seasonHandler:      NewSeasonHandler(deps, maxLeaderboardLimit),
		proposalHandler:    NewProposalHandler(deps),
		roleHandler:        NewRoleHandler(deps),
		rewardHandler:      NewRewardHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/certificates", MetricsMiddleware(s.certificateHandler.HandleCertificates, "certificates"))
	mux.HandleFunc("/certificates/", MetricsMiddleware(s.certificateHandler.HandleCertificate, "certificate"))
	mux.HandleFunc("/milestones", MetricsMiddleware(s.milestoneHandler.HandleMilestones, "milestones"))
	mux.HandleFunc("/milestones/", MetricsMiddleware(s.milestoneHandler.HandleMilestone, "milestone"))
	mux.HandleFunc("/tips", MetricsMiddleware(s.tipHandler.HandlePostTip, "tips"))
	mux.HandleFunc("/reputation/", MetricsMiddleware(s.reputationHandler.HandleGetReputation, "reputation"))
	mux.HandleFunc("/seasons/", MetricsMiddleware(s.seasonHandler.HandleSeasons, "seasons"))
	mux.HandleFunc("/proposals", MetricsMiddleware(s.proposalHandler.HandleProposals, "proposals"))
	mux.HandleFunc("/proposals/", MetricsMiddleware(s.proposalHandler.HandleProposal, "proposal"))
	mux.HandleFunc("/roles/", MetricsMiddleware(s.roleHandler.HandleRoles, "roles"))
	mux.HandleFunc("/rewards/", MetricsMiddleware(s.rewardHandler.HandlePutReward, "rewards"))
}

// callerIdentity extracts the trusted identity header. Empty means the
// upstream never authenticated the caller.
func callerIdentity(r *http.Request) (types.Identity, error) {
	id := types.Identity(strings.TrimSpace(r.Header.Get(identityHeader)))
	if id == "" {
		return "", ErrNoIdentity
	}
	return id, nil
}

// pathID parses an opaque numeric id out of a path segment.
func pathID(segment string) (types.ID, error) {
	n, err := strconv.ParseUint(segment, 10, 64)
	if err != nil {
		return 0, ErrBadRequest
	}
	return types.ID(n), nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// respondError translates a domain error into an HTTP status and code.
func respondError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// statusFor maps the domain error taxonomy onto HTTP statuses:
// not-found 404, authorization 403, state 409, validation 400.
func statusFor(err error) (int, string) {
	switch {
	case isNotFound(err):
		return http.StatusNotFound, "not_found"
	case isUnauthorized(err):
		return http.StatusForbidden, "forbidden"
	case isStateConflict(err):
		return http.StatusConflict, "conflict"
	case isValidation(err):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, progression.ErrNotFound) ||
		errors.Is(err, verification.ErrNotFound) ||
		errors.Is(err, market.ErrNotFound) ||
		errors.Is(err, market.ErrCertNotFound) ||
		errors.Is(err, market.ErrSeasonNotFound) ||
		errors.Is(err, governance.ErrNotFound) ||
		errors.Is(err, repository.ErrNotFound)
}

func isUnauthorized(err error) bool {
	return errors.Is(err, roles.ErrUnauthorized) ||
		errors.Is(err, verification.ErrUnauthorized) ||
		errors.Is(err, verification.ErrNotCertOwner) ||
		errors.Is(err, verification.ErrSelfEndorse) ||
		errors.Is(err, verification.ErrAlreadyEndorsed) ||
		errors.Is(err, verification.ErrAlreadyChallenged) ||
		errors.Is(err, governance.ErrUnauthorized) ||
		errors.Is(err, governance.ErrAlreadyVoted) ||
		errors.Is(err, governance.ErrLowReputation) ||
		errors.Is(err, governance.ErrZeroWeight) ||
		errors.Is(err, market.ErrNotStaker) ||
		errors.Is(err, market.ErrLowReputation) ||
		errors.Is(err, ErrNoIdentity)
}

func isStateConflict(err error) bool {
	return errors.Is(err, verification.ErrNotPending) ||
		errors.Is(err, verification.ErrRejectedMilestone) ||
		errors.Is(err, governance.ErrOutsideWindow) ||
		errors.Is(err, governance.ErrWindowOpen) ||
		errors.Is(err, governance.ErrAlreadyExecuted) ||
		errors.Is(err, market.ErrSeasonRunning)
}

func isValidation(err error) bool {
	return errors.Is(err, progression.ErrInvalidCategory) ||
		errors.Is(err, progression.ErrInvalidOwner) ||
		errors.Is(err, progression.ErrZeroXP) ||
		errors.Is(err, verification.ErrInvalidInput) ||
		errors.Is(err, verification.ErrBadSignature) ||
		errors.Is(err, governance.ErrInvalidInput) ||
		errors.Is(err, market.ErrSelfTip) ||
		errors.Is(err, market.ErrSelfEndorse) ||
		errors.Is(err, market.ErrZeroAmount) ||
		errors.Is(err, reward.ErrUnknownType) ||
		errors.Is(err, reward.ErrZeroReward) ||
		errors.Is(err, reward.ErrBadMultiplier) ||
		errors.Is(err, roles.ErrInvalidIdentity) ||
		errors.Is(err, repository.ErrInvalidLimit) ||
		errors.Is(err, ErrBadRequest)
}
