// Package types contains common types shared across the engines.
package types

import "context"

// ID is an opaque identifier handed out by an engine's own monotonic
// sequence. IDs start at 1; 0 is never a valid ID.
type ID uint64

// Identity is the stable caller identity established by the transport
// layer. The core treats it as a trusted input.
type Identity string

// Category enumerates the skill categories a certificate can track.
type Category string

// Known skill categories.
const (
	CategorySolidityDev      Category = "solidity_dev"
	CategoryFrontendDev      Category = "frontend_dev"
	CategoryBackendDev       Category = "backend_dev"
	CategoryProtocolDesigner Category = "protocol_designer"
	CategoryAuditor          Category = "auditor"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySolidityDev, CategoryFrontendDev, CategoryBackendDev,
		CategoryProtocolDesigner, CategoryAuditor:
		return true
	}
	return false
}

// Rarity is an ordered tier derived from a certificate's level.
// The ordering Common < Uncommon < Rare < Epic < Legendary is part of
// the contract: rarity never moves backward over a certificate's life.
type Rarity int

// Rarity tiers in ascending order.
const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
)

// String returns the lowercase tier name.
func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityUncommon:
		return "uncommon"
	case RarityRare:
		return "rare"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	}
	return "unknown"
}

// MilestoneType enumerates the kinds of achievements a builder can claim.
// Each type carries a base XP reward configured at initialization.
type MilestoneType string

// Known milestone types, roughly ascending by default base reward.
const (
	MilestoneContribution     MilestoneType = "contribution"
	MilestoneProjectShipped   MilestoneType = "project_shipped"
	MilestoneAuditCompleted   MilestoneType = "audit_completed"
	MilestoneExploitPatched   MilestoneType = "exploit_patched"
	MilestoneProtocolLaunched MilestoneType = "protocol_launched"
)

// Valid reports whether t is a known milestone type.
func (t MilestoneType) Valid() bool {
	switch t {
	case MilestoneContribution, MilestoneProjectShipped, MilestoneAuditCompleted,
		MilestoneExploitPatched, MilestoneProtocolLaunched:
		return true
	}
	return false
}

// MilestoneStatus tracks a milestone through its verification lifecycle.
type MilestoneStatus string

// Milestone lifecycle states. Verified and Rejected are terminal;
// Challenged is a persistent warning state.
const (
	StatusPending    MilestoneStatus = "pending"
	StatusVerified   MilestoneStatus = "verified"
	StatusRejected   MilestoneStatus = "rejected"
	StatusChallenged MilestoneStatus = "challenged"
)

// Entry represents a season leaderboard row.
type Entry struct {
	Rank     int      `json:"rank"`
	Identity Identity `json:"identity"`
	Points   uint64   `json:"points"`
}

// EventType names an emitted domain event.
type EventType string

// Emitted event types. Events describe transitions already committed and
// are notifications only, never the source of truth.
const (
	EventCertificateMinted   EventType = "certificate_minted"
	EventXPGained            EventType = "xp_gained"
	EventLevelUp             EventType = "level_up"
	EventRarityUpgraded      EventType = "rarity_upgraded"
	EventMilestoneCreated    EventType = "milestone_created"
	EventMilestoneEndorsed   EventType = "milestone_endorsed"
	EventMilestoneVerified   EventType = "milestone_verified"
	EventMilestoneRejected   EventType = "milestone_rejected"
	EventMilestoneChallenged EventType = "milestone_challenged"
	EventTipSent             EventType = "tip_sent"
	EventReputationEarned    EventType = "reputation_earned"
	EventStakeDeposited      EventType = "stake_deposited"
	EventStakeWithdrawn      EventType = "stake_withdrawn"
	EventProposalCreated     EventType = "proposal_created"
	EventVoteCast            EventType = "vote_cast"
	EventSeasonStarted       EventType = "season_started"
	EventSeasonEnded         EventType = "season_ended"
)

// Emitter receives domain events after the matching state change has
// committed. Implementations must not block the caller.
type Emitter interface {
	Emit(ctx context.Context, evt EventType, fields map[string]any)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, evt EventType, fields map[string]any)

// Emit implements Emitter.
func (f EmitterFunc) Emit(ctx context.Context, evt EventType, fields map[string]any) {
	f(ctx, evt, fields)
}
