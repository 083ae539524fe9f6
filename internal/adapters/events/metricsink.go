package events

import (
	"context"

	"github.com/okian/forgeboard/internal/domain/types"
	"github.com/okian/forgeboard/pkg/metrics"
)

// MetricsSink translates domain events into Prometheus counters. Keeping
// this translation in one sink means the engines never touch metrics
// directly.
type MetricsSink struct{}

// NewMetricsSink creates the metrics sink.
func NewMetricsSink() *MetricsSink { return &MetricsSink{} }

// Name implements Sink.
func (s *MetricsSink) Name() string { return "metrics" }

// Handle implements Sink.
func (s *MetricsSink) Handle(_ context.Context, e Event) {
	switch e.Type {
	case types.EventCertificateMinted:
		metrics.RecordCertificateMinted()
	case types.EventXPGained:
		metrics.RecordXPGranted(asUint64(e.Fields["amount"]))
	case types.EventLevelUp:
		metrics.RecordLevelUps(asInt(e.Fields["levels_gained"]))
	case types.EventRarityUpgraded:
		metrics.RecordRarityUpgrade()
	case types.EventMilestoneCreated:
		metrics.RecordMilestoneCreated()
	case types.EventMilestoneVerified:
		metrics.RecordMilestoneVerified()
	case types.EventMilestoneRejected:
		metrics.RecordMilestoneRejected()
	case types.EventMilestoneEndorsed:
		metrics.RecordEndorsement()
	case types.EventMilestoneChallenged:
		metrics.RecordChallenge()
	case types.EventTipSent:
		metrics.RecordTip(asUint64(e.Fields["fee"]))
	case types.EventReputationEarned:
		metrics.RecordReputationEarned(asUint64(e.Fields["amount"]))
	case types.EventStakeDeposited:
		metrics.RecordStakeDeposited()
	case types.EventStakeWithdrawn:
		metrics.RecordStakeWithdrawn()
	case types.EventProposalCreated:
		metrics.RecordProposalCreated()
	case types.EventVoteCast:
		metrics.RecordVoteCast()
	case types.EventSeasonEnded:
		metrics.RecordSeasonEnded()
	case types.EventSeasonStarted:
		// season starts are implied by season ends; nothing to count
	}
}

func asUint64(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int:
		if n > 0 {
			return uint64(n)
		}
	}
	return 0
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case uint64:
		return int(n)
	}
	return 0
}
