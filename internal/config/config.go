// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Admins lists identities granted the admin role at startup.
	Admins []string `koanf:"admins"`

	// Oracles lists identities granted the oracle role at startup.
	Oracles []string `koanf:"oracles"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// DispatcherWorkers sets the number of event dispatch workers.
	DispatcherWorkers int `koanf:"dispatcher_workers"`

	// TipFeePercent is the protocol cut taken from every tip, 0..100.
	TipFeePercent uint64 `koanf:"tip_fee_percent"`

	// EndorseCost and EndorseCredit price a skill endorsement.
	EndorseCost   uint64 `koanf:"endorse_cost"`
	EndorseCredit uint64 `koanf:"endorse_credit"`

	// SeasonDays sets the competitive season length in days.
	SeasonDays int `koanf:"season_days"`

	// SeasonAutoRoll enables the scheduled season rollover job.
	SeasonAutoRoll bool `koanf:"season_auto_roll"`

	// LeaderboardSize is the number of entries frozen at season end.
	LeaderboardSize int `koanf:"leaderboard_size"`

	// MaxLeaderboardLimit caps GET /seasons/current/leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// VotingPeriodDays sets how long proposals accept votes.
	VotingPeriodDays int `koanf:"voting_period_days"`

	// MinProposalReputation gates proposal creation.
	MinProposalReputation uint64 `koanf:"min_proposal_reputation"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		EventQueueSize:        10_000,
		DispatcherWorkers:     runtime.NumCPU(),
		TipFeePercent:         5,
		EndorseCost:           10,
		EndorseCredit:         20,
		SeasonDays:            30,
		SeasonAutoRoll:        false,
		LeaderboardSize:       10,
		MaxLeaderboardLimit:   100,
		VotingPeriodDays:      7,
		MinProposalReputation: 100,
	}
}
