package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FORGE_CONFIG is set
//  3. env (prefix FORGE_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("FORGE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: FORGE_ADDR, FORGE_TIP_FEE_PERCENT, ...
	// Map env keys like FORGE_QUEUE_SIZE -> queue_size (flat keys).
	// Underscores are preserved to match koanf tags on the struct.
	envProvider := env.Provider("FORGE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "forge_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TipFeePercent > 100:
		return fmt.Errorf("%w: tip_fee_percent must be 0..100", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.DispatcherWorkers <= 0:
		return fmt.Errorf("%w: dispatcher_workers must be positive", ErrInvalidConfig)
	case c.SeasonDays <= 0:
		return fmt.Errorf("%w: season_days must be positive", ErrInvalidConfig)
	case c.LeaderboardSize <= 0:
		return fmt.Errorf("%w: leaderboard_size must be positive", ErrInvalidConfig)
	case c.VotingPeriodDays <= 0:
		return fmt.Errorf("%w: voting_period_days must be positive", ErrInvalidConfig)
	}
	return nil
}
