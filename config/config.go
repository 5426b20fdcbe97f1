// Package config carries the tunable engine parameters. The defaults match
// the deployed protocol constants; operators can override them per deployment
// through a TOML file.
package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"
)

// Engine bounds the time-dependent machinery: the security limiter decay and
// the parameter ramp windows.
type Engine struct {
	// DecayPeriodSeconds is the time over which consumed security-limit
	// capacity fully recovers.
	DecayPeriodSeconds int64 `toml:"decay_period_seconds"`
	// MinWeightAdjustmentSeconds is the shortest allowed weight ramp.
	MinWeightAdjustmentSeconds int64 `toml:"min_weight_adjustment_seconds"`
	// MinAmpAdjustmentSeconds is the shortest allowed amplification ramp.
	// Amplification moves prices less per step, so its floor is lower.
	MinAmpAdjustmentSeconds int64 `toml:"min_amp_adjustment_seconds"`
	// MaxAdjustmentSeconds is the longest allowed ramp of either kind.
	MaxAdjustmentSeconds int64 `toml:"max_adjustment_seconds"`
	// MaxWeightFactor bounds a weight ramp target relative to the current
	// value, in both directions.
	MaxWeightFactor int64 `toml:"max_weight_factor"`
	// MaxAmpFactor bounds an amplification ramp target relative to the
	// current one-minus-amplification value, in both directions.
	MaxAmpFactor int64 `toml:"max_amp_factor"`
}

// Fees caps the fee configuration. Values are WAD-scaled fractions encoded as
// decimal strings.
type Fees struct {
	MaxVaultFeeWAD        string `toml:"max_vault_fee_wad"`
	MaxGovernanceShareWAD string `toml:"max_governance_share_wad"`
	DefaultGovernanceWAD  string `toml:"default_governance_share"`
}

// Config is the full engine configuration.
type Config struct {
	Engine Engine `toml:"engine"`
	Fees   Fees   `toml:"fees"`
}

// Default returns the deployed protocol constants: one-day limiter decay,
// seven-day minimum weight ramps, two-day minimum amplification ramps,
// one-year maximum windows, a 10x weight bound and a 2x amplification bound.
func Default() *Config {
	return &Config{
		Engine: Engine{
			DecayPeriodSeconds:         86400,
			MinWeightAdjustmentSeconds: 7 * 86400,
			MinAmpAdjustmentSeconds:    2 * 86400,
			MaxAdjustmentSeconds:       365 * 86400,
			MaxWeightFactor:            10,
			MaxAmpFactor:               2,
		},
		Fees: Fees{
			MaxVaultFeeWAD:        "1000000000000000000",
			MaxGovernanceShareWAD: "750000000000000000",
			DefaultGovernanceWAD:  "0",
		},
	}
}

// Load reads a TOML config from path, filling unset fields with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	e := c.Engine
	if e.DecayPeriodSeconds <= 0 {
		return fmt.Errorf("config: decay period must be positive, got %d", e.DecayPeriodSeconds)
	}
	if e.MinWeightAdjustmentSeconds <= 0 || e.MinAmpAdjustmentSeconds <= 0 {
		return fmt.Errorf("config: minimum adjustment durations must be positive")
	}
	if e.MaxAdjustmentSeconds < e.MinWeightAdjustmentSeconds || e.MaxAdjustmentSeconds < e.MinAmpAdjustmentSeconds {
		return fmt.Errorf("config: maximum adjustment duration %d below a minimum", e.MaxAdjustmentSeconds)
	}
	if e.MaxWeightFactor < 1 || e.MaxAmpFactor < 1 {
		return fmt.Errorf("config: adjustment factors must be at least 1")
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"max_vault_fee_wad", c.Fees.MaxVaultFeeWAD},
		{"max_governance_share_wad", c.Fees.MaxGovernanceShareWAD},
		{"default_governance_share", c.Fees.DefaultGovernanceWAD},
	} {
		if _, err := parseWAD(field.value); err != nil {
			return fmt.Errorf("config: %s: %w", field.name, err)
		}
	}
	maxVault, _ := parseWAD(c.Fees.MaxVaultFeeWAD)
	wad := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	if maxVault.Cmp(wad) > 0 {
		return fmt.Errorf("config: max vault fee above 1.0")
	}
	return nil
}

// MaxVaultFee returns the vault fee cap as a WAD fraction.
func (c *Config) MaxVaultFee() *big.Int {
	v, _ := parseWAD(c.Fees.MaxVaultFeeWAD)
	return v
}

// MaxGovernanceShare returns the governance fee share cap as a WAD fraction.
func (c *Config) MaxGovernanceShare() *big.Int {
	v, _ := parseWAD(c.Fees.MaxGovernanceShareWAD)
	return v
}

// DefaultGovernanceShare returns the governance share applied to new vaults.
func (c *Config) DefaultGovernanceShare() *big.Int {
	v, _ := parseWAD(c.Fees.DefaultGovernanceWAD)
	return v
}

func parseWAD(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("not a non-negative decimal integer: %q", s)
	}
	return v, nil
}
