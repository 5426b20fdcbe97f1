// Package invariant implements the two pricing families of the vault engine.
// Both are pure: every function takes an explicit snapshot of the vault state
// and returns derived values without touching it. "Units" are the
// chain-agnostic intermediate: the source curve turns an asset amount into
// Units, the destination curve turns Units back into an asset amount, and the
// two sides never need a shared invariant.
package invariant

import (
	"errors"
	"math/big"
)

var (
	// ErrBadIndex is returned for an asset index outside the snapshot.
	ErrBadIndex = errors.New("invariant: asset index out of range")
	// ErrEmptyVault is returned when a curve is evaluated against a zero
	// balance or zero share supply.
	ErrEmptyVault = errors.New("invariant: zero balance or supply")
	// ErrDrainsBalance is returned when a request would consume the full
	// destination balance; swaps are rejected, never clamped.
	ErrDrainsBalance = errors.New("invariant: request drains balance")
	// ErrNegativeUnits is returned for negative unit values.
	ErrNegativeUnits = errors.New("invariant: negative units")
)

// State is the snapshot a curve evaluates against. Balances are effective
// balances (escrowed value excluded) in token-native units; TotalShares is
// the effective share supply the caller considers relevant to the operation.
type State struct {
	Weights     []*big.Int
	Balances    []*big.Int
	OneMinusAmp *big.Int // WAD; equal to WAD for Volatile vaults
	TotalShares *big.Int
	UnitTracker *big.Int // signed; Amplified only
}

// Engine is the pricing interface shared by the two families.
type Engine interface {
	// AssetToUnits values an incoming amount of asset from in Units, as
	// used by the cross-chain send path.
	AssetToUnits(s State, from int, amount *big.Int) (*big.Int, error)
	// UnitsToAsset converts inbound Units into an amount of asset to.
	UnitsToAsset(s State, to int, u *big.Int) (*big.Int, error)
	// QuoteLocalSwap prices a same-vault swap, fee-free.
	QuoteLocalSwap(s State, from, to int, amount *big.Int) (*big.Int, error)
	// DepositToUnits values a basket of deposit amounts in Units.
	DepositToUnits(s State, amounts []*big.Int) (*big.Int, error)
	// UnitsToShares converts inbound Units into shares to mint.
	UnitsToShares(s State, u *big.Int) (*big.Int, error)
	// SharesToUnits values outbound shares in Units (send-liquidity path).
	SharesToUnits(s State, shares *big.Int) (*big.Int, error)
	// WithdrawToUnits values burned shares in Units (mixed withdrawal).
	WithdrawToUnits(s State, shares *big.Int) (*big.Int, error)
	// ReferenceBalance returns the WAD-scaled synthetic reference balance
	// used for minimum-reference checks on liquidity receives.
	ReferenceBalance(s State) (*big.Int, error)
	// MaxLimitCapacity recomputes the security limiter ceiling.
	MaxLimitCapacity(s State) (*big.Int, error)
	// ReceiveAssetCharge is the quantity an inbound asset swap consumes
	// from the security limiter.
	ReceiveAssetCharge(s State, to int, u, out *big.Int) (*big.Int, error)
	// ReceiveLiquidityCharge is the limiter consumption of an inbound
	// liquidity swap.
	ReceiveLiquidityCharge(s State, u, shares *big.Int) (*big.Int, error)
}

// Variant selects the pricing family at vault creation.
type Variant uint8

const (
	// Volatile is the weighted constant-product family.
	Volatile Variant = iota
	// Amplified is the weighted stable-swap family.
	Amplified
)

// ForVariant returns the engine for the given family.
func ForVariant(v Variant) Engine {
	if v == Amplified {
		return amplifiedEngine{}
	}
	return volatileEngine{}
}

func (s State) checkIndex(i int) error {
	if i < 0 || i >= len(s.Balances) || i >= len(s.Weights) {
		return ErrBadIndex
	}
	return nil
}

func weightSum(s State) *big.Int {
	sum := new(big.Int)
	for _, w := range s.Weights {
		sum.Add(sum, w)
	}
	return sum
}
