package invariant

import (
	"math/big"

	"unitvault/fixedpoint"
)

var (
	// smallSwapRatio flags inputs that are dust relative to the balance.
	smallSwapRatio = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)
	// smallSwapReturn is the return fraction applied to flagged swaps, so
	// rounding slack cannot be farmed through repeated micro-trades.
	smallSwapReturn = big.NewInt(950_000_000_000_000_000)
)

// amplifiedEngine prices against the weighted stable-swap invariant
// Σ (w_i·b_i)^k with k = 1-amplification. The flatter curve keeps prices
// near parity until balances diverge strongly. The synthetic reference
// balance balance₀ reconstructs a per-asset notional from the invariant and
// the cumulative cross-chain unit flow, so share pricing stays well-defined
// while swaps are in flight.
type amplifiedEngine struct{}

func weightedWad(balance, weight *big.Int) *big.Int {
	p := new(big.Int).Mul(balance, weight)
	return p.Mul(p, fixedpoint.WAD)
}

func amplifiedArea(amount, balance, weight, oneMinusAmp *big.Int) (*big.Int, error) {
	aw := weightedWad(balance, weight)
	xw := weightedWad(amount, weight)
	p1, err := fixedpoint.PowWadDown(new(big.Int).Add(aw, xw), oneMinusAmp)
	if err != nil {
		return nil, err
	}
	if aw.Sign() == 0 {
		return p1, nil
	}
	p2, err := fixedpoint.PowWadDown(aw, oneMinusAmp)
	if err != nil {
		return nil, err
	}
	return p1.Sub(p1, p2), nil
}

func amplifiedLimit(u, balance, weight, oneMinusAmp *big.Int) (*big.Int, error) {
	if u.Sign() < 0 {
		return nil, ErrNegativeUnits
	}
	if u.Sign() == 0 {
		return new(big.Int), nil
	}
	bw := weightedWad(balance, weight)
	if bw.Sign() == 0 {
		return nil, ErrEmptyVault
	}
	intermediate, err := fixedpoint.PowWadDown(bw, oneMinusAmp)
	if err != nil {
		return nil, err
	}
	if u.Cmp(intermediate) >= 0 {
		return nil, ErrDrainsBalance
	}
	f, err := fixedpoint.DivWadUp(new(big.Int).Sub(intermediate, u), intermediate)
	if err != nil {
		return nil, err
	}
	p, err := fixedpoint.PowWadUp(f, new(big.Int).Quo(fixedpoint.WADWAD, oneMinusAmp))
	if err != nil {
		return nil, err
	}
	d := new(big.Int).Sub(fixedpoint.WAD, p)
	if d.Sign() < 0 {
		d.SetInt64(0)
	}
	return fixedpoint.MulWadDown(balance, d), nil
}

// balanceZeroAmpped computes balance₀^k: the invariant sum corrected by the
// net Units in flight, divided across the assets.
func balanceZeroAmpped(s State) (*big.Int, error) {
	sum := new(big.Int)
	for i, b := range s.Balances {
		bw := weightedWad(b, s.Weights[i])
		if bw.Sign() == 0 {
			continue
		}
		p, err := fixedpoint.PowWadDown(bw, s.OneMinusAmp)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, p)
	}
	if s.UnitTracker != nil {
		sum.Sub(sum, s.UnitTracker)
	}
	if sum.Sign() <= 0 {
		return nil, ErrEmptyVault
	}
	return sum.Quo(sum, big.NewInt(int64(len(s.Balances)))), nil
}

func (amplifiedEngine) AssetToUnits(s State, from int, amount *big.Int) (*big.Int, error) {
	if err := s.checkIndex(from); err != nil {
		return nil, err
	}
	u, err := amplifiedArea(amount, s.Balances[from], s.Weights[from], s.OneMinusAmp)
	if err != nil {
		return nil, err
	}
	dust := new(big.Int).Quo(s.Balances[from], smallSwapRatio)
	if dust.Cmp(amount) >= 0 {
		return fixedpoint.MulWadDown(u, smallSwapReturn), nil
	}
	return u, nil
}

func (amplifiedEngine) UnitsToAsset(s State, to int, u *big.Int) (*big.Int, error) {
	if err := s.checkIndex(to); err != nil {
		return nil, err
	}
	return amplifiedLimit(u, s.Balances[to], s.Weights[to], s.OneMinusAmp)
}

func (amplifiedEngine) QuoteLocalSwap(s State, from, to int, amount *big.Int) (*big.Int, error) {
	if err := s.checkIndex(from); err != nil {
		return nil, err
	}
	if err := s.checkIndex(to); err != nil {
		return nil, err
	}
	u, err := amplifiedArea(amount, s.Balances[from], s.Weights[from], s.OneMinusAmp)
	if err != nil {
		return nil, err
	}
	out, err := amplifiedLimit(u, s.Balances[to], s.Weights[to], s.OneMinusAmp)
	if err != nil {
		return nil, err
	}
	// An output vastly above the input only happens when rounding slack is
	// being farmed; clip the return.
	if new(big.Int).Quo(out, smallSwapRatio).Cmp(amount) >= 0 {
		return fixedpoint.MulWadDown(out, smallSwapReturn), nil
	}
	return out, nil
}

func (amplifiedEngine) DepositToUnits(s State, amounts []*big.Int) (*big.Int, error) {
	total := new(big.Int)
	for i, amount := range amounts {
		if err := s.checkIndex(i); err != nil {
			return nil, err
		}
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		u, err := amplifiedArea(amount, s.Balances[i], s.Weights[i], s.OneMinusAmp)
		if err != nil {
			return nil, err
		}
		total.Add(total, u)
	}
	return total, nil
}

func (amplifiedEngine) UnitsToShares(s State, u *big.Int) (*big.Int, error) {
	if u.Sign() < 0 {
		return nil, ErrNegativeUnits
	}
	b0k, err := balanceZeroAmpped(s)
	if err != nil {
		return nil, err
	}
	x := b0k.Mul(b0k, big.NewInt(int64(len(s.Balances))))
	ratio, err := fixedpoint.DivWadDown(new(big.Int).Add(x, u), x)
	if err != nil {
		return nil, err
	}
	p, err := fixedpoint.PowWadDown(ratio, new(big.Int).Quo(fixedpoint.WADWAD, s.OneMinusAmp))
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulWadDown(s.TotalShares, p.Sub(p, fixedpoint.WAD)), nil
}

func (amplifiedEngine) SharesToUnits(s State, shares *big.Int) (*big.Int, error) {
	if s.TotalShares.Sign() == 0 {
		return nil, ErrEmptyVault
	}
	b0k, err := balanceZeroAmpped(s)
	if err != nil {
		return nil, err
	}
	ratio, err := fixedpoint.DivWadDown(new(big.Int).Add(s.TotalShares, shares), s.TotalShares)
	if err != nil {
		return nil, err
	}
	p, err := fixedpoint.PowWadDown(ratio, s.OneMinusAmp)
	if err != nil {
		return nil, err
	}
	u := fixedpoint.MulWadDown(b0k, p.Sub(p, fixedpoint.WAD))
	return u.Mul(u, big.NewInt(int64(len(s.Balances)))), nil
}

func (amplifiedEngine) WithdrawToUnits(s State, shares *big.Int) (*big.Int, error) {
	remaining := new(big.Int).Sub(s.TotalShares, shares)
	if remaining.Sign() <= 0 {
		return nil, ErrDrainsBalance
	}
	b0k, err := balanceZeroAmpped(s)
	if err != nil {
		return nil, err
	}
	ratio, err := fixedpoint.DivWadDown(remaining, s.TotalShares)
	if err != nil {
		return nil, err
	}
	p, err := fixedpoint.PowWadDown(ratio, s.OneMinusAmp)
	if err != nil {
		return nil, err
	}
	u := fixedpoint.MulWadDown(b0k, new(big.Int).Sub(fixedpoint.WAD, p))
	return u.Mul(u, big.NewInt(int64(len(s.Balances)))), nil
}

func (amplifiedEngine) ReferenceBalance(s State) (*big.Int, error) {
	b0k, err := balanceZeroAmpped(s)
	if err != nil {
		return nil, err
	}
	return fixedpoint.PowWadDown(b0k, new(big.Int).Quo(fixedpoint.WADWAD, s.OneMinusAmp))
}

// MaxLimitCapacity is the weighted balance sum: inbound flow within one decay
// period may not move more than the vault's one-sided weighted liquidity.
func (amplifiedEngine) MaxLimitCapacity(s State) (*big.Int, error) {
	sum := new(big.Int)
	for i, b := range s.Balances {
		sum.Add(sum, new(big.Int).Mul(b, s.Weights[i]))
	}
	return sum, nil
}

// ReceiveAssetCharge charges the weighted output, the quantity the limiter
// ceiling is denominated in for this family.
func (amplifiedEngine) ReceiveAssetCharge(s State, to int, u, out *big.Int) (*big.Int, error) {
	if err := s.checkIndex(to); err != nil {
		return nil, err
	}
	return new(big.Int).Mul(out, s.Weights[to]), nil
}

// ReceiveLiquidityCharge converts the inbound Units into the equivalent
// reference-balance movement and charges twice that, mirroring the one-sided
// asset charge.
func (amplifiedEngine) ReceiveLiquidityCharge(s State, u, shares *big.Int) (*big.Int, error) {
	b0k, err := balanceZeroAmpped(s)
	if err != nil {
		return nil, err
	}
	x := b0k.Mul(b0k, big.NewInt(int64(len(s.Balances))))
	if u.Cmp(x) >= 0 {
		return nil, ErrDrainsBalance
	}
	invK := new(big.Int).Quo(fixedpoint.WADWAD, s.OneMinusAmp)
	b0, err := fixedpoint.PowWadDown(x, invK)
	if err != nil {
		return nil, err
	}
	ratio, err := fixedpoint.DivWadDown(new(big.Int).Sub(x, u), x)
	if err != nil {
		return nil, err
	}
	p, err := fixedpoint.PowWadDown(ratio, invK)
	if err != nil {
		return nil, err
	}
	equivalent := fixedpoint.MulWadUp(b0, new(big.Int).Sub(fixedpoint.WAD, p))
	// equivalent is WAD-scaled; the limiter is denominated in raw weighted
	// token units like MaxLimitCapacity and ReceiveAssetCharge.
	return fixedpoint.MulWadUp(equivalent, big.NewInt(2)), nil
}
