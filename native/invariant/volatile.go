package invariant

import (
	"math/big"

	"unitvault/fixedpoint"
)

// volatileEngine prices against the weighted constant-product invariant
// Π balance_i^{weight_i}. Units are logarithmic: U = w·ln((a+x)/a), so equal
// Units purchased on one side cost exactly the invariant growth paid on the
// other.
type volatileEngine struct{}

// volatileArea integrates the price curve from balance to balance+amount.
func volatileArea(amount, balance, weight *big.Int) (*big.Int, error) {
	if balance.Sign() == 0 {
		return nil, ErrEmptyVault
	}
	ratio, err := fixedpoint.DivWadDown(new(big.Int).Add(balance, amount), balance)
	if err != nil {
		return nil, err
	}
	l, err := fixedpoint.LnWad(ratio)
	if err != nil {
		return nil, err
	}
	return l.Mul(l, weight), nil
}

// volatileLimit solves the curve for the output amount that consumes u Units
// against the destination balance. The exponential is rounded up so the
// subtraction, and with it the payout, rounds down.
func volatileLimit(u, balance, weight *big.Int) (*big.Int, error) {
	if u.Sign() < 0 {
		return nil, ErrNegativeUnits
	}
	e := new(big.Int).Quo(u, weight)
	f, err := fixedpoint.ExpWadUp(e.Neg(e))
	if err != nil {
		return nil, err
	}
	d := new(big.Int).Sub(fixedpoint.WAD, f)
	if d.Sign() < 0 {
		d.SetInt64(0)
	}
	return fixedpoint.MulWadDown(balance, d), nil
}

func (volatileEngine) AssetToUnits(s State, from int, amount *big.Int) (*big.Int, error) {
	if err := s.checkIndex(from); err != nil {
		return nil, err
	}
	return volatileArea(amount, s.Balances[from], s.Weights[from])
}

func (volatileEngine) UnitsToAsset(s State, to int, u *big.Int) (*big.Int, error) {
	if err := s.checkIndex(to); err != nil {
		return nil, err
	}
	return volatileLimit(u, s.Balances[to], s.Weights[to])
}

func (volatileEngine) QuoteLocalSwap(s State, from, to int, amount *big.Int) (*big.Int, error) {
	if err := s.checkIndex(from); err != nil {
		return nil, err
	}
	if err := s.checkIndex(to); err != nil {
		return nil, err
	}
	a, b := s.Balances[from], s.Balances[to]
	if s.Weights[from].Cmp(s.Weights[to]) == 0 {
		// Equal weights collapse the two integrals to out = b*x/(a+x).
		den := new(big.Int).Add(a, amount)
		if den.Sign() == 0 {
			return nil, ErrEmptyVault
		}
		out := new(big.Int).Mul(b, amount)
		return out.Quo(out, den), nil
	}
	u, err := volatileArea(amount, a, s.Weights[from])
	if err != nil {
		return nil, err
	}
	return volatileLimit(u, b, s.Weights[to])
}

func (volatileEngine) DepositToUnits(s State, amounts []*big.Int) (*big.Int, error) {
	total := new(big.Int)
	for i, amount := range amounts {
		if err := s.checkIndex(i); err != nil {
			return nil, err
		}
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		u, err := volatileArea(amount, s.Balances[i], s.Weights[i])
		if err != nil {
			return nil, err
		}
		total.Add(total, u)
	}
	return total, nil
}

func (volatileEngine) UnitsToShares(s State, u *big.Int) (*big.Int, error) {
	if u.Sign() < 0 {
		return nil, ErrNegativeUnits
	}
	e := new(big.Int).Quo(u, weightSum(s))
	f, err := fixedpoint.ExpWadUp(e.Neg(e))
	if err != nil {
		return nil, err
	}
	share, err := fixedpoint.DivWadDown(new(big.Int).Sub(fixedpoint.WAD, f), f)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulWadDown(s.TotalShares, share), nil
}

func (e volatileEngine) SharesToUnits(s State, shares *big.Int) (*big.Int, error) {
	return e.WithdrawToUnits(s, shares)
}

func (volatileEngine) WithdrawToUnits(s State, shares *big.Int) (*big.Int, error) {
	remaining := new(big.Int).Sub(s.TotalShares, shares)
	if remaining.Sign() <= 0 {
		return nil, ErrDrainsBalance
	}
	ratio, err := fixedpoint.DivWadDown(s.TotalShares, remaining)
	if err != nil {
		return nil, err
	}
	l, err := fixedpoint.LnWad(ratio)
	if err != nil {
		return nil, err
	}
	return l.Mul(l, weightSum(s)), nil
}

// ReferenceBalance is the weighted geometric mean of the balances:
// exp(Σ w_i·ln(b_i) / Σ w_i), WAD-scaled.
func (volatileEngine) ReferenceBalance(s State) (*big.Int, error) {
	sum := new(big.Int)
	for i, b := range s.Balances {
		if b.Sign() == 0 {
			return nil, ErrEmptyVault
		}
		l, err := fixedpoint.LnWad(new(big.Int).Mul(b, fixedpoint.WAD))
		if err != nil {
			return nil, err
		}
		sum.Add(sum, l.Mul(l, s.Weights[i]))
	}
	return fixedpoint.ExpWad(sum.Quo(sum, weightSum(s)))
}

// MaxLimitCapacity is ln(2)·Σ w_i: inbound flow may not exceed half the
// vault's value within one decay period.
func (volatileEngine) MaxLimitCapacity(s State) (*big.Int, error) {
	return new(big.Int).Mul(fixedpoint.LN2Wad, weightSum(s)), nil
}

func (volatileEngine) ReceiveAssetCharge(s State, to int, u, out *big.Int) (*big.Int, error) {
	return new(big.Int).Set(u), nil
}

func (volatileEngine) ReceiveLiquidityCharge(s State, u, shares *big.Int) (*big.Int, error) {
	return new(big.Int).Set(u), nil
}
