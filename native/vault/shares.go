package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"unitvault/events"
	"unitvault/fixedpoint"
	"unitvault/native/invariant"
)

// DepositMixed deposits an arbitrary basket of amounts and mints shares for
// their combined Unit value. The swap fee is charged on the Unit value, which
// closes the fee-free swap a deposit-then-withdraw would otherwise be.
func (v *Vault) DepositMixed(caller common.Address, amounts []*big.Int, minShares *big.Int) (*big.Int, error) {
	if !v.Ready() {
		return nil, ErrNotReady
	}
	if len(amounts) != len(v.assets) {
		return nil, ErrInvalidParams
	}
	now := v.now()
	v.touchRamps(now)

	s := v.rawState(now)
	s.TotalShares.Add(s.TotalShares, v.escrows.TotalEscrowedShares())
	u, err := v.engine.DepositToUnits(s, amounts)
	if err != nil {
		return nil, err
	}
	u = fixedpoint.MulWadDown(u, new(big.Int).Sub(fixedpoint.WAD, v.vaultFee))
	shares, err := v.engine.UnitsToShares(s, u)
	if err != nil {
		return nil, err
	}
	if minShares != nil && shares.Cmp(minShares) < 0 {
		return nil, fmt.Errorf("%w: got %s shares, want at least %s", ErrInsufficientReturn, shares, minShares)
	}

	for i, amount := range amounts {
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		if amount.Sign() < 0 {
			return nil, ErrInvalidParams
		}
		if err := v.bank.Transfer(v.assets[i].Token, caller, v.address, amount); err != nil {
			// Hand back what was already pulled.
			for j := 0; j < i; j++ {
				if amounts[j] == nil || amounts[j].Sign() == 0 {
					continue
				}
				_ = v.bank.Transfer(v.assets[j].Token, v.address, caller, amounts[j])
			}
			return nil, err
		}
	}
	for i, amount := range amounts {
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		v.assets[i].Balance.Add(v.assets[i].Balance, amount)
	}
	v.mintShares(caller, shares)

	if v.variant == invariant.Amplified {
		// A deposit widens the basket and with it the limiter ceiling, but
		// the fresh headroom is marked used so a flash deposit cannot open
		// inbound capacity within one decay period.
		ws := v.weightedSum(now, amounts)
		v.limits.RaiseMax(ws)
		v.limits.AddUsed(now, ws)
	}

	copied := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		copied[i] = new(big.Int)
		if a != nil {
			copied[i].Set(a)
		}
	}
	v.emit(events.Deposit{Depositor: caller, Amounts: copied, Shares: new(big.Int).Set(shares)})
	return shares, nil
}

// WithdrawAll burns shares for a pro-rata slice of every effective balance.
// It never prices through the curve, so it works even when the curve math is
// out of bounds, which makes it the escape hatch of last resort.
func (v *Vault) WithdrawAll(caller common.Address, shares *big.Int, minOuts []*big.Int) ([]*big.Int, error) {
	if !v.Ready() {
		return nil, ErrNotReady
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, ErrInvalidParams
	}
	if minOuts != nil && len(minOuts) != len(v.assets) {
		return nil, ErrInvalidParams
	}
	now := v.now()
	v.touchRamps(now)

	supply := new(big.Int).Add(v.totalShares, v.escrows.TotalEscrowedShares())
	if err := v.burnShares(caller, shares); err != nil {
		return nil, err
	}

	outs := make([]*big.Int, len(v.assets))
	for i := range v.assets {
		eff := new(big.Int).Sub(v.assets[i].Balance, v.escrows.TotalEscrowed(i))
		if eff.Sign() < 0 {
			eff.SetInt64(0)
		}
		out := eff.Mul(eff, shares)
		out.Quo(out, supply)
		if minOuts != nil && minOuts[i] != nil && out.Cmp(minOuts[i]) < 0 {
			v.mintShares(caller, shares)
			return nil, fmt.Errorf("%w: asset %d pays %s, want at least %s", ErrInsufficientReturn, i, out, minOuts[i])
		}
		outs[i] = out
	}
	if err := v.payout(caller, outs); err != nil {
		v.mintShares(caller, shares)
		return nil, err
	}

	if v.variant == invariant.Amplified {
		ws := v.weightedSum(now, outs)
		v.limits.LowerMax(ws)
		v.limits.Release(ws)
	}

	v.emit(events.Withdraw{Withdrawer: caller, Shares: new(big.Int).Set(shares), Amounts: outs})
	return outs, nil
}

// WithdrawMixed burns shares for a caller-chosen mix of assets. Each ratio is
// the WAD fraction of the remaining Unit value to spend on that asset, so the
// final nonzero ratio must be a full WAD; leftover Units would be silently
// donated to the vault and are rejected instead.
func (v *Vault) WithdrawMixed(caller common.Address, shares *big.Int, ratios, minOuts []*big.Int) ([]*big.Int, error) {
	if !v.Ready() {
		return nil, ErrNotReady
	}
	if shares == nil || shares.Sign() <= 0 || len(ratios) != len(v.assets) {
		return nil, ErrInvalidParams
	}
	if minOuts != nil && len(minOuts) != len(v.assets) {
		return nil, ErrInvalidParams
	}
	now := v.now()
	v.touchRamps(now)

	s := v.effectiveState(now)
	s.TotalShares = new(big.Int).Add(v.totalShares, v.escrows.TotalEscrowedShares())
	u, err := v.engine.WithdrawToUnits(s, shares)
	if err != nil {
		return nil, err
	}
	if err := v.burnShares(caller, shares); err != nil {
		return nil, err
	}
	undoBurn := func() { v.mintShares(caller, shares) }

	outs := make([]*big.Int, len(v.assets))
	remaining := new(big.Int).Set(u)
	for i, ratio := range ratios {
		outs[i] = new(big.Int)
		if ratio == nil || ratio.Sign() == 0 {
			continue
		}
		if ratio.Sign() < 0 || ratio.Cmp(fixedpoint.WAD) > 0 {
			undoBurn()
			return nil, ErrWithdrawRatio
		}
		ui := fixedpoint.MulWadDown(remaining, ratio)
		out, err := v.engine.UnitsToAsset(s, i, ui)
		if err != nil {
			undoBurn()
			return nil, err
		}
		outs[i] = out
		remaining.Sub(remaining, ui)
		// Consume the units against the balance so later assets price
		// against the post-payout state.
		s.Balances[i] = new(big.Int).Sub(s.Balances[i], out)
	}
	if remaining.Sign() > 0 {
		undoBurn()
		return nil, ErrUnusedUnits
	}
	if minOuts != nil {
		for i, min := range minOuts {
			if min != nil && outs[i].Cmp(min) < 0 {
				undoBurn()
				return nil, fmt.Errorf("%w: asset %d pays %s, want at least %s", ErrInsufficientReturn, i, outs[i], min)
			}
		}
	}
	if err := v.payout(caller, outs); err != nil {
		undoBurn()
		return nil, err
	}

	if v.variant == invariant.Amplified {
		ws := v.weightedSum(now, outs)
		v.limits.LowerMax(ws)
		v.limits.Release(ws)
	}

	v.emit(events.Withdraw{Withdrawer: caller, Shares: new(big.Int).Set(shares), Amounts: outs})
	return outs, nil
}

// payout transfers outs to recipient and mirrors the balances. A mid-basket
// transfer failure reverses the completed legs.
func (v *Vault) payout(recipient common.Address, outs []*big.Int) error {
	for i, out := range outs {
		if out.Sign() == 0 {
			continue
		}
		if err := v.bank.Transfer(v.assets[i].Token, v.address, recipient, out); err != nil {
			for j := 0; j < i; j++ {
				if outs[j].Sign() == 0 {
					continue
				}
				_ = v.bank.Transfer(v.assets[j].Token, recipient, v.address, outs[j])
			}
			return err
		}
	}
	for i, out := range outs {
		v.assets[i].Balance.Sub(v.assets[i].Balance, out)
	}
	return nil
}
