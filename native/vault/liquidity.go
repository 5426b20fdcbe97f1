package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"unitvault/events"
	"unitvault/fixedpoint"
	"unitvault/native/escrow"
	"unitvault/native/invariant"
	"unitvault/transport"
)

// SendLiquidity burns the caller's shares, escrows them and sends their Unit
// value to a connected vault where they are re-minted. A timeout re-mints the
// full share amount to the fallback account; there is no fee on liquidity
// swaps.
func (v *Vault) SendLiquidity(
	caller common.Address,
	channel string,
	toVault, toAccount common.Hash,
	shares, minShares, minReference *big.Int,
	fallback common.Address,
	calldataTarget common.Hash,
	calldata []byte,
) (*big.Int, error) {
	if !v.Ready() {
		return nil, ErrNotReady
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, ErrInvalidParams
	}
	if !v.Connected(channel, toVault) {
		return nil, ErrUnknownConnection
	}
	now := v.now()
	v.touchRamps(now)

	// Escrowed shares are still claims on the vault until resolved, so the
	// valuation supply includes them.
	s := v.rawState(now)
	s.TotalShares.Add(s.TotalShares, v.escrows.TotalEscrowedShares())
	u, err := v.engine.SharesToUnits(s, shares)
	if err != nil {
		return nil, err
	}

	blockMod := v.blockMod()
	hash, err := escrow.LiquiditySwapHash(toAccount, u, shares, blockMod)
	if err != nil {
		return nil, err
	}
	if err := v.escrows.CreateLiquidity(hash, fallback, shares); err != nil {
		return nil, err
	}
	if err := v.burnShares(caller, shares); err != nil {
		_, _ = v.escrows.ReleaseLiquidity(hash)
		return nil, err
	}
	if v.variant == invariant.Amplified {
		v.unitTracker.Add(v.unitTracker, u)
	}

	v.emit(events.SendLiquidity{
		Channel:   channel,
		ToVault:   toVault,
		ToAccount: toAccount,
		Shares:    new(big.Int).Set(shares),
		Units:     new(big.Int).Set(u),
		SwapHash:  hash,
	})

	payload, err := transport.EncodeLiquidityPacket(transport.LiquidityPacket{
		FromVault:      v.id,
		ToVault:        toVault,
		ToAccount:      toAccount,
		Units:          u,
		MinShares:      minShares,
		MinReference:   minReference,
		FromAmount:     shares,
		BlockNumberMod: blockMod,
		CalldataTarget: calldataTarget,
		Calldata:       calldata,
	})
	if err == nil {
		// State is fully committed: a synchronous transport may re-enter
		// through the ack or timeout handlers during Send.
		err = v.sender.Send(channel, payload)
	}
	if err != nil {
		_ = v.failLiquidityEscrow(hash, u)
		return nil, err
	}
	return u, nil
}

// ReceiveLiquidity mints shares against inbound liquidity Units. Errors mean
// nothing was minted and become a timeout on the source chain.
func (v *Vault) ReceiveLiquidity(caller common.Address, channel string, p transport.LiquidityPacket) error {
	if caller != v.chainInterface {
		return ErrUnauthorized
	}
	if !v.Ready() {
		return ErrNotReady
	}
	if !v.Connected(channel, p.FromVault) {
		return ErrUnknownConnection
	}
	now := v.now()
	v.touchRamps(now)

	s := v.rawState(now)
	shares, err := v.engine.UnitsToShares(s, p.Units)
	if err != nil {
		return err
	}
	if p.MinShares != nil && shares.Cmp(p.MinShares) < 0 {
		return fmt.Errorf("%w: got %s shares, want at least %s", ErrInsufficientReturn, shares, p.MinShares)
	}
	if p.MinReference != nil && p.MinReference.Sign() > 0 {
		if err := v.checkMinReference(s, shares, p.MinReference); err != nil {
			return err
		}
	}
	charge, err := v.engine.ReceiveLiquidityCharge(s, p.Units, shares)
	if err != nil {
		return err
	}
	if err := v.limits.Admit(now, charge); err != nil {
		v.emit(events.SecurityLimited{
			Channel:   channel,
			FromVault: p.FromVault,
			Units:     new(big.Int).Set(p.Units),
		})
		return err
	}

	toAccount := common.BytesToAddress(p.ToAccount.Bytes())
	v.mintShares(toAccount, shares)
	if v.variant == invariant.Amplified {
		v.unitTracker.Sub(v.unitTracker, p.Units)
	}

	v.emit(events.ReceiveLiquidity{
		Channel:   channel,
		FromVault: p.FromVault,
		ToAccount: toAccount,
		Units:     new(big.Int).Set(p.Units),
		Shares:    new(big.Int).Set(shares),
	})
	return nil
}

// checkMinReference guards liquidity receives against a drained destination:
// the minted shares must claim at least minReference of the vault's synthetic
// reference balance.
func (v *Vault) checkMinReference(s invariant.State, shares, minReference *big.Int) error {
	ref, err := v.engine.ReferenceBalance(s)
	if err != nil {
		return err
	}
	supply := new(big.Int).Add(s.TotalShares, v.escrows.TotalEscrowedShares())
	supply.Add(supply, shares)
	userRef := new(big.Int).Mul(ref, shares)
	userRef.Quo(userRef, supply)
	userRef.Quo(userRef, fixedpoint.WAD)
	if userRef.Cmp(minReference) < 0 {
		return fmt.Errorf("%w: reference %s below minimum %s", ErrInsufficientReturn, userRef, minReference)
	}
	return nil
}

// OnSendLiquiditySuccess finalises an acknowledged liquidity swap.
func (v *Vault) OnSendLiquiditySuccess(caller common.Address, p transport.LiquidityPacket) error {
	if caller != v.chainInterface {
		return ErrUnauthorized
	}
	hash, err := escrow.LiquiditySwapHash(p.ToAccount, p.Units, p.FromAmount, p.BlockNumberMod)
	if err != nil {
		return err
	}
	rec, err := v.escrows.ReleaseLiquidity(hash)
	if err != nil {
		return err
	}
	if v.variant == invariant.Volatile {
		// The volatile limiter is denominated in Units, so an acknowledged
		// liquidity swap hands its Units back. The amplified limiter counts
		// weighted token amounts and liquidity acks leave it untouched.
		v.limits.Release(p.Units)
	}
	v.emit(events.SendLiquiditySuccess{
		SwapHash: hash,
		Units:    new(big.Int).Set(p.Units),
		Shares:   new(big.Int).Set(rec.Shares),
	})
	return nil
}

// OnSendLiquidityFailure re-mints the escrowed shares to the fallback account.
func (v *Vault) OnSendLiquidityFailure(caller common.Address, p transport.LiquidityPacket) error {
	if caller != v.chainInterface {
		return ErrUnauthorized
	}
	hash, err := escrow.LiquiditySwapHash(p.ToAccount, p.Units, p.FromAmount, p.BlockNumberMod)
	if err != nil {
		return err
	}
	return v.failLiquidityEscrow(hash, p.Units)
}

func (v *Vault) failLiquidityEscrow(hash common.Hash, u *big.Int) error {
	rec, err := v.escrows.ReleaseLiquidity(hash)
	if err != nil {
		return err
	}
	v.mintShares(rec.Fallback, rec.Shares)
	if v.variant == invariant.Amplified {
		v.unitTracker.Sub(v.unitTracker, u)
	}
	v.emit(events.SendLiquidityFailure{
		SwapHash: hash,
		Units:    new(big.Int).Set(u),
		Shares:   new(big.Int).Set(rec.Shares),
		Fallback: rec.Fallback,
	})
	return nil
}
