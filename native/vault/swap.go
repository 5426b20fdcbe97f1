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

// LocalSwap swaps amount of fromToken for toToken inside the vault. The fee is
// charged on the input; the governance cut of it is paid out immediately.
func (v *Vault) LocalSwap(caller common.Address, fromToken, toToken common.Address, amount, minOut *big.Int) (*big.Int, error) {
	if !v.Ready() {
		return nil, ErrNotReady
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidParams
	}
	from, err := v.assetIndex(fromToken)
	if err != nil {
		return nil, err
	}
	to, err := v.assetIndex(toToken)
	if err != nil {
		return nil, err
	}
	now := v.now()
	v.touchRamps(now)

	fee := fixedpoint.MulWadDown(amount, v.vaultFee)
	netIn := new(big.Int).Sub(amount, fee)

	// The source side prices against the raw balance, the destination side
	// against the escrow-excluded balance.
	s := v.effectiveState(now)
	s.Balances[from] = new(big.Int).Set(v.assets[from].Balance)
	out, err := v.engine.QuoteLocalSwap(s, from, to, netIn)
	if err != nil {
		return nil, err
	}
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, fmt.Errorf("%w: got %s, want at least %s", ErrInsufficientReturn, out, minOut)
	}

	if err := v.bank.Transfer(fromToken, caller, v.address, amount); err != nil {
		return nil, err
	}
	if err := v.bank.Transfer(toToken, v.address, caller, out); err != nil {
		// Undo the pull; no state was mutated yet.
		_ = v.bank.Transfer(fromToken, v.address, caller, amount)
		return nil, err
	}
	v.assets[from].Balance.Add(v.assets[from].Balance, amount)
	v.assets[to].Balance.Sub(v.assets[to].Balance, out)
	v.payGovernanceFee(from, fee)

	if v.variant == invariant.Amplified {
		// The limiter ceiling tracks sum(w*b); adjust it by the net flow.
		delta := v.weightedAmount(now, from, amount)
		delta.Sub(delta, v.weightedAmount(now, to, out))
		if delta.Sign() >= 0 {
			v.limits.RaiseMax(delta)
		} else {
			v.limits.LowerMax(delta.Neg(delta))
		}
	}

	v.emit(events.LocalSwap{
		Account:   caller,
		FromAsset: fromToken,
		ToAsset:   toToken,
		AmountIn:  new(big.Int).Set(amount),
		AmountOut: new(big.Int).Set(out),
	})
	return out, nil
}

// SendAsset escrows an outbound cross-chain swap and hands the payload to the
// transport. The governance cut of the fee is paid out immediately and is the
// only part of the input a timeout does not refund; the rest sits in escrow
// until the transport acknowledges or times out.
func (v *Vault) SendAsset(
	caller common.Address,
	channel string,
	toVault, toAccount common.Hash,
	fromToken common.Address,
	toAssetIndex uint8,
	amount, minOut *big.Int,
	fallback common.Address,
	calldataTarget common.Hash,
	calldata []byte,
) (*big.Int, error) {
	if !v.Ready() {
		return nil, ErrNotReady
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidParams
	}
	if !v.Connected(channel, toVault) {
		return nil, ErrUnknownConnection
	}
	from, err := v.assetIndex(fromToken)
	if err != nil {
		return nil, err
	}
	now := v.now()
	v.touchRamps(now)

	fee := fixedpoint.MulWadDown(amount, v.vaultFee)
	netIn := new(big.Int).Sub(amount, fee)
	u, err := v.engine.AssetToUnits(v.rawState(now), from, netIn)
	if err != nil {
		return nil, err
	}

	govFee := fixedpoint.MulWadDown(fee, v.governanceShare)
	escrowAmount := new(big.Int).Sub(amount, govFee)
	assetRef := common.BytesToHash(fromToken.Bytes())
	blockMod := v.blockMod()

	hash, err := escrow.AssetSwapHash(toAccount, u, escrowAmount, assetRef, blockMod)
	if err != nil {
		return nil, err
	}
	if err := v.escrows.CreateAsset(hash, fallback, from, escrowAmount); err != nil {
		return nil, err
	}
	if err := v.bank.Transfer(fromToken, caller, v.address, amount); err != nil {
		_, _ = v.escrows.ReleaseAsset(hash)
		return nil, err
	}
	v.assets[from].Balance.Add(v.assets[from].Balance, amount)
	v.payGovernanceFee(from, fee)
	if v.variant == invariant.Amplified {
		v.unitTracker.Add(v.unitTracker, u)
	}

	v.emit(events.SendAsset{
		Channel:      channel,
		ToVault:      toVault,
		ToAccount:    toAccount,
		FromAsset:    fromToken,
		ToAssetIndex: toAssetIndex,
		Amount:       new(big.Int).Set(amount),
		Units:        new(big.Int).Set(u),
		SwapHash:     hash,
	})

	payload, err := transport.EncodeAssetPacket(transport.AssetPacket{
		FromVault:      v.id,
		ToVault:        toVault,
		ToAccount:      toAccount,
		Units:          u,
		ToAssetIndex:   toAssetIndex,
		MinOut:         minOut,
		FromAmount:     escrowAmount,
		FromAsset:      assetRef,
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
		// The transport never accepted the payload; reverse the send.
		_ = v.failAssetEscrow(hash, u)
		return nil, err
	}
	return u, nil
}

// ReceiveAsset settles an inbound cross-chain asset swap. Any error returned
// here means nothing was paid out; the transport converts it into a timeout
// on the source chain.
func (v *Vault) ReceiveAsset(caller common.Address, channel string, p transport.AssetPacket) error {
	if caller != v.chainInterface {
		return ErrUnauthorized
	}
	if !v.Ready() {
		return ErrNotReady
	}
	if !v.Connected(channel, p.FromVault) {
		return ErrUnknownConnection
	}
	to := int(p.ToAssetIndex)
	if to >= len(v.assets) {
		return ErrInvalidParams
	}
	now := v.now()
	v.touchRamps(now)

	s := v.effectiveState(now)
	out, err := v.engine.UnitsToAsset(s, to, p.Units)
	if err != nil {
		return err
	}
	if p.MinOut != nil && out.Cmp(p.MinOut) < 0 {
		return fmt.Errorf("%w: got %s, want at least %s", ErrInsufficientReturn, out, p.MinOut)
	}
	charge, err := v.engine.ReceiveAssetCharge(s, to, p.Units, out)
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
	if err := v.bank.Transfer(v.assets[to].Token, v.address, toAccount, out); err != nil {
		v.limits.Release(charge)
		return err
	}
	v.assets[to].Balance.Sub(v.assets[to].Balance, out)
	if v.variant == invariant.Amplified {
		v.unitTracker.Sub(v.unitTracker, p.Units)
		// The ceiling tracks sum(w*b); the paid-out tokens left the basket.
		v.limits.LowerMax(charge)
	}

	v.emit(events.ReceiveAsset{
		Channel:   channel,
		FromVault: p.FromVault,
		ToAsset:   v.assets[to].Token,
		ToAccount: toAccount,
		Units:     new(big.Int).Set(p.Units),
		AmountOut: new(big.Int).Set(out),
	})
	return nil
}

// OnSendAssetSuccess finalises an acknowledged outbound swap: the escrow is
// dropped and the capacity it consumed is handed back.
func (v *Vault) OnSendAssetSuccess(caller common.Address, p transport.AssetPacket) error {
	if caller != v.chainInterface {
		return ErrUnauthorized
	}
	hash, err := escrow.AssetSwapHash(p.ToAccount, p.Units, p.FromAmount, p.FromAsset, p.BlockNumberMod)
	if err != nil {
		return err
	}
	rec, err := v.escrows.ReleaseAsset(hash)
	if err != nil {
		return err
	}
	v.limits.Release(p.Units)
	if v.variant == invariant.Amplified {
		// The sold tokens are now permanently part of the basket.
		v.limits.RaiseMax(v.weightedAmount(v.now(), rec.Asset, rec.Amount))
	}
	v.emit(events.SendAssetSuccess{
		SwapHash: hash,
		Units:    new(big.Int).Set(p.Units),
		Amount:   new(big.Int).Set(p.FromAmount),
	})
	return nil
}

// OnSendAssetFailure refunds a timed-out outbound swap to the fallback
// account. The governance fee taken at send time is not part of the escrow
// and is not returned.
func (v *Vault) OnSendAssetFailure(caller common.Address, p transport.AssetPacket) error {
	if caller != v.chainInterface {
		return ErrUnauthorized
	}
	hash, err := escrow.AssetSwapHash(p.ToAccount, p.Units, p.FromAmount, p.FromAsset, p.BlockNumberMod)
	if err != nil {
		return err
	}
	return v.failAssetEscrow(hash, p.Units)
}

// failAssetEscrow refunds the escrowed amount to the fallback account and
// reverses the unit bookkeeping. Shared by the timeout handler and by the
// inline reversal when the transport rejects a payload outright.
func (v *Vault) failAssetEscrow(hash common.Hash, u *big.Int) error {
	rec, err := v.escrows.ReleaseAsset(hash)
	if err != nil {
		return err
	}
	if err := v.bank.Transfer(v.assets[rec.Asset].Token, v.address, rec.Fallback, rec.Amount); err != nil {
		return err
	}
	v.assets[rec.Asset].Balance.Sub(v.assets[rec.Asset].Balance, rec.Amount)
	if v.variant == invariant.Amplified {
		v.unitTracker.Sub(v.unitTracker, u)
	}
	v.emit(events.SendAssetFailure{
		SwapHash: hash,
		Units:    new(big.Int).Set(u),
		Amount:   new(big.Int).Set(rec.Amount),
		Fallback: rec.Fallback,
	})
	return nil
}

// payGovernanceFee pays the governance cut of a collected fee out of asset
// from. Zero cuts are suppressed so fee-free vaults never touch the bank. A
// rejected payout keeps the cut in the vault and emits an event so operators
// can see the administrator account is unpayable; the swap itself stands.
func (v *Vault) payGovernanceFee(from int, fee *big.Int) {
	govFee := fixedpoint.MulWadDown(fee, v.governanceShare)
	if govFee.Sign() <= 0 {
		return
	}
	if err := v.bank.Transfer(v.assets[from].Token, v.address, v.feeAdministrator, govFee); err != nil {
		v.emit(events.GovernanceFeeSkipped{
			Asset:  v.assets[from].Token,
			Amount: govFee,
			Reason: err.Error(),
		})
		return
	}
	v.assets[from].Balance.Sub(v.assets[from].Balance, govFee)
}
