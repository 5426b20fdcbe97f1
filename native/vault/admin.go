package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"unitvault/events"
	"unitvault/fixedpoint"
	"unitvault/native/invariant"
)

// FinishSetup closes the setup phase. Only the setup master may call it, and
// it can never be reopened.
func (v *Vault) FinishSetup(caller common.Address) error {
	if v.Ready() {
		return ErrSetupClosed
	}
	if caller != v.setupMaster {
		return ErrUnauthorized
	}
	v.setupMaster = common.Address{}
	v.emit(events.FinishSetup{Master: caller})
	return nil
}

// SetConnection whitelists (or removes) a cross-chain counterparty. The setup
// master manages connections during setup; afterwards only the factory owner
// can.
func (v *Vault) SetConnection(caller common.Address, channel string, remote common.Hash, connected bool) error {
	if caller != v.setupMaster && caller != v.factoryOwner {
		return ErrUnauthorized
	}
	key := ConnectionKey{Channel: channel, Vault: remote}
	if connected {
		v.conns[key] = true
	} else {
		delete(v.conns, key)
	}
	v.emit(events.SetConnection{Channel: channel, RemoteVault: remote, Connected: connected})
	return nil
}

// SetVaultFee updates the swap fee, capped by configuration.
func (v *Vault) SetVaultFee(caller common.Address, fee *big.Int) error {
	if caller != v.feeAdministrator {
		return ErrUnauthorized
	}
	if fee.Sign() < 0 || fee.Cmp(v.cfg.MaxVaultFee()) > 0 {
		return ErrFeeTooHigh
	}
	v.vaultFee = new(big.Int).Set(fee)
	v.emit(events.FeeChanged{Kind: "vault", Value: new(big.Int).Set(fee)})
	return nil
}

// SetGovernanceFeeShare updates the governance cut of the swap fee.
func (v *Vault) SetGovernanceFeeShare(caller common.Address, share *big.Int) error {
	if caller != v.feeAdministrator {
		return ErrUnauthorized
	}
	if share.Sign() < 0 || share.Cmp(v.cfg.MaxGovernanceShare()) > 0 {
		return ErrFeeTooHigh
	}
	v.governanceShare = new(big.Int).Set(share)
	v.emit(events.FeeChanged{Kind: "governance", Value: new(big.Int).Set(share)})
	return nil
}

// SetFeeAdministrator hands the fee role to a new address. Only the factory
// owner may reassign it.
func (v *Vault) SetFeeAdministrator(caller common.Address, admin common.Address) error {
	if caller != v.factoryOwner {
		return ErrUnauthorized
	}
	v.feeAdministrator = admin
	v.emit(events.FeeChanged{Kind: "administrator", Admin: admin})
	return nil
}

// SetWeights schedules a linear weight ramp finishing at finishAt. Volatile
// vaults only: amplified pricing assumes weights scale raw balances into a
// common unit and changing them mid-flight would reprice every balance at
// once.
func (v *Vault) SetWeights(caller common.Address, targets []*big.Int, finishAt int64) error {
	if caller != v.factoryOwner {
		return ErrUnauthorized
	}
	if v.variant != invariant.Volatile {
		return ErrInvalidAdjustment
	}
	if len(targets) != len(v.assets) {
		return ErrInvalidParams
	}
	now := v.now()
	if err := v.checkWindow(now, finishAt, v.cfg.Engine.MinWeightAdjustmentSeconds); err != nil {
		return err
	}
	factor := big.NewInt(v.cfg.Engine.MaxWeightFactor)
	for i, target := range targets {
		if target == nil || target.Sign() <= 0 {
			return ErrInvalidParams
		}
		current := v.assets[i].Weight.Peek(now)
		if outsideFactor(current, target, factor) {
			return ErrInvalidAdjustment
		}
	}
	for i, target := range targets {
		v.assets[i].Weight.Begin(now, target, finishAt)
	}
	copied := make([]*big.Int, len(targets))
	for i, t := range targets {
		copied[i] = new(big.Int).Set(t)
	}
	v.emit(events.WeightsRamp{FinishAt: finishAt, Targets: copied})
	return nil
}

// SetAmplification schedules a linear amplification ramp. Amplified vaults
// only, and only while the vault has no cross-chain connections: local and
// remote pricing must agree on the amplification at every instant, which
// cannot be guaranteed across the asynchronous gap.
func (v *Vault) SetAmplification(caller common.Address, amplification *big.Int, finishAt int64) error {
	if caller != v.factoryOwner {
		return ErrUnauthorized
	}
	if v.variant != invariant.Amplified {
		return ErrInvalidAdjustment
	}
	if len(v.conns) > 0 {
		return ErrAmpLocked
	}
	if amplification == nil || amplification.Sign() < 0 || amplification.Cmp(fixedpoint.WAD) >= 0 {
		return ErrInvalidParams
	}
	now := v.now()
	if err := v.checkWindow(now, finishAt, v.cfg.Engine.MinAmpAdjustmentSeconds); err != nil {
		return err
	}
	target := new(big.Int).Sub(fixedpoint.WAD, amplification)
	current := v.oneMinusAmp.Peek(now)
	if outsideFactor(current, target, big.NewInt(v.cfg.Engine.MaxAmpFactor)) {
		return ErrInvalidAdjustment
	}
	v.oneMinusAmp.Begin(now, target, finishAt)
	v.emit(events.AmplificationRamp{FinishAt: finishAt, Target: new(big.Int).Set(amplification)})
	return nil
}

func (v *Vault) checkWindow(now, finishAt, minSeconds int64) error {
	if finishAt < now+minSeconds {
		return ErrInvalidAdjustment
	}
	if finishAt > now+v.cfg.Engine.MaxAdjustmentSeconds {
		return ErrInvalidAdjustment
	}
	return nil
}

// outsideFactor reports whether target is more than factor times above or
// below current.
func outsideFactor(current, target, factor *big.Int) bool {
	upper := new(big.Int).Mul(current, factor)
	if target.Cmp(upper) > 0 {
		return true
	}
	lower := new(big.Int).Quo(current, factor)
	return target.Cmp(lower) < 0
}
