package vault

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"unitvault/fixedpoint"
)

func TestFeeAdministration(t *testing.T) {
	f := newFixture()
	v := f.newVault(t, 0xc0, nil, nil, nil)
	f.finish(t, v)

	if err := v.SetVaultFee(user, big.NewInt(1e16)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign fee change: %v", err)
	}
	over := new(big.Int).Add(f.cfg.MaxVaultFee(), big.NewInt(1))
	if err := v.SetVaultFee(feeAdmin, over); !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("fee above cap: %v", err)
	}
	if err := v.SetVaultFee(feeAdmin, big.NewInt(1e16)); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if got := v.VaultFee(); got.Cmp(big.NewInt(1e16)) != 0 {
		t.Fatalf("fee not applied: %s", got)
	}

	overShare := new(big.Int).Add(f.cfg.MaxGovernanceShare(), big.NewInt(1))
	if err := v.SetGovernanceFeeShare(feeAdmin, overShare); !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("governance share above cap: %v", err)
	}
	if err := v.SetFeeAdministrator(feeAdmin, user); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("administrator reassigned itself: %v", err)
	}
	if err := v.SetFeeAdministrator(owner, user); err != nil {
		t.Fatalf("reassign administrator: %v", err)
	}
	if err := v.SetVaultFee(user, big.NewInt(2e16)); err != nil {
		t.Fatalf("new administrator rejected: %v", err)
	}
}

func TestWeightRampScheduleAndBounds(t *testing.T) {
	f := newFixture()
	v := f.newVault(t, 0xc1, nil, nil, nil)
	f.finish(t, v)

	week := int64(7 * 86400)
	targets := []*big.Int{big.NewInt(2), big.NewInt(1)}

	if err := v.SetWeights(user, targets, f.now+week); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign ramp: %v", err)
	}
	if err := v.SetWeights(owner, targets, f.now+week-1); !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("ramp below minimum window: %v", err)
	}
	if err := v.SetWeights(owner, targets, f.now+366*86400); !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("ramp above maximum window: %v", err)
	}
	if err := v.SetWeights(owner, []*big.Int{big.NewInt(11), big.NewInt(1)}, f.now+week); !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("11x target accepted: %v", err)
	}

	if err := v.SetWeights(owner, targets, f.now+week); err != nil {
		t.Fatalf("schedule ramp: %v", err)
	}
	start := f.now
	f.now = start + week/2
	// Integer weights interpolate coarsely; halfway through a 1->2 ramp the
	// truncated value is still 1.
	if got := v.Weight(0); got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("mid-ramp weight: %s", got)
	}
	f.now = start + week
	if got := v.Weight(0); got.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("post-ramp weight: %s", got)
	}

	// Any operation touches the schedules and refreshes the limiter
	// ceiling to ln2 * (2 + 1).
	if _, err := v.LocalSwap(user, v.assets[0].Token, v.assets[1].Token, wad(1), nil); err != nil {
		t.Fatalf("swap after ramp: %v", err)
	}
	want := new(big.Int).Mul(fixedpoint.LN2Wad, big.NewInt(3))
	if got := v.limits.MaxCapacity(); got.Cmp(want) != 0 {
		t.Fatalf("limiter ceiling after ramp: got %s, want %s", got, want)
	}
}

func TestWeightRampRejectedOnAmplifiedVault(t *testing.T) {
	f := newFixture()
	v := f.newVault(t, 0xc2, big.NewInt(25e16), nil, nil)
	f.finish(t, v)

	err := v.SetWeights(owner, []*big.Int{big.NewInt(2), big.NewInt(2)}, f.now+7*86400)
	if !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("weight ramp on amplified vault: %v", err)
	}
}

func TestAmplificationRamp(t *testing.T) {
	f := newFixture()
	v := f.newVault(t, 0xc3, big.NewInt(25e16), nil, nil)
	f.finish(t, v)

	twoDays := int64(2 * 86400)

	if err := v.SetAmplification(owner, big.NewInt(5e17), f.now+twoDays-1); !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("ramp below minimum window: %v", err)
	}
	// Pushing one-minus-amp from 0.75 to 0.1 exceeds the 2x factor bound.
	if err := v.SetAmplification(owner, big.NewInt(9e17), f.now+twoDays); !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("factor bound ignored: %v", err)
	}
	if err := v.SetAmplification(owner, fixedpoint.WAD, f.now+twoDays); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("amplification of one accepted: %v", err)
	}

	if err := v.SetAmplification(owner, big.NewInt(5e17), f.now+twoDays); err != nil {
		t.Fatalf("schedule ramp: %v", err)
	}
	f.now += twoDays
	v.touchRamps(f.now)
	if got := v.oneMinusAmp.Peek(f.now); got.Cmp(big.NewInt(5e17)) != 0 {
		t.Fatalf("post-ramp one-minus-amp: %s", got)
	}
}

func TestAmplificationLockedWhenConnected(t *testing.T) {
	f := newFixture()
	v := f.newVault(t, 0xc4, big.NewInt(25e16), nil, nil)
	remote := f.newVault(t, 0xc5, big.NewInt(25e16), nil, nil)
	f.connect(t, v, remote)
	f.finish(t, v, remote)

	err := v.SetAmplification(owner, big.NewInt(5e17), f.now+2*86400)
	if !errors.Is(err, ErrAmpLocked) {
		t.Fatalf("amplification changed while connected: %v", err)
	}
}

func TestAmplificationRampRejectedOnVolatileVault(t *testing.T) {
	f := newFixture()
	v := f.newVault(t, 0xc6, nil, nil, nil)
	f.finish(t, v)

	err := v.SetAmplification(owner, big.NewInt(5e17), f.now+2*86400)
	if !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("amplification ramp on volatile vault: %v", err)
	}
}

func TestNewVaultValidation(t *testing.T) {
	f := newFixture()

	p := Params{
		Tokens:   make([]common.Address, 4),
		Weights:  []*big.Int{big.NewInt(1)},
		Balances: []*big.Int{wad(1)},
		Config:   f.cfg,
		Bank:     f.bank,
		Sender:   f.lb,
	}
	if _, err := New(p); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("four assets accepted: %v", err)
	}

	tok := common.HexToAddress("0xc7")
	f.bank.Mint(tok, depositor, wad(10))
	p = Params{
		Tokens:        []common.Address{tok},
		Weights:       []*big.Int{big.NewInt(1)},
		Balances:      []*big.Int{wad(10)},
		Amplification: fixedpoint.WAD,
		Depositor:     depositor,
		Config:        f.cfg,
		Bank:          f.bank,
		Sender:        f.lb,
	}
	if _, err := New(p); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("amplification of one accepted: %v", err)
	}
}
