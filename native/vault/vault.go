// Package vault implements the vault controller: asset custody, share
// accounting, fee collection, cross-chain escrow bookkeeping and the security
// limiter, wired around the pure pricing engines in native/invariant. All
// mutating operations are synchronous and single-threaded per vault; the
// embedding application serialises access.
package vault

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"unitvault/config"
	"unitvault/events"
	"unitvault/fixedpoint"
	"unitvault/native/escrow"
	"unitvault/native/invariant"
	"unitvault/native/limiter"
	"unitvault/native/ramp"
	"unitvault/transport"
)

// MaxAssets bounds the basket size. Pricing cost grows with the basket and
// three covers every deployed configuration.
const MaxAssets = 3

// TokenBank abstracts token custody. The vault never holds raw token state;
// it instructs the bank and mirrors the resulting balances.
type TokenBank interface {
	Transfer(token, from, to common.Address, amount *big.Int) error
}

// ConnectionKey identifies a whitelisted cross-chain counterparty.
type ConnectionKey struct {
	Channel string
	Vault   common.Hash
}

// AssetSlot is one asset of the basket: its token, the vault's mirrored
// balance and the ramped weight schedule.
type AssetSlot struct {
	Token   common.Address
	Balance *big.Int
	Weight  *ramp.Schedule
}

// Params configures a new vault. Amplification selects the pricing family:
// zero is the weighted constant-product family, anything in (0, WAD) is the
// amplified family.
type Params struct {
	ID            common.Hash
	Address       common.Address
	Tokens        []common.Address
	Weights       []*big.Int
	Balances      []*big.Int
	Amplification *big.Int

	Depositor        common.Address
	SetupMaster      common.Address
	FactoryOwner     common.Address
	FeeAdministrator common.Address
	ChainInterface   common.Address

	VaultFee        *big.Int // WAD fraction, nil for zero
	GovernanceShare *big.Int // WAD fraction, nil for the configured default

	Config  *config.Config
	Bank    TokenBank
	Sender  transport.Sender
	Emitter events.Emitter
	Now     func() int64
	Block   func() uint64
}

// Vault is one deployed vault instance.
type Vault struct {
	id      common.Hash
	address common.Address
	variant invariant.Variant
	engine  invariant.Engine

	assets      []AssetSlot
	oneMinusAmp *ramp.Schedule
	unitTracker *big.Int

	totalShares   *big.Int
	shareBalances map[common.Address]*big.Int

	limits  *limiter.Limiter
	escrows *escrow.Ledger
	conns   map[ConnectionKey]bool

	vaultFee         *big.Int
	governanceShare  *big.Int
	feeAdministrator common.Address
	factoryOwner     common.Address
	setupMaster      common.Address
	chainInterface   common.Address

	cfg     *config.Config
	bank    TokenBank
	sender  transport.Sender
	emitter events.Emitter
	nowFn   func() int64
	blockFn func() uint64
}

// New validates p, pulls the initial balances from the depositor and mints
// the depositor exactly one WAD of shares.
func New(p Params) (*Vault, error) {
	n := len(p.Tokens)
	if n == 0 || n > MaxAssets || len(p.Weights) != n || len(p.Balances) != n {
		return nil, ErrInvalidParams
	}
	for i := 0; i < n; i++ {
		if p.Weights[i] == nil || p.Weights[i].Sign() <= 0 {
			return nil, ErrInvalidParams
		}
		if p.Balances[i] == nil || p.Balances[i].Sign() <= 0 {
			return nil, ErrInvalidParams
		}
	}
	if p.Config == nil || p.Bank == nil || p.Sender == nil {
		return nil, ErrInvalidParams
	}

	variant := invariant.Volatile
	oneMinusAmp := new(big.Int).Set(fixedpoint.WAD)
	if p.Amplification != nil && p.Amplification.Sign() != 0 {
		if p.Amplification.Sign() < 0 || p.Amplification.Cmp(fixedpoint.WAD) >= 0 {
			return nil, ErrInvalidParams
		}
		variant = invariant.Amplified
		oneMinusAmp.Sub(fixedpoint.WAD, p.Amplification)
	}

	vaultFee := new(big.Int)
	if p.VaultFee != nil {
		vaultFee.Set(p.VaultFee)
	}
	if vaultFee.Sign() < 0 || vaultFee.Cmp(p.Config.MaxVaultFee()) > 0 {
		return nil, ErrFeeTooHigh
	}
	governanceShare := p.Config.DefaultGovernanceShare()
	if p.GovernanceShare != nil {
		governanceShare = new(big.Int).Set(p.GovernanceShare)
	}
	if governanceShare.Sign() < 0 || governanceShare.Cmp(p.Config.MaxGovernanceShare()) > 0 {
		return nil, ErrFeeTooHigh
	}

	emitter := p.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	nowFn := p.Now
	if nowFn == nil {
		nowFn = func() int64 { return time.Now().Unix() }
	}
	blockFn := p.Block
	if blockFn == nil {
		blockFn = func() uint64 { return 0 }
	}

	v := &Vault{
		id:               p.ID,
		address:          p.Address,
		variant:          variant,
		engine:           invariant.ForVariant(variant),
		oneMinusAmp:      ramp.New(oneMinusAmp),
		unitTracker:      new(big.Int),
		totalShares:      new(big.Int).Set(fixedpoint.WAD),
		shareBalances:    make(map[common.Address]*big.Int),
		escrows:          escrow.NewLedger(n),
		conns:            make(map[ConnectionKey]bool),
		vaultFee:         vaultFee,
		governanceShare:  governanceShare,
		feeAdministrator: p.FeeAdministrator,
		factoryOwner:     p.FactoryOwner,
		setupMaster:      p.SetupMaster,
		chainInterface:   p.ChainInterface,
		cfg:              p.Config,
		bank:             p.Bank,
		sender:           p.Sender,
		emitter:          emitter,
		nowFn:            nowFn,
		blockFn:          blockFn,
	}
	v.shareBalances[p.Depositor] = new(big.Int).Set(fixedpoint.WAD)

	v.assets = make([]AssetSlot, n)
	for i := 0; i < n; i++ {
		if err := v.bank.Transfer(p.Tokens[i], p.Depositor, v.address, p.Balances[i]); err != nil {
			return nil, err
		}
		v.assets[i] = AssetSlot{
			Token:   p.Tokens[i],
			Balance: new(big.Int).Set(p.Balances[i]),
			Weight:  ramp.New(p.Weights[i]),
		}
	}

	maxCap, err := v.engine.MaxLimitCapacity(v.rawState(v.nowFn()))
	if err != nil {
		return nil, err
	}
	v.limits = limiter.New(maxCap, p.Config.Engine.DecayPeriodSeconds)
	return v, nil
}

// ID returns the vault's cross-chain identifier.
func (v *Vault) ID() common.Hash { return v.id }

// Ready reports whether setup has finished and trading is open.
func (v *Vault) Ready() bool { return v.setupMaster == (common.Address{}) }

// Connected reports whether the channel/vault pair is whitelisted.
func (v *Vault) Connected(channel string, remote common.Hash) bool {
	return v.conns[ConnectionKey{Channel: channel, Vault: remote}]
}

// TotalShares returns the circulating share supply, excluding escrowed shares.
func (v *Vault) TotalShares() *big.Int { return new(big.Int).Set(v.totalShares) }

// ShareBalanceOf returns holder's share balance.
func (v *Vault) ShareBalanceOf(holder common.Address) *big.Int {
	if b, ok := v.shareBalances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Balance returns the mirrored token balance of asset i, escrow included.
func (v *Vault) Balance(i int) *big.Int {
	if i < 0 || i >= len(v.assets) {
		return new(big.Int)
	}
	return new(big.Int).Set(v.assets[i].Balance)
}

// Weight returns the current weight of asset i.
func (v *Vault) Weight(i int) *big.Int {
	if i < 0 || i >= len(v.assets) {
		return new(big.Int)
	}
	return v.assets[i].Weight.Peek(v.nowFn())
}

// VaultFee returns the WAD-scaled swap fee.
func (v *Vault) VaultFee() *big.Int { return new(big.Int).Set(v.vaultFee) }

// SecurityCapacity returns the remaining inbound capacity right now.
func (v *Vault) SecurityCapacity() *big.Int { return v.limits.Capacity(v.nowFn()) }

func (v *Vault) assetIndex(token common.Address) (int, error) {
	for i := range v.assets {
		if v.assets[i].Token == token {
			return i, nil
		}
	}
	return 0, ErrInvalidParams
}

func (v *Vault) now() int64 { return v.nowFn() }

func (v *Vault) blockMod() uint32 { return uint32(v.blockFn()) }

// touchRamps advances every parameter schedule to now. When a volatile weight
// ramp moved, the limiter ceiling is recomputed since it depends only on the
// weights.
func (v *Vault) touchRamps(now int64) {
	moved := false
	for i := range v.assets {
		if v.assets[i].Weight.Active() {
			moved = true
		}
		v.assets[i].Weight.Touch(now)
	}
	v.oneMinusAmp.Touch(now)
	if moved && v.variant == invariant.Volatile {
		if maxCap, err := v.engine.MaxLimitCapacity(v.rawState(now)); err == nil {
			v.limits.SetMax(maxCap)
		}
	}
}

// rawState snapshots weights and raw balances, escrow included. The send and
// deposit paths price against raw balances: counting escrowed value there can
// only undervalue the incoming side, which favours the vault.
func (v *Vault) rawState(now int64) invariant.State {
	s := invariant.State{
		Weights:     make([]*big.Int, len(v.assets)),
		Balances:    make([]*big.Int, len(v.assets)),
		OneMinusAmp: v.oneMinusAmp.Peek(now),
		TotalShares: new(big.Int).Set(v.totalShares),
		UnitTracker: new(big.Int).Set(v.unitTracker),
	}
	for i := range v.assets {
		s.Weights[i] = v.assets[i].Weight.Peek(now)
		s.Balances[i] = new(big.Int).Set(v.assets[i].Balance)
	}
	return s
}

// effectiveState snapshots escrow-excluded balances. Payout paths price
// against these: value that may still be refunded is never promised twice.
func (v *Vault) effectiveState(now int64) invariant.State {
	s := v.rawState(now)
	for i := range s.Balances {
		s.Balances[i].Sub(s.Balances[i], v.escrows.TotalEscrowed(i))
		if s.Balances[i].Sign() < 0 {
			s.Balances[i].SetInt64(0)
		}
	}
	return s
}

func (v *Vault) mintShares(to common.Address, amount *big.Int) {
	bal, ok := v.shareBalances[to]
	if !ok {
		bal = new(big.Int)
		v.shareBalances[to] = bal
	}
	bal.Add(bal, amount)
	v.totalShares.Add(v.totalShares, amount)
}

func (v *Vault) burnShares(from common.Address, amount *big.Int) error {
	bal, ok := v.shareBalances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}
	bal.Sub(bal, amount)
	v.totalShares.Sub(v.totalShares, amount)
	return nil
}

func (v *Vault) emit(ev events.Event) {
	v.emitter.Emit(ev)
}

// weightedSum returns sum(weights[i] * amounts[i]) at now, the quantity the
// amplified limiter accounts in.
func (v *Vault) weightedSum(now int64, amounts []*big.Int) *big.Int {
	sum := new(big.Int)
	for i := range v.assets {
		if i >= len(amounts) || amounts[i] == nil {
			continue
		}
		w := v.assets[i].Weight.Peek(now)
		sum.Add(sum, new(big.Int).Mul(w, amounts[i]))
	}
	return sum
}

// weightedAmount returns weight[i] * amount at now.
func (v *Vault) weightedAmount(now int64, i int, amount *big.Int) *big.Int {
	return new(big.Int).Mul(v.assets[i].Weight.Peek(now), amount)
}
