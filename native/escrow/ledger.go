// Package escrow tracks pending outbound cross-chain swaps. Each swap is
// keyed by a hash derived from the full swap parameters, so only the
// transport message referencing that exact payload can resolve it, and the
// map removal on release makes every resolution exactly-once. The ledger also
// keeps running totals of escrowed value per asset (and of escrowed shares)
// so the pricing path can exclude value that may still be refunded.
package escrow

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	// ErrEscrowExists is returned when a swap hash is already pending.
	ErrEscrowExists = errors.New("escrow: swap hash already escrowed")
	// ErrNoEscrow is returned when resolving a hash that is not pending,
	// which is the exactly-once guard against double resolution.
	ErrNoEscrow = errors.New("escrow: no escrow for swap hash")
	// ErrValueOverflow is returned when a swap value does not fit in the
	// 256-bit range the hash preimage encodes.
	ErrValueOverflow = errors.New("escrow: value exceeds 256 bits")
	// ErrBadAsset is returned for an asset index outside the ledger.
	ErrBadAsset = errors.New("escrow: asset index out of range")
)

// AssetRecord is one pending outbound asset swap.
type AssetRecord struct {
	Fallback common.Address
	Asset    int
	Amount   *big.Int
}

// LiquidityRecord is one pending outbound liquidity swap.
type LiquidityRecord struct {
	Fallback common.Address
	Shares   *big.Int
}

// Ledger holds the pending swaps of a single vault.
type Ledger struct {
	assets         map[common.Hash]AssetRecord
	liquidity      map[common.Hash]LiquidityRecord
	totalEscrowed  []*big.Int
	escrowedShares *big.Int
}

// NewLedger returns an empty ledger for a vault with assetCount assets.
func NewLedger(assetCount int) *Ledger {
	totals := make([]*big.Int, assetCount)
	for i := range totals {
		totals[i] = new(big.Int)
	}
	return &Ledger{
		assets:         make(map[common.Hash]AssetRecord),
		liquidity:      make(map[common.Hash]LiquidityRecord),
		totalEscrowed:  totals,
		escrowedShares: new(big.Int),
	}
}

// CreateAsset records a pending asset swap under hash.
func (l *Ledger) CreateAsset(hash common.Hash, fallback common.Address, asset int, amount *big.Int) error {
	if asset < 0 || asset >= len(l.totalEscrowed) {
		return ErrBadAsset
	}
	if _, ok := l.assets[hash]; ok {
		return ErrEscrowExists
	}
	l.assets[hash] = AssetRecord{Fallback: fallback, Asset: asset, Amount: new(big.Int).Set(amount)}
	l.totalEscrowed[asset].Add(l.totalEscrowed[asset], amount)
	return nil
}

// ReleaseAsset resolves and removes the pending swap under hash.
func (l *Ledger) ReleaseAsset(hash common.Hash) (AssetRecord, error) {
	rec, ok := l.assets[hash]
	if !ok {
		return AssetRecord{}, ErrNoEscrow
	}
	delete(l.assets, hash)
	l.totalEscrowed[rec.Asset].Sub(l.totalEscrowed[rec.Asset], rec.Amount)
	return rec, nil
}

// CreateLiquidity records a pending liquidity swap under hash.
func (l *Ledger) CreateLiquidity(hash common.Hash, fallback common.Address, shares *big.Int) error {
	if _, ok := l.liquidity[hash]; ok {
		return ErrEscrowExists
	}
	l.liquidity[hash] = LiquidityRecord{Fallback: fallback, Shares: new(big.Int).Set(shares)}
	l.escrowedShares.Add(l.escrowedShares, shares)
	return nil
}

// ReleaseLiquidity resolves and removes the pending liquidity swap under hash.
func (l *Ledger) ReleaseLiquidity(hash common.Hash) (LiquidityRecord, error) {
	rec, ok := l.liquidity[hash]
	if !ok {
		return LiquidityRecord{}, ErrNoEscrow
	}
	delete(l.liquidity, hash)
	l.escrowedShares.Sub(l.escrowedShares, rec.Shares)
	return rec, nil
}

// TotalEscrowed returns the escrowed amount of the given asset. Pricing
// subtracts it from the token balance so pending refunds cannot be traded.
func (l *Ledger) TotalEscrowed(asset int) *big.Int {
	if asset < 0 || asset >= len(l.totalEscrowed) {
		return new(big.Int)
	}
	return new(big.Int).Set(l.totalEscrowed[asset])
}

// TotalEscrowedShares returns the escrowed share total.
func (l *Ledger) TotalEscrowedShares() *big.Int {
	return new(big.Int).Set(l.escrowedShares)
}

// PendingAssets returns the number of unresolved asset swaps.
func (l *Ledger) PendingAssets() int { return len(l.assets) }

// PendingLiquidity returns the number of unresolved liquidity swaps.
func (l *Ledger) PendingLiquidity() int { return len(l.liquidity) }

// AssetSwapHash derives the escrow key of an asset swap from its full
// parameters: recipient, units, escrowed amount, asset reference and the
// (truncated) block number of the send.
func AssetSwapHash(toAccount common.Hash, u, amount *big.Int, assetRef common.Hash, blockMod uint32) (common.Hash, error) {
	uBytes, err := be32(u)
	if err != nil {
		return common.Hash{}, err
	}
	amountBytes, err := be32(amount)
	if err != nil {
		return common.Hash{}, err
	}
	var block [4]byte
	binary.BigEndian.PutUint32(block[:], blockMod)

	return crypto.Keccak256Hash(
		toAccount.Bytes(),
		uBytes[:],
		amountBytes[:],
		assetRef.Bytes(),
		block[:],
	), nil
}

// LiquiditySwapHash derives the escrow key of a liquidity swap. It has no
// asset reference: the escrowed value is vault shares.
func LiquiditySwapHash(toAccount common.Hash, u, shares *big.Int, blockMod uint32) (common.Hash, error) {
	uBytes, err := be32(u)
	if err != nil {
		return common.Hash{}, err
	}
	sharesBytes, err := be32(shares)
	if err != nil {
		return common.Hash{}, err
	}
	var block [4]byte
	binary.BigEndian.PutUint32(block[:], blockMod)

	return crypto.Keccak256Hash(
		toAccount.Bytes(),
		uBytes[:],
		sharesBytes[:],
		block[:],
	), nil
}

func be32(v *big.Int) ([32]byte, error) {
	u, overflow := uint256.FromBig(v)
	if overflow || v.Sign() < 0 {
		return [32]byte{}, ErrValueOverflow
	}
	return u.Bytes32(), nil
}
