package vault

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientFunds is returned by the in-memory bank when a transfer
// exceeds the sender's balance.
var ErrInsufficientFunds = errors.New("vault: insufficient token balance")

// MemoryBank is an in-memory TokenBank. It backs the simulator and the test
// suites; production embeddings supply their own custody layer.
type MemoryBank struct {
	balances map[common.Address]map[common.Address]*big.Int
}

// NewMemoryBank returns an empty bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[common.Address]map[common.Address]*big.Int)}
}

// Mint credits holder with amount of token.
func (b *MemoryBank) Mint(token, holder common.Address, amount *big.Int) {
	b.balanceRef(token, holder).Add(b.balanceRef(token, holder), amount)
}

// BalanceOf returns holder's balance of token.
func (b *MemoryBank) BalanceOf(token, holder common.Address) *big.Int {
	return new(big.Int).Set(b.balanceRef(token, holder))
}

// Transfer moves amount of token between accounts.
func (b *MemoryBank) Transfer(token, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInsufficientFunds
	}
	src := b.balanceRef(token, from)
	if src.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	src.Sub(src, amount)
	dst := b.balanceRef(token, to)
	dst.Add(dst, amount)
	return nil
}

func (b *MemoryBank) balanceRef(token, holder common.Address) *big.Int {
	holders, ok := b.balances[token]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		b.balances[token] = holders
	}
	bal, ok := holders[holder]
	if !ok {
		bal = new(big.Int)
		holders[holder] = bal
	}
	return bal
}
