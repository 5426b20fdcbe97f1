package escrow

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func testHash(t *testing.T, block uint32) common.Hash {
	t.Helper()
	h, err := AssetSwapHash(
		common.HexToHash("0x01"),
		big.NewInt(1234),
		big.NewInt(500),
		common.HexToHash("0xaa"),
		block,
	)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h
}

func TestReleaseIsExactlyOnce(t *testing.T) {
	l := NewLedger(2)
	hash := testHash(t, 7)
	fallback := common.HexToAddress("0xbeef")

	if err := l.CreateAsset(hash, fallback, 1, big.NewInt(500)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := l.CreateAsset(hash, fallback, 1, big.NewInt(500)); !errors.Is(err, ErrEscrowExists) {
		t.Fatalf("duplicate create: got %v, want ErrEscrowExists", err)
	}

	rec, err := l.ReleaseAsset(hash)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if rec.Fallback != fallback || rec.Asset != 1 || rec.Amount.Int64() != 500 {
		t.Fatalf("record mismatch: %+v", rec)
	}

	if _, err := l.ReleaseAsset(hash); !errors.Is(err, ErrNoEscrow) {
		t.Fatalf("second release: got %v, want ErrNoEscrow", err)
	}
}

func TestTotalsTrackPendingValue(t *testing.T) {
	l := NewLedger(2)
	h1 := testHash(t, 1)
	h2 := testHash(t, 2)

	if err := l.CreateAsset(h1, common.Address{}, 0, big.NewInt(100)); err != nil {
		t.Fatalf("create 1: %v", err)
	}
	if err := l.CreateAsset(h2, common.Address{}, 0, big.NewInt(250)); err != nil {
		t.Fatalf("create 2: %v", err)
	}
	if got := l.TotalEscrowed(0); got.Int64() != 350 {
		t.Fatalf("total: got %s, want 350", got)
	}
	if got := l.TotalEscrowed(1); got.Sign() != 0 {
		t.Fatalf("untouched asset total: got %s, want 0", got)
	}

	if _, err := l.ReleaseAsset(h1); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := l.TotalEscrowed(0); got.Int64() != 250 {
		t.Fatalf("total after release: got %s, want 250", got)
	}
}

func TestLiquidityEscrowLifecycle(t *testing.T) {
	l := NewLedger(1)
	hash, err := LiquiditySwapHash(common.HexToHash("0x02"), big.NewInt(99), big.NewInt(42), 3)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if err := l.CreateLiquidity(hash, common.HexToAddress("0x01"), big.NewInt(42)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := l.TotalEscrowedShares(); got.Int64() != 42 {
		t.Fatalf("escrowed shares: got %s, want 42", got)
	}

	rec, err := l.ReleaseLiquidity(hash)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if rec.Shares.Int64() != 42 {
		t.Fatalf("record shares: got %s", rec.Shares)
	}
	if got := l.TotalEscrowedShares(); got.Sign() != 0 {
		t.Fatalf("escrowed shares after release: got %s", got)
	}
	if _, err := l.ReleaseLiquidity(hash); !errors.Is(err, ErrNoEscrow) {
		t.Fatalf("double release: got %v, want ErrNoEscrow", err)
	}
}

func TestHashBindsEveryParameter(t *testing.T) {
	base, err := AssetSwapHash(common.HexToHash("0x01"), big.NewInt(10), big.NewInt(20), common.HexToHash("0xaa"), 5)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	variants := []common.Hash{}
	h, _ := AssetSwapHash(common.HexToHash("0x02"), big.NewInt(10), big.NewInt(20), common.HexToHash("0xaa"), 5)
	variants = append(variants, h)
	h, _ = AssetSwapHash(common.HexToHash("0x01"), big.NewInt(11), big.NewInt(20), common.HexToHash("0xaa"), 5)
	variants = append(variants, h)
	h, _ = AssetSwapHash(common.HexToHash("0x01"), big.NewInt(10), big.NewInt(21), common.HexToHash("0xaa"), 5)
	variants = append(variants, h)
	h, _ = AssetSwapHash(common.HexToHash("0x01"), big.NewInt(10), big.NewInt(20), common.HexToHash("0xab"), 5)
	variants = append(variants, h)
	h, _ = AssetSwapHash(common.HexToHash("0x01"), big.NewInt(10), big.NewInt(20), common.HexToHash("0xaa"), 6)
	variants = append(variants, h)

	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collides with base hash", i)
		}
	}
}

func TestHashRejectsOversizedValues(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := AssetSwapHash(common.Hash{}, huge, big.NewInt(1), common.Hash{}, 0); !errors.Is(err, ErrValueOverflow) {
		t.Fatalf("oversized units: got %v, want ErrValueOverflow", err)
	}
	if _, err := LiquiditySwapHash(common.Hash{}, big.NewInt(1), huge, 0); !errors.Is(err, ErrValueOverflow) {
		t.Fatalf("oversized shares: got %v, want ErrValueOverflow", err)
	}
}
