package transport

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func samplePacket() AssetPacket {
	return AssetPacket{
		FromVault:      common.HexToHash("0x01"),
		ToVault:        common.HexToHash("0x02"),
		ToAccount:      common.HexToHash("0x03"),
		Units:          big.NewInt(123456789),
		ToAssetIndex:   2,
		MinOut:         big.NewInt(42),
		FromAmount:     big.NewInt(1000000),
		FromAsset:      common.HexToHash("0x04"),
		BlockNumberMod: 0xdeadbeef,
	}
}

func TestAssetPacketRoundTrip(t *testing.T) {
	want := samplePacket()
	payload, err := EncodeAssetPacket(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(payload) != assetBaseLen {
		t.Fatalf("payload length: got %d, want %d", len(payload), assetBaseLen)
	}
	got, err := DecodeAssetPacket(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FromVault != want.FromVault || got.ToVault != want.ToVault || got.ToAccount != want.ToAccount {
		t.Fatalf("routing fields mismatch: %+v", got)
	}
	if got.Units.Cmp(want.Units) != 0 || got.MinOut.Cmp(want.MinOut) != 0 || got.FromAmount.Cmp(want.FromAmount) != 0 {
		t.Fatalf("value fields mismatch: %+v", got)
	}
	if got.ToAssetIndex != want.ToAssetIndex || got.BlockNumberMod != want.BlockNumberMod {
		t.Fatalf("scalar fields mismatch: %+v", got)
	}
}

func TestAssetPacketCalldataRoundTrip(t *testing.T) {
	want := samplePacket()
	want.CalldataTarget = common.HexToHash("0x99")
	want.Calldata = []byte("post-swap hook arguments")
	payload, err := EncodeAssetPacket(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeAssetPacket(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CalldataTarget != want.CalldataTarget {
		t.Fatalf("calldata target: got %s", got.CalldataTarget)
	}
	if !bytes.Equal(got.Calldata, want.Calldata) {
		t.Fatalf("calldata: got %q", got.Calldata)
	}
}

func TestLiquidityPacketRoundTrip(t *testing.T) {
	want := LiquidityPacket{
		FromVault:      common.HexToHash("0x11"),
		ToVault:        common.HexToHash("0x12"),
		ToAccount:      common.HexToHash("0x13"),
		Units:          new(big.Int).Lsh(big.NewInt(1), 200),
		MinShares:      big.NewInt(7),
		MinReference:   big.NewInt(9),
		FromAmount:     big.NewInt(555),
		BlockNumberMod: 17,
	}
	payload, err := EncodeLiquidityPacket(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if ctx, err := Context(payload); err != nil || ctx != ContextLiquidity {
		t.Fatalf("context: got %d, %v", ctx, err)
	}
	got, err := DecodeLiquidityPacket(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Units.Cmp(want.Units) != 0 || got.MinShares.Cmp(want.MinShares) != 0 ||
		got.MinReference.Cmp(want.MinReference) != 0 || got.FromAmount.Cmp(want.FromAmount) != 0 {
		t.Fatalf("value fields mismatch: %+v", got)
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	payload, err := EncodeAssetPacket(samplePacket())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := DecodeAssetPacket(payload[:50]); err != ErrPayloadTooShort {
		t.Fatalf("short payload: got %v", err)
	}
	if _, err := DecodeAssetPacket(append(append([]byte(nil), payload...), 0x00)); err != ErrTrailingBytes {
		t.Fatalf("trailing byte: got %v", err)
	}

	bad := append([]byte(nil), payload...)
	bad[0] = 0x7f
	if _, err := DecodeAssetPacket(bad); err != ErrBadContext {
		t.Fatalf("bad context: got %v", err)
	}
	if _, err := Context(bad); err != ErrBadContext {
		t.Fatalf("context on bad byte: got %v", err)
	}
	if _, err := Context(nil); err != ErrPayloadTooShort {
		t.Fatalf("context on empty: got %v", err)
	}

	// Cross-context payloads fail on the context byte even though the
	// liquidity layout is one byte shorter than the asset layout.
	liq, err := EncodeLiquidityPacket(LiquidityPacket{Units: big.NewInt(1), FromAmount: big.NewInt(1)})
	if err != nil {
		t.Fatalf("encode liquidity: %v", err)
	}
	if _, err := DecodeAssetPacket(liq); err != ErrBadContext {
		t.Fatalf("cross-context asset decode: got %v", err)
	}
	if _, err := DecodeLiquidityPacket(payload); err != ErrBadContext {
		t.Fatalf("cross-context liquidity decode: got %v", err)
	}

	// A lone correct context byte is still truncation.
	if _, err := DecodeAssetPacket([]byte{ContextAsset}); err != ErrPayloadTooShort {
		t.Fatalf("one-byte asset payload: got %v", err)
	}
	if _, err := DecodeLiquidityPacket(nil); err != ErrPayloadTooShort {
		t.Fatalf("empty liquidity payload: got %v", err)
	}
}

func TestEncodeRejectsOversizedValues(t *testing.T) {
	p := samplePacket()
	p.Units = new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := EncodeAssetPacket(p); err == nil {
		t.Fatalf("257-bit units accepted")
	}
	p = samplePacket()
	p.Units = big.NewInt(-1)
	if _, err := EncodeAssetPacket(p); err == nil {
		t.Fatalf("negative units accepted")
	}
}
