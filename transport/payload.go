// Package transport defines the cross-chain message boundary of the vault
// engine: the fixed-offset wire codec for swap payloads, the narrow Sender
// and Handler interfaces the vaults speak through, and an in-process loopback
// implementation that exercises the full asynchronous protocol.
package transport

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrPayloadTooShort is returned when a payload does not cover the
	// fixed fields of its context.
	ErrPayloadTooShort = errors.New("transport: payload too short")
	// ErrBadContext is returned for an unknown context byte.
	ErrBadContext = errors.New("transport: unknown payload context")
	// ErrTrailingBytes is returned when a payload carries bytes beyond the
	// encoded length.
	ErrTrailingBytes = errors.New("transport: trailing bytes in payload")
	// ErrValueOverflow is returned when a value does not fit the 32-byte
	// wire field.
	ErrValueOverflow = errors.New("transport: value exceeds 256 bits")
)

// Context bytes distinguishing the two payload layouts.
const (
	ContextAsset     byte = 0x00
	ContextLiquidity byte = 0x01
)

// Fixed field offsets shared by both layouts.
const (
	offContext   = 0
	offFromVault = 1
	offToVault   = 33
	offToAccount = 65
	offUnits     = 97

	offAssetIndex   = 129
	offAssetMinOut  = 130
	offAssetAmount  = 162
	offAssetRef     = 194
	offAssetBlock   = 226
	offAssetDataLen = 230
	assetBaseLen    = 232

	offLiqMinShares = 129
	offLiqMinRef    = 161
	offLiqAmount    = 193
	offLiqBlock     = 225
	offLiqDataLen   = 229
	liqBaseLen      = 231

	dataTargetLen = 32
)

// AssetPacket is a decoded cross-chain asset swap.
type AssetPacket struct {
	FromVault      common.Hash
	ToVault        common.Hash
	ToAccount      common.Hash
	Units          *big.Int
	ToAssetIndex   uint8
	MinOut         *big.Int
	FromAmount     *big.Int // escrowed source amount
	FromAsset      common.Hash
	BlockNumberMod uint32
	CalldataTarget common.Hash
	Calldata       []byte
}

// LiquidityPacket is a decoded cross-chain liquidity swap.
type LiquidityPacket struct {
	FromVault      common.Hash
	ToVault        common.Hash
	ToAccount      common.Hash
	Units          *big.Int
	MinShares      *big.Int
	MinReference   *big.Int
	FromAmount     *big.Int // escrowed share amount
	BlockNumberMod uint32
	CalldataTarget common.Hash
	Calldata       []byte
}

// EncodeAssetPacket serialises p into the fixed-offset wire format.
func EncodeAssetPacket(p AssetPacket) ([]byte, error) {
	buf := make([]byte, assetBaseLen, assetBaseLen+dataTargetLen+len(p.Calldata))
	buf[offContext] = ContextAsset
	copy(buf[offFromVault:], p.FromVault.Bytes())
	copy(buf[offToVault:], p.ToVault.Bytes())
	copy(buf[offToAccount:], p.ToAccount.Bytes())
	if err := putU256(buf[offUnits:], p.Units); err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	buf[offAssetIndex] = p.ToAssetIndex
	if err := putU256(buf[offAssetMinOut:], p.MinOut); err != nil {
		return nil, fmt.Errorf("min out: %w", err)
	}
	if err := putU256(buf[offAssetAmount:], p.FromAmount); err != nil {
		return nil, fmt.Errorf("from amount: %w", err)
	}
	copy(buf[offAssetRef:], p.FromAsset.Bytes())
	putU32(buf[offAssetBlock:], p.BlockNumberMod)
	return appendCalldata(buf, offAssetDataLen, p.CalldataTarget, p.Calldata)
}

// DecodeAssetPacket parses an asset payload, rejecting short or padded
// buffers.
func DecodeAssetPacket(payload []byte) (AssetPacket, error) {
	// The context byte is judged before the length: a well-formed payload of
	// the other context must fail as a context mismatch, not as truncation.
	if len(payload) == 0 {
		return AssetPacket{}, ErrPayloadTooShort
	}
	if payload[offContext] != ContextAsset {
		return AssetPacket{}, ErrBadContext
	}
	if len(payload) < assetBaseLen {
		return AssetPacket{}, ErrPayloadTooShort
	}
	p := AssetPacket{
		FromVault:      common.BytesToHash(payload[offFromVault:offToVault]),
		ToVault:        common.BytesToHash(payload[offToVault:offToAccount]),
		ToAccount:      common.BytesToHash(payload[offToAccount:offUnits]),
		Units:          getU256(payload[offUnits : offUnits+32]),
		ToAssetIndex:   payload[offAssetIndex],
		MinOut:         getU256(payload[offAssetMinOut : offAssetMinOut+32]),
		FromAmount:     getU256(payload[offAssetAmount : offAssetAmount+32]),
		FromAsset:      common.BytesToHash(payload[offAssetRef : offAssetRef+32]),
		BlockNumberMod: getU32(payload[offAssetBlock:]),
	}
	target, data, err := readCalldata(payload, offAssetDataLen, assetBaseLen)
	if err != nil {
		return AssetPacket{}, err
	}
	p.CalldataTarget, p.Calldata = target, data
	return p, nil
}

// EncodeLiquidityPacket serialises p into the fixed-offset wire format.
func EncodeLiquidityPacket(p LiquidityPacket) ([]byte, error) {
	buf := make([]byte, liqBaseLen, liqBaseLen+dataTargetLen+len(p.Calldata))
	buf[offContext] = ContextLiquidity
	copy(buf[offFromVault:], p.FromVault.Bytes())
	copy(buf[offToVault:], p.ToVault.Bytes())
	copy(buf[offToAccount:], p.ToAccount.Bytes())
	if err := putU256(buf[offUnits:], p.Units); err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	if err := putU256(buf[offLiqMinShares:], p.MinShares); err != nil {
		return nil, fmt.Errorf("min shares: %w", err)
	}
	if err := putU256(buf[offLiqMinRef:], p.MinReference); err != nil {
		return nil, fmt.Errorf("min reference: %w", err)
	}
	if err := putU256(buf[offLiqAmount:], p.FromAmount); err != nil {
		return nil, fmt.Errorf("from amount: %w", err)
	}
	putU32(buf[offLiqBlock:], p.BlockNumberMod)
	return appendCalldata(buf, offLiqDataLen, p.CalldataTarget, p.Calldata)
}

// DecodeLiquidityPacket parses a liquidity payload.
func DecodeLiquidityPacket(payload []byte) (LiquidityPacket, error) {
	if len(payload) == 0 {
		return LiquidityPacket{}, ErrPayloadTooShort
	}
	if payload[offContext] != ContextLiquidity {
		return LiquidityPacket{}, ErrBadContext
	}
	if len(payload) < liqBaseLen {
		return LiquidityPacket{}, ErrPayloadTooShort
	}
	p := LiquidityPacket{
		FromVault:      common.BytesToHash(payload[offFromVault:offToVault]),
		ToVault:        common.BytesToHash(payload[offToVault:offToAccount]),
		ToAccount:      common.BytesToHash(payload[offToAccount:offUnits]),
		Units:          getU256(payload[offUnits : offUnits+32]),
		MinShares:      getU256(payload[offLiqMinShares : offLiqMinShares+32]),
		MinReference:   getU256(payload[offLiqMinRef : offLiqMinRef+32]),
		FromAmount:     getU256(payload[offLiqAmount : offLiqAmount+32]),
		BlockNumberMod: getU32(payload[offLiqBlock:]),
	}
	target, data, err := readCalldata(payload, offLiqDataLen, liqBaseLen)
	if err != nil {
		return LiquidityPacket{}, err
	}
	p.CalldataTarget, p.Calldata = target, data
	return p, nil
}

// Context reports the context byte of a raw payload.
func Context(payload []byte) (byte, error) {
	if len(payload) == 0 {
		return 0, ErrPayloadTooShort
	}
	ctx := payload[offContext]
	if ctx != ContextAsset && ctx != ContextLiquidity {
		return 0, ErrBadContext
	}
	return ctx, nil
}

func appendCalldata(buf []byte, lenOff int, target common.Hash, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return buf, nil
	}
	if len(data) > 0xffff {
		return nil, ErrValueOverflow
	}
	buf[lenOff] = byte(len(data) >> 8)
	buf[lenOff+1] = byte(len(data))
	buf = append(buf, target.Bytes()...)
	return append(buf, data...), nil
}

func readCalldata(payload []byte, lenOff, baseLen int) (common.Hash, []byte, error) {
	dataLen := int(payload[lenOff])<<8 | int(payload[lenOff+1])
	if dataLen == 0 {
		if len(payload) != baseLen {
			return common.Hash{}, nil, ErrTrailingBytes
		}
		return common.Hash{}, nil, nil
	}
	want := baseLen + dataTargetLen + dataLen
	if len(payload) < want {
		return common.Hash{}, nil, ErrPayloadTooShort
	}
	if len(payload) > want {
		return common.Hash{}, nil, ErrTrailingBytes
	}
	target := common.BytesToHash(payload[baseLen : baseLen+dataTargetLen])
	data := append([]byte(nil), payload[baseLen+dataTargetLen:]...)
	return target, data, nil
}

func putU256(dst []byte, v *big.Int) error {
	if v == nil {
		v = new(big.Int)
	}
	u, overflow := uint256.FromBig(v)
	if overflow || v.Sign() < 0 {
		return ErrValueOverflow
	}
	b := u.Bytes32()
	copy(dst, b[:])
	return nil
}

func getU256(src []byte) *big.Int {
	return new(uint256.Int).SetBytes(src).ToBig()
}

func putU32(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}

func getU32(src []byte) uint32 {
	return uint32(src[0])<<24 | uint32(src[1])<<16 | uint32(src[2])<<8 | uint32(src[3])
}
