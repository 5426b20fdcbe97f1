package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeLocalSwap is emitted when a same-vault swap settles.
	TypeLocalSwap = "vault.local_swap"
	// TypeSendAsset is emitted when an outbound cross-chain asset swap is
	// escrowed and handed to the transport.
	TypeSendAsset = "vault.send_asset"
	// TypeReceiveAsset is emitted when an inbound cross-chain asset swap
	// settles on the destination vault.
	TypeReceiveAsset = "vault.receive_asset"
	// TypeSendAssetSuccess is emitted when an outbound swap is acknowledged.
	TypeSendAssetSuccess = "vault.send_asset_success"
	// TypeSendAssetFailure is emitted when an outbound swap times out and
	// the escrowed amount is returned to the fallback account.
	TypeSendAssetFailure = "vault.send_asset_failure"
	// TypeSendLiquidity is emitted when an outbound liquidity swap is
	// escrowed and handed to the transport.
	TypeSendLiquidity = "vault.send_liquidity"
	// TypeReceiveLiquidity is emitted when an inbound liquidity swap mints.
	TypeReceiveLiquidity = "vault.receive_liquidity"
	// TypeSendLiquiditySuccess is emitted on liquidity acknowledgement.
	TypeSendLiquiditySuccess = "vault.send_liquidity_success"
	// TypeSendLiquidityFailure is emitted on liquidity timeout.
	TypeSendLiquidityFailure = "vault.send_liquidity_failure"
	// TypeDeposit is emitted when shares are minted against deposits.
	TypeDeposit = "vault.deposit"
	// TypeWithdraw is emitted when shares are burned for assets.
	TypeWithdraw = "vault.withdraw"
	// TypeFinishSetup is emitted when the vault leaves the setup phase.
	TypeFinishSetup = "vault.finish_setup"
	// TypeSetConnection is emitted when a cross-chain counterparty is
	// whitelisted or removed.
	TypeSetConnection = "vault.set_connection"
	// TypeFeeChanged is emitted when the vault or governance fee moves.
	TypeFeeChanged = "vault.fee_changed"
	// TypeWeightsRamp is emitted when a weight adjustment is scheduled.
	TypeWeightsRamp = "vault.weights_ramp"
	// TypeAmplificationRamp is emitted when an amplification adjustment is
	// scheduled.
	TypeAmplificationRamp = "vault.amplification_ramp"
	// TypeSecurityLimited is emitted when an inbound swap is rejected by
	// the security limiter.
	TypeSecurityLimited = "vault.security_limited"
	// TypeGovernanceFeeSkipped is emitted when the governance cut of a fee
	// could not be paid out and was retained by the vault instead.
	TypeGovernanceFeeSkipped = "vault.governance_fee_skipped"
)

type LocalSwap struct {
	Account   common.Address
	FromAsset common.Address
	ToAsset   common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
}

func (LocalSwap) EventType() string { return TypeLocalSwap }

type SendAsset struct {
	Channel      string
	ToVault      common.Hash
	ToAccount    common.Hash
	FromAsset    common.Address
	ToAssetIndex uint8
	Amount       *big.Int
	Units        *big.Int
	SwapHash     common.Hash
}

func (SendAsset) EventType() string { return TypeSendAsset }

type ReceiveAsset struct {
	Channel   string
	FromVault common.Hash
	ToAsset   common.Address
	ToAccount common.Address
	Units     *big.Int
	AmountOut *big.Int
}

func (ReceiveAsset) EventType() string { return TypeReceiveAsset }

type SendAssetSuccess struct {
	SwapHash common.Hash
	Units    *big.Int
	Amount   *big.Int
}

func (SendAssetSuccess) EventType() string { return TypeSendAssetSuccess }

type SendAssetFailure struct {
	SwapHash common.Hash
	Units    *big.Int
	Amount   *big.Int
	Fallback common.Address
}

func (SendAssetFailure) EventType() string { return TypeSendAssetFailure }

type SendLiquidity struct {
	Channel   string
	ToVault   common.Hash
	ToAccount common.Hash
	Shares    *big.Int
	Units     *big.Int
	SwapHash  common.Hash
}

func (SendLiquidity) EventType() string { return TypeSendLiquidity }

type ReceiveLiquidity struct {
	Channel   string
	FromVault common.Hash
	ToAccount common.Address
	Units     *big.Int
	Shares    *big.Int
}

func (ReceiveLiquidity) EventType() string { return TypeReceiveLiquidity }

type SendLiquiditySuccess struct {
	SwapHash common.Hash
	Units    *big.Int
	Shares   *big.Int
}

func (SendLiquiditySuccess) EventType() string { return TypeSendLiquiditySuccess }

type SendLiquidityFailure struct {
	SwapHash common.Hash
	Units    *big.Int
	Shares   *big.Int
	Fallback common.Address
}

func (SendLiquidityFailure) EventType() string { return TypeSendLiquidityFailure }

type Deposit struct {
	Depositor common.Address
	Amounts   []*big.Int
	Shares    *big.Int
}

func (Deposit) EventType() string { return TypeDeposit }

type Withdraw struct {
	Withdrawer common.Address
	Shares     *big.Int
	Amounts    []*big.Int
}

func (Withdraw) EventType() string { return TypeWithdraw }

type FinishSetup struct {
	Master common.Address
}

func (FinishSetup) EventType() string { return TypeFinishSetup }

type SetConnection struct {
	Channel     string
	RemoteVault common.Hash
	Connected   bool
}

func (SetConnection) EventType() string { return TypeSetConnection }

type FeeChanged struct {
	Kind  string // "vault", "governance" or "administrator"
	Value *big.Int
	Admin common.Address
}

func (FeeChanged) EventType() string { return TypeFeeChanged }

type WeightsRamp struct {
	FinishAt int64
	Targets  []*big.Int
}

func (WeightsRamp) EventType() string { return TypeWeightsRamp }

type AmplificationRamp struct {
	FinishAt int64
	Target   *big.Int
}

func (AmplificationRamp) EventType() string { return TypeAmplificationRamp }

type SecurityLimited struct {
	Channel   string
	FromVault common.Hash
	Units     *big.Int
}

func (SecurityLimited) EventType() string { return TypeSecurityLimited }

type GovernanceFeeSkipped struct {
	Asset  common.Address
	Amount *big.Int
	Reason string
}

func (GovernanceFeeSkipped) EventType() string { return TypeGovernanceFeeSkipped }
