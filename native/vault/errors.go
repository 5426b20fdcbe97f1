package vault

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the role an
	// operation requires (setup master, factory owner, fee administrator
	// or the registered chain interface).
	ErrUnauthorized = errors.New("vault: unauthorized")
	// ErrNotReady is returned for trading operations during setup.
	ErrNotReady = errors.New("vault: vault not ready")
	// ErrSetupClosed is returned when a setup-phase operation arrives
	// after FinishSetup.
	ErrSetupClosed = errors.New("vault: setup already finished")
	// ErrUnknownConnection is returned when the channel/vault pair is not
	// whitelisted.
	ErrUnknownConnection = errors.New("vault: counterparty not connected")
	// ErrInsufficientReturn is returned when the computed output falls
	// below the caller's minimum. On the receive path the transport
	// translates it into a negative acknowledgement.
	ErrInsufficientReturn = errors.New("vault: return below minimum")
	// ErrFeeTooHigh is returned when a fee update exceeds its cap.
	ErrFeeTooHigh = errors.New("vault: fee above cap")
	// ErrInvalidParams is returned for malformed vault construction or
	// operation parameters.
	ErrInvalidParams = errors.New("vault: invalid parameters")
	// ErrInsufficientShares is returned when a burn exceeds the holder's
	// share balance.
	ErrInsufficientShares = errors.New("vault: insufficient share balance")
	// ErrInvalidAdjustment is returned when a ramp request violates the
	// window or factor bounds.
	ErrInvalidAdjustment = errors.New("vault: invalid parameter adjustment")
	// ErrAmpLocked is returned when amplification changes are requested on
	// a vault that already has cross-chain connections.
	ErrAmpLocked = errors.New("vault: amplification locked while connected")
	// ErrWithdrawRatio is returned when a mixed-withdrawal ratio exceeds
	// one.
	ErrWithdrawRatio = errors.New("vault: withdraw ratio above one")
	// ErrUnusedUnits is returned when a mixed withdrawal leaves units
	// unspent, which would otherwise silently donate them to the vault.
	ErrUnusedUnits = errors.New("vault: unused units after withdrawal")
)
