package vault

import "unitvault/transport"

// Endpoint adapts a vault to the transport.Handler interface, binding the
// vault's registered chain interface as the caller of every inbound
// operation.
type Endpoint struct {
	v *Vault
}

// NewEndpoint returns the transport-facing handler for v. Register it under
// v.ID() with the transport.
func NewEndpoint(v *Vault) *Endpoint { return &Endpoint{v: v} }

func (e *Endpoint) DeliverAsset(channel string, p transport.AssetPacket) error {
	return e.v.ReceiveAsset(e.v.chainInterface, channel, p)
}

func (e *Endpoint) DeliverLiquidity(channel string, p transport.LiquidityPacket) error {
	return e.v.ReceiveLiquidity(e.v.chainInterface, channel, p)
}

func (e *Endpoint) AssetAck(channel string, p transport.AssetPacket) error {
	return e.v.OnSendAssetSuccess(e.v.chainInterface, p)
}

func (e *Endpoint) AssetTimeout(channel string, p transport.AssetPacket) error {
	return e.v.OnSendAssetFailure(e.v.chainInterface, p)
}

func (e *Endpoint) LiquidityAck(channel string, p transport.LiquidityPacket) error {
	return e.v.OnSendLiquiditySuccess(e.v.chainInterface, p)
}

func (e *Endpoint) LiquidityTimeout(channel string, p transport.LiquidityPacket) error {
	return e.v.OnSendLiquidityFailure(e.v.chainInterface, p)
}
