package transport

import "errors"

// ErrUnknownEndpoint is returned when a payload addresses a vault id that no
// handler is registered for.
var ErrUnknownEndpoint = errors.New("transport: unknown endpoint")

// Sender is what a vault hands its outbound payloads to.
type Sender interface {
	Send(channel string, payload []byte) error
}

// Handler is the inbound surface a vault registers with a transport. Deliver
// calls correspond to the destination side of a swap; Ack and Timeout are the
// terminal callbacks on the source side. A Deliver error means the swap was
// rejected by the destination and must be translated into a Timeout at the
// source.
type Handler interface {
	DeliverAsset(channel string, p AssetPacket) error
	DeliverLiquidity(channel string, p LiquidityPacket) error
	AssetAck(channel string, p AssetPacket) error
	AssetTimeout(channel string, p AssetPacket) error
	LiquidityAck(channel string, p LiquidityPacket) error
	LiquidityTimeout(channel string, p LiquidityPacket) error
}
