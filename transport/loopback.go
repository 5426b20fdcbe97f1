package transport

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Loopback is an in-process transport connecting registered vault endpoints.
// It drives the exact asynchronous protocol a real cross-chain transport
// would: payloads are delivered at most once to the destination handler, and
// every delivered-or-rejected payload produces exactly one Ack or Timeout at
// the source. A vault connected to itself goes through the same path, which
// makes the loopback both a test harness and a check that local and
// cross-chain behaviour cannot diverge.
type Loopback struct {
	log      *slog.Logger
	handlers map[common.Hash]Handler
	queue    []queuedPacket
	deferred bool
}

type queuedPacket struct {
	id      string
	channel string
	payload []byte
}

// NewLoopback returns a loopback delivering synchronously on Send.
func NewLoopback(log *slog.Logger) *Loopback {
	if log == nil {
		log = slog.Default()
	}
	return &Loopback{
		log:      log,
		handlers: make(map[common.Hash]Handler),
	}
}

// SetDeferred switches the loopback to queue packets until Flush is called,
// letting tests observe the in-flight state between send and resolution.
func (l *Loopback) SetDeferred(deferred bool) { l.deferred = deferred }

// Register binds a vault id to its inbound handler.
func (l *Loopback) Register(id common.Hash, h Handler) {
	l.handlers[id] = h
}

// Send implements the Sender interface. Malformed payloads are rejected
// immediately; everything else is either delivered now or queued.
func (l *Loopback) Send(channel string, payload []byte) error {
	if _, err := Context(payload); err != nil {
		return err
	}
	p := queuedPacket{
		id:      uuid.NewString(),
		channel: channel,
		payload: append([]byte(nil), payload...),
	}
	l.log.Debug("packet accepted", "packet_id", p.id, "channel", channel, "bytes", len(payload))
	if l.deferred {
		l.queue = append(l.queue, p)
		return nil
	}
	l.deliver(p)
	return nil
}

// Flush delivers every queued packet and returns how many were processed.
func (l *Loopback) Flush() int {
	queued := l.queue
	l.queue = nil
	for _, p := range queued {
		l.deliver(p)
	}
	return len(queued)
}

// Pending returns the number of undelivered packets.
func (l *Loopback) Pending() int { return len(l.queue) }

func (l *Loopback) deliver(p queuedPacket) {
	ctx, err := Context(p.payload)
	if err != nil {
		l.log.Error("undeliverable packet", "packet_id", p.id, "err", err)
		return
	}
	switch ctx {
	case ContextAsset:
		l.deliverAsset(p)
	case ContextLiquidity:
		l.deliverLiquidity(p)
	}
}

func (l *Loopback) deliverAsset(qp queuedPacket) {
	p, err := DecodeAssetPacket(qp.payload)
	if err != nil {
		l.log.Error("asset payload decode failed", "packet_id", qp.id, "err", err)
		return
	}
	source, ok := l.handlers[p.FromVault]
	if !ok {
		l.log.Error("asset packet from unregistered vault", "packet_id", qp.id, "vault", p.FromVault)
		return
	}
	if err := l.destination(p.ToVault, func(dest Handler) error {
		return dest.DeliverAsset(qp.channel, p)
	}); err != nil {
		l.log.Info("asset swap rejected, timing out",
			"packet_id", qp.id, "to_vault", p.ToVault, "err", err)
		if err := source.AssetTimeout(qp.channel, p); err != nil {
			l.log.Error("asset timeout callback failed", "packet_id", qp.id, "err", err)
		}
		return
	}
	if err := source.AssetAck(qp.channel, p); err != nil {
		l.log.Error("asset ack callback failed", "packet_id", qp.id, "err", err)
	}
}

func (l *Loopback) deliverLiquidity(qp queuedPacket) {
	p, err := DecodeLiquidityPacket(qp.payload)
	if err != nil {
		l.log.Error("liquidity payload decode failed", "packet_id", qp.id, "err", err)
		return
	}
	source, ok := l.handlers[p.FromVault]
	if !ok {
		l.log.Error("liquidity packet from unregistered vault", "packet_id", qp.id, "vault", p.FromVault)
		return
	}
	if err := l.destination(p.ToVault, func(dest Handler) error {
		return dest.DeliverLiquidity(qp.channel, p)
	}); err != nil {
		l.log.Info("liquidity swap rejected, timing out",
			"packet_id", qp.id, "to_vault", p.ToVault, "err", err)
		if err := source.LiquidityTimeout(qp.channel, p); err != nil {
			l.log.Error("liquidity timeout callback failed", "packet_id", qp.id, "err", err)
		}
		return
	}
	if err := source.LiquidityAck(qp.channel, p); err != nil {
		l.log.Error("liquidity ack callback failed", "packet_id", qp.id, "err", err)
	}
}

func (l *Loopback) destination(id common.Hash, deliver func(Handler) error) error {
	dest, ok := l.handlers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEndpoint, id)
	}
	return deliver(dest)
}
