// Package observability exposes Prometheus instrumentation for the vault
// engine. The MetricsEmitter plugs into the vault event stream, so every
// deployment that wires an emitter gets swap, escrow and limiter metrics for
// free.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"unitvault/events"
)

type vaultMetrics struct {
	swaps       *prometheus.CounterVec
	escrows     *prometheus.CounterVec
	liquidity   *prometheus.CounterVec
	limited     prometheus.Counter
	adjustments *prometheus.CounterVec
}

var (
	vaultMetricsOnce sync.Once
	vaultRegistry    *vaultMetrics
)

func metrics() *vaultMetrics {
	vaultMetricsOnce.Do(func() {
		vaultRegistry = &vaultMetrics{
			swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "unitvault",
				Subsystem: "vault",
				Name:      "swaps_total",
				Help:      "Settled swaps segmented by kind (local, send, receive).",
			}, []string{"kind"}),
			escrows: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "unitvault",
				Subsystem: "vault",
				Name:      "escrow_resolutions_total",
				Help:      "Escrow resolutions segmented by outcome (ack, timeout).",
			}, []string{"outcome"}),
			liquidity: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "unitvault",
				Subsystem: "vault",
				Name:      "liquidity_operations_total",
				Help:      "Deposits, withdrawals and liquidity swaps segmented by kind.",
			}, []string{"kind"}),
			limited: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "unitvault",
				Subsystem: "vault",
				Name:      "security_limited_total",
				Help:      "Inbound swaps rejected by the security limiter.",
			}),
			adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "unitvault",
				Subsystem: "vault",
				Name:      "parameter_adjustments_total",
				Help:      "Scheduled parameter ramps segmented by kind (weights, amplification).",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			vaultRegistry.swaps,
			vaultRegistry.escrows,
			vaultRegistry.liquidity,
			vaultRegistry.limited,
			vaultRegistry.adjustments,
		)
	})
	return vaultRegistry
}

// MetricsEmitter counts vault events in Prometheus. It can wrap another
// emitter so metrics ride along an existing event pipeline.
type MetricsEmitter struct {
	Next events.Emitter
}

// Emit implements events.Emitter.
func (m MetricsEmitter) Emit(ev events.Event) {
	reg := metrics()
	switch ev.EventType() {
	case events.TypeLocalSwap:
		reg.swaps.WithLabelValues("local").Inc()
	case events.TypeSendAsset:
		reg.swaps.WithLabelValues("send").Inc()
	case events.TypeReceiveAsset:
		reg.swaps.WithLabelValues("receive").Inc()
	case events.TypeSendAssetSuccess, events.TypeSendLiquiditySuccess:
		reg.escrows.WithLabelValues("ack").Inc()
	case events.TypeSendAssetFailure, events.TypeSendLiquidityFailure:
		reg.escrows.WithLabelValues("timeout").Inc()
	case events.TypeDeposit:
		reg.liquidity.WithLabelValues("deposit").Inc()
	case events.TypeWithdraw:
		reg.liquidity.WithLabelValues("withdraw").Inc()
	case events.TypeSendLiquidity:
		reg.liquidity.WithLabelValues("send").Inc()
	case events.TypeReceiveLiquidity:
		reg.liquidity.WithLabelValues("receive").Inc()
	case events.TypeSecurityLimited:
		reg.limited.Inc()
	case events.TypeWeightsRamp:
		reg.adjustments.WithLabelValues("weights").Inc()
	case events.TypeAmplificationRamp:
		reg.adjustments.WithLabelValues("amplification").Inc()
	}
	if m.Next != nil {
		m.Next.Emit(ev)
	}
}
