// Package metrics exposes Prometheus collectors for the yield ledgers and the
// reward relayer.
package metrics

import (
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type YieldMetrics struct {
	operations     *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	relayerCycles  *prometheus.CounterVec
	relayerReward  *prometheus.CounterVec
	relayerQuote   prometheus.Gauge
	relayerAPR     prometheus.Gauge
	poolYieldIndex prometheus.Gauge
	poolSupply     *prometheus.GaugeVec
}

var (
	yieldOnce     sync.Once
	yieldRegistry *YieldMetrics
)

// Yield returns the process-wide collectors, registering them on first use.
func Yield() *YieldMetrics {
	yieldOnce.Do(func() {
		yieldRegistry = &YieldMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yieldsplit_operations_total",
				Help: "Ledger operations segmented by module, operation and outcome (ok or error kind).",
			}, []string{"module", "op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "yieldsplit_operation_duration_seconds",
				Help:    "Latency of atomic ledger operations including the commit.",
				Buckets: prometheus.DefBuckets,
			}, []string{"module", "op"}),
			relayerCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yieldsplit_relayer_cycles_total",
				Help: "Relayer accrual cycles by outcome.",
			}, []string{"outcome"}),
			relayerReward: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yieldsplit_relayer_reward_total",
				Help: "Reward pushed by the relayer per target ledger, in base units.",
			}, []string{"target"}),
			relayerQuote: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "yieldsplit_relayer_quote_age_seconds",
				Help: "Age of the last APR quote read by the relayer.",
			}),
			relayerAPR: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "yieldsplit_relayer_apr_bps",
				Help: "Last accepted APR quote in basis points.",
			}),
			poolYieldIndex: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "yieldsplit_pool_yield_index",
				Help: "Pool yield index scaled down by the fixed-point precision.",
			}),
			poolSupply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "yieldsplit_pool_supply",
				Help: "Outstanding pool claim supply by claim kind.",
			}, []string{"claim"}),
		}
		prometheus.MustRegister(
			yieldRegistry.operations,
			yieldRegistry.latency,
			yieldRegistry.relayerCycles,
			yieldRegistry.relayerReward,
			yieldRegistry.relayerQuote,
			yieldRegistry.relayerAPR,
			yieldRegistry.poolYieldIndex,
			yieldRegistry.poolSupply,
		)
	})
	return yieldRegistry
}

func (m *YieldMetrics) ObserveOperation(module, op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.operations.WithLabelValues(module, op, outcome).Inc()
	m.latency.WithLabelValues(module, op).Observe(elapsed.Seconds())
}

func (m *YieldMetrics) ObserveRelayerCycle(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.relayerCycles.WithLabelValues(outcome).Inc()
}

func (m *YieldMetrics) AddRelayerReward(target string, amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	m.relayerReward.WithLabelValues(target).Add(value)
}

func (m *YieldMetrics) SetQuote(aprBps uint64, age time.Duration) {
	if m == nil {
		return
	}
	m.relayerAPR.Set(float64(aprBps))
	m.relayerQuote.Set(age.Seconds())
}

// SetPoolState publishes the pool index (divided by precision) and supplies.
func (m *YieldMetrics) SetPoolState(index, precision, ptSupply, ytSupply *big.Int) {
	if m == nil {
		return
	}
	if index != nil && precision != nil && precision.Sign() > 0 {
		scaled, _ := new(big.Rat).SetFrac(index, precision).Float64()
		m.poolYieldIndex.Set(scaled)
	}
	if ptSupply != nil {
		pt, _ := new(big.Float).SetInt(ptSupply).Float64()
		m.poolSupply.WithLabelValues("principal").Set(pt)
	}
	if ytSupply != nil {
		yt, _ := new(big.Float).SetInt(ytSupply).Float64()
		m.poolSupply.WithLabelValues("yield").Set(yt)
	}
}
