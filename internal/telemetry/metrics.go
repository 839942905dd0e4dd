// FILE: metrics.go
// Package telemetry exposes Prometheus metrics for observability,
// adapted from the teacher's metrics.go (bot_orders_total,
// bot_exit_reasons_total, and friends) onto this engine's domain events:
// orders placed, exits by reason, reserve alerts, and delta drift.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every counter/gauge the engine updates during
// operation. Unlike the teacher's package-level globals (registered in
// init() against the default registry), this is an instance bound to
// its own registry so tests can assert on collected values without
// touching global Prometheus state.
type Metrics struct {
	registry *prometheus.Registry

	ordersTotal       *prometheus.CounterVec
	exitReasonsTotal  *prometheus.CounterVec
	reserveAlerts     prometheus.Counter
	deltaDriftGauge   *prometheus.GaugeVec
	openPositions     *prometheus.GaugeVec
	estimatedBalance  prometheus.Gauge
	fundingCollected  *prometheus.CounterVec
}

// New builds a Metrics bundle and registers every collector against a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xge_orders_total",
			Help: "Orders submitted, by exchange and side (open|close).",
		}, []string{"exchange", "action"}),
		exitReasonsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xge_exit_reasons_total",
			Help: "Closed positions by exit reason.",
		}, []string{"reason"}),
		reserveAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xge_reserve_alerts_total",
			Help: "Number of ticks where ReserveGuard found the reserve breached.",
		}),
		deltaDriftGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xge_delta_drift_usdt",
			Help: "Latest signed spot_qty*mid - perp_qty*mid per position, recorded when it breaches the alert threshold.",
		}, []string{"exchange", "symbol"}),
		openPositions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xge_open_positions",
			Help: "Current open position count, by tier.",
		}, []string{"tier"}),
		estimatedBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "xge_estimated_balance_usdt",
			Help: "CAPITAL.total + sum(history.realized_pnl), as last computed by the strategy runner's capital log.",
		}),
		fundingCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xge_funding_collected_usdt_total",
			Help: "Cumulative funding payments accrued, by exchange.",
		}, []string{"exchange"}),
	}
	m.registry.MustRegister(
		m.ordersTotal, m.exitReasonsTotal, m.reserveAlerts,
		m.deltaDriftGauge, m.openPositions, m.estimatedBalance, m.fundingCollected,
	)
	return m
}

// Registry returns the underlying registry for wiring into promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RecordOrder(exchangeID, action string) {
	m.ordersTotal.WithLabelValues(exchangeID, action).Inc()
}

func (m *Metrics) RecordExit(reason string) {
	m.exitReasonsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordReserveAlert() {
	m.reserveAlerts.Inc()
}

func (m *Metrics) SetDeltaDrift(exchangeID, symbol string, delta float64) {
	m.deltaDriftGauge.WithLabelValues(exchangeID, symbol).Set(delta)
}

func (m *Metrics) SetOpenPositions(tier string, count int) {
	m.openPositions.WithLabelValues(tier).Set(float64(count))
}

func (m *Metrics) SetEstimatedBalance(balance float64) {
	m.estimatedBalance.Set(balance)
}

func (m *Metrics) AddFundingCollected(exchangeID string, amount float64) {
	m.fundingCollected.WithLabelValues(exchangeID).Add(amount)
}
