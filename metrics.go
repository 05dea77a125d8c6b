// FILE: metrics.go
// Package main – Prometheus metrics for observability.
//
// Exposes:
//   • bot_orders_total{mode,side}        – orders placed (mode: paper|live)
//   • bot_decisions_total{signal}        – primary-signal decisions (buy|sell|wait)
//   • bot_equity_usd                     – current equity snapshot (gauge)
//   • bot_trades_total{result}           – closed trades by result (win|loss)
//   • bot_exit_reasons_total{reason}     – exit-ladder rule firings by name
//   • bot_margin_pcnt                    – margin % of the currently open position
//   • bot_smart_switches_total           – granularity smart-switch count
//   • bot_trailing_buy_active            – 1 while a trailing-buy chase is armed
//   • bot_trailing_sell_active           – 1 while a trailing-sell chase is armed
//   • bot_tick_duration_seconds          – per-tick wall time histogram
//
// Kept from the prior metrics.go (bot_orders_total/bot_decisions_total/
// bot_equity_usd/bot_trades_total/bot_exit_reasons_total shape and the
// init()-time MustRegister convention); the micro-model mode gauge, walk-
// forward-fit counter, and post-only limit-flow counters are dropped —
// its Non-goals exclude both ML-based signals and limit-order
// management, so nothing in this bot ever calls those setters. The tick-duration histogram is a SUPPLEMENT enriched from
// poorman-SynapseStrike's metrics.go (RecordCycleDuration/
// TraderCycleDuration histogram-per-tick pattern).
//
// Registered in init() and served by the HTTP handler started in
// main.go at /metrics (Prometheus text exposition format).
package main

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bot_orders_total", Help: "Orders placed"},
		[]string{"mode", "side"},
	)

	mtxDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bot_decisions_total", Help: "Primary-signal decisions taken"},
		[]string{"signal"},
	)

	mtxEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "bot_equity_usd", Help: "Equity in USD"},
	)

	mtxTrades = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bot_trades_total", Help: "Closed trades by result (win|loss)"},
		[]string{"result"},
	)

	// mtxExitReasons counts exit-ladder rule firings (see rules.go's
	// ExitLadder), labeled by rule name so a dashboard can see which
	// trigger is actually closing positions.
	mtxExitReasons = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bot_exit_reasons_total", Help: "Exit-ladder rule firings by reason"},
		[]string{"reason"},
	)

	mtxMarginPcnt = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "bot_margin_pcnt", Help: "Margin percent of the currently open position, 0 when flat"},
	)

	mtxSmartSwitches = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "bot_smart_switches_total", Help: "Number of granularity smart-switches performed"},
	)

	mtxTrailingBuyActive = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "bot_trailing_buy_active", Help: "1 while a trailing-buy chase is armed, else 0"},
	)

	mtxTrailingSellActive = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "bot_trailing_sell_active", Help: "1 while a trailing-sell chase is armed, else 0"},
	)

	// mtxTickDuration is a SUPPLEMENT enriched from SynapseStrike's
	// TraderCycleDuration histogram — absent here, useful
	// here to catch an exchange adapter silently slowing the loop down.
	mtxTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_tick_duration_seconds",
			Help:    "Wall time of one scheduler tick",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
)

func init() {
	prometheus.MustRegister(mtxOrders, mtxDecisions, mtxEquity, mtxTrades, mtxExitReasons)
	prometheus.MustRegister(mtxMarginPcnt, mtxSmartSwitches, mtxTrailingBuyActive, mtxTrailingSellActive)
	prometheus.MustRegister(mtxTickDuration)
}

func IncOrder(mode string, side OrderSide)  { mtxOrders.WithLabelValues(mode, string(side)).Inc() }
func IncDecision(signal Signal)             { mtxDecisions.WithLabelValues(signal.String()).Inc() }
func SetEquityUSD(v float64)                { mtxEquity.Set(v) }
func IncTrade(win bool) {
	if win {
		mtxTrades.WithLabelValues("win").Inc()
		return
	}
	mtxTrades.WithLabelValues("loss").Inc()
}
func IncExitReason(reason string)    { mtxExitReasons.WithLabelValues(reason).Inc() }
func SetMarginPcnt(v float64)        { mtxMarginPcnt.Set(v) }
func IncSmartSwitch()                { mtxSmartSwitches.Inc() }
func SetTrailingBuyActive(active bool) {
	if active {
		mtxTrailingBuyActive.Set(1)
		return
	}
	mtxTrailingBuyActive.Set(0)
}
func SetTrailingSellActive(active bool) {
	if active {
		mtxTrailingSellActive.Set(1)
		return
	}
	mtxTrailingSellActive.Set(0)
}
func ObserveTickDuration(seconds float64) { mtxTickDuration.Observe(seconds) }
