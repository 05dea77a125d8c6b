package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// channelCandles builds a 15-candle series with a constant daily range
// (High-Low) and a constant per-bar drift in the High/Low/Close channel,
// so ADX/+DI/-DI converge to a single clean value by the 14th bar
// (ADX's minimum window) instead of a noisy one that would need the Go
// toolchain to pin down.
func channelCandles(n int, up bool) []Candle {
	c := make([]Candle, n)
	base := time.Now().Add(-time.Duration(n) * time.Hour)
	for i := 0; i < n; i++ {
		drift := float64(i)
		if !up {
			drift = -drift
		}
		c[i] = Candle{
			Time: base.Add(time.Duration(i) * time.Hour),
			High: 110 + drift, Low: 100 + drift, Close: 105 + drift, Open: 105 + drift,
			Volume: 1,
		}
	}
	return c
}

func TestCustomPointsDecisionNotEnoughData(t *testing.T) {
	c := channelCandles(1, true)
	fr := baseFrame(1)
	d := CustomPointsDecision(c, fr, loadDefaultConfig())
	assert.Equal(t, Wait, d.Signal)
	assert.Equal(t, "not_enough_data", d.Reason)
}

// TestCustomPointsDecisionBuysOnSustainedUptrend hand-derives every
// point contribution: the +DI/-DI split on a uniform 15-bar up-channel
// gives ADX=100, +DI=10, -DI=0 at the last bar (2 buy points, 1 hit),
// and fr's RSI/MACD/OBV rows are set to a rising/above-signal/positive
// reading (RSI +2/1 hit, MACD +1, OBV +1/1 hit) — 6 points, 3 hits,
// clearing the 5-point/3-hit bar.
func TestCustomPointsDecisionBuysOnSustainedUptrend(t *testing.T) {
	c := channelCandles(15, true)
	fr := baseFrame(15)
	fr.RSI14 = make([]float64, 15)
	fr.RSI14[13], fr.RSI14[14] = 55, 60
	fr.MACD[13], fr.MACD[14] = 0.5, 1.0
	fr.MACDSignal[14] = 0
	fr.OBVPercentChange[14] = 2.0

	d := CustomPointsDecision(c, fr, loadDefaultConfig())
	assert.Equal(t, Buy, d.Signal)
}

// TestCustomPointsDecisionSellsOnSustainedDowntrend mirrors the buy
// case: a uniform down-channel gives -DI=10, +DI=0 (1 sell point), and
// fr's rows are set falling/below-threshold (RSI +1, MACD +1, OBV +1)
// for 4 sell points against the 3-point bar, with 0 buy points so the
// buy branch never has a chance to fire first.
func TestCustomPointsDecisionSellsOnSustainedDowntrend(t *testing.T) {
	c := channelCandles(15, false)
	fr := baseFrame(15)
	fr.RSI14 = make([]float64, 15)
	fr.RSI14[13], fr.RSI14[14] = 55, 50
	fr.MACD[13], fr.MACD[14] = 1.0, 0.5
	fr.MACDSignal[14] = 2.0
	fr.OBVPercentChange[14] = -1.0

	d := CustomPointsDecision(c, fr, loadDefaultConfig())
	assert.Equal(t, Sell, d.Signal)
}

func TestDecideDelegatesToCustomStrategyWhenEnabled(t *testing.T) {
	c := channelCandles(15, true)
	fr := baseFrame(15)
	fr.RSI14 = make([]float64, 15)
	fr.RSI14[13], fr.RSI14[14] = 55, 60
	fr.MACD[13], fr.MACD[14] = 0.5, 1.0
	fr.MACDSignal[14] = 0
	fr.OBVPercentChange[14] = 2.0

	cfg := loadDefaultConfig()
	cfg.EnableCustomStrategy = true

	d := Decide(c, fr, cfg)
	assert.Equal(t, Buy, d.Signal)
}
