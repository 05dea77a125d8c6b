// FILE: strategy_custom.go
// Package main – the points-based alternate strategy: RSI momentum, ADX
// trend strength, MACD momentum, OBV confirmation, a fast "MACD-leader"
// crossover, and an EMA/WMA crossover each contribute points toward a
// BUY or SELL tally; a BUY also needs a minimum number of those signals
// to have actually fired, not just enough raw points. Gated by
// cfg.EnableCustomStrategy — when set, Decide calls this instead of the
// EMA/MACD cross-over path; the exit-trigger ladder downstream is
// unaffected either way.
//
// Grounded on original_source/models/Strategy_CS.py's weighted-signal
// scoring shape (named signals each contributing points, a required-
// signal-count gate, and buy_pts/sell_pts thresholds), simplified to
// the indicators this bot already computes — no pandas-ta/ADX-DI
// dependency beyond the ADX/WMA added to indicators.go for this file.
package main

import (
	"fmt"
	"math"
)

const (
	customPtsToBuy           = 5
	customPtsToSell          = 3
	customRequiredBuySignals = 3
)

// customScore tallies the per-signal point contributions for one row.
type customScore struct {
	BuyPts, SellPts int
	RequiredBuyHits int
}

// CustomPointsDecision scores the last row of c/fr and returns the same
// Decision shape Decide uses, so StepStrategy can treat either path
// identically.
func CustomPointsDecision(c []Candle, fr *IndicatorFrame, cfg Config) Decision {
	i := len(c) - 1
	if i < 1 {
		return Decision{Signal: Wait, Reason: "not_enough_data"}
	}

	closes := closesOf(c)
	ema5 := EMA(closes, 5)
	wma5 := WMA(closes, 5)
	adx14, diPlus14, diMinus14 := ADX(c, 14)
	macdLeader, macdLeaderSignal, _ := MACD(closes, 5, 13, 5)

	var s customScore

	// RSI: buy when rising and above the midline, sell when falling.
	if fr.RSI14[i] > 50 && rising(fr.RSI14, i) {
		s.BuyPts += 2
		s.RequiredBuyHits++
	} else if falling(fr.RSI14, i) {
		s.SellPts++
	}

	// ADX/DI: buy when +DI leads -DI, extra point on a strong trend.
	if !math.IsNaN(diPlus14[i]) && diPlus14[i] > diMinus14[i] {
		s.BuyPts++
		s.RequiredBuyHits++
		if adx14[i] > 25 {
			s.BuyPts++
		}
	} else if !math.IsNaN(diMinus14[i]) && diMinus14[i] > diPlus14[i] {
		s.SellPts++
	}

	// MACD: buy when above signal and climbing, sell when falling.
	if fr.MACD[i] > fr.MACDSignal[i] && rising(fr.MACD, i) {
		s.BuyPts++
	} else if falling(fr.MACD, i) {
		s.SellPts++
	}

	// OBV: buy when volume confirms the move up, sell when it confirms down.
	if fr.OBVPercentChange[i] > 0 {
		s.BuyPts++
		s.RequiredBuyHits++
	} else if fr.OBVPercentChange[i] < 0 {
		s.SellPts++
	}

	// MACD-leader: a faster MACD pair (5/13/5) used as an early-warning signal.
	if macdLeader[i] > macdLeaderSignal[i] && rising(macdLeader, i) {
		s.BuyPts++
		s.RequiredBuyHits++
	} else if falling(macdLeader, i) {
		s.SellPts++
	}

	// EMA5/WMA5 crossover.
	if ema5[i] > wma5[i] && rising(ema5, i) {
		s.BuyPts++
		s.RequiredBuyHits++
	} else if ema5[i] < wma5[i] {
		s.SellPts++
	}

	d := Decision{}
	if s.BuyPts >= customPtsToBuy && s.RequiredBuyHits >= customRequiredBuySignals {
		d.Signal = Buy
		d.Reason = fmt.Sprintf("custom_buy: buy_pts=%d/%d hits=%d/%d", s.BuyPts, customPtsToBuy, s.RequiredBuyHits, customRequiredBuySignals)
		return d
	}
	if s.SellPts >= customPtsToSell {
		d.Signal = Sell
		d.Reason = fmt.Sprintf("custom_sell: sell_pts=%d/%d", s.SellPts, customPtsToSell)
		return d
	}
	d.Signal = Wait
	d.Reason = "custom_no_signal"
	return d
}

func rising(x []float64, i int) bool {
	return i > 0 && !math.IsNaN(x[i]) && !math.IsNaN(x[i-1]) && x[i] > x[i-1]
}

func falling(x []float64, i int) bool {
	return i > 0 && !math.IsNaN(x[i]) && !math.IsNaN(x[i-1]) && x[i] < x[i-1]
}

func closesOf(c []Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i] = c[i].Close
	}
	return out
}
