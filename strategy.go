// FILE: strategy.go
// Package main – the primary BUY/SELL/WAIT strategy engine: the
// buy-near-high veto, the two BUY confirmation paths (EMA-cross-then-
// MACD-confirm, MACD-cross-then-EMA-confirm), their OBV/Elder-Ray/
// bull-regime qualifiers, and the orchestration that wires the exit
// ladder (rules.go) and trailing buy/sell sub-machine (trailing.go)
// into one per-tick Decision.
//
// Grounded on the prior decide() cross-pattern (current-vs-previous row
// comparison producing named boolean gates, folded into the
// Decision.Reason string for observability) generalized from MA-filter/
// micro-model gates to indicator-frame gates; the ML micro-model itself
// is dropped (see DESIGN.md).
package main

import "fmt"

// Signal is the high-level intent the strategy engine reaches each tick.
type Signal int

const (
	Wait Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "WAIT"
	}
}

// SignalToSide converts the intent into a broker side; callers must
// check Signal != Wait before using this.
func (s Signal) SignalToSide() OrderSide {
	if s == Sell {
		return SideSell
	}
	return SideBuy
}

// Decision captures what the strategy engine decided and why.
type Decision struct {
	Signal Signal
	Reason string

	BuyNearHighVeto bool
	EMAPathConfirmed  bool
	MACDPathConfirmed bool
	OBVQualified      bool
	ElderRayQualified bool
	BullRegime        bool
}

// Decide evaluates the primary buy/sell rules (this rule) over the
// last row of fr/c. It does NOT consult Position or the exit ladder —
// see StepStrategy for the full per-tick orchestration.
func Decide(c []Candle, fr *IndicatorFrame, cfg Config) Decision {
	i := len(c) - 1
	if i < 1 {
		return Decision{Signal: Wait, Reason: "not_enough_data"}
	}

	if cfg.EnableCustomStrategy {
		return CustomPointsDecision(c, fr, cfg)
	}

	price := c[i].Close
	bullRegime := !cfg.DisableBullOnly && fr.GoldenCross[i]

	// (a) buy-near-high veto: when DisableBuyNearHigh is set, never buy
	// within NoBuyNearHighPcnt of the recent high (an open design question:
	// the percent is the only threshold input).
	recentHigh := c[i].High
	for k := i; k >= 0 && k > i-20; k-- {
		if c[k].High > recentHigh {
			recentHigh = c[k].High
		}
	}
	nearHigh := cfg.DisableBuyNearHigh && recentHigh > 0 &&
		ChangePcnt(price, recentHigh) <= cfg.NoBuyNearHighPcnt

	// (b) two BUY confirmation paths.
	emaCrossUp := fr.EMA12CrossAboveEMA26[i]
	macdCrossUp := fr.MACDCrossAboveSignal[i]
	macdConfirm := fr.MACD[i] > fr.MACDSignal[i]
	emaConfirm := fr.EMA12[i] > fr.EMA26[i]

	emaPath := !cfg.DisableBuyEMA && emaCrossUp && macdConfirm
	macdPath := !cfg.DisableBuyMACD && macdCrossUp && emaConfirm

	obvOK := cfg.DisableBuyOBV || fr.OBVPercentChange[i] > 0
	eriOK := cfg.DisableBuyElderRay || fr.EriBuy[i]

	d := Decision{
		BuyNearHighVeto:   nearHigh,
		EMAPathConfirmed:  emaPath,
		MACDPathConfirmed: macdPath,
		OBVQualified:      obvOK,
		ElderRayQualified: eriOK,
		BullRegime:        bullRegime,
	}

	buySignal := (emaPath || macdPath) && obvOK && eriOK && (!bullRequired(cfg) || bullRegime)
	if buySignal && !nearHigh {
		d.Signal = Buy
		d.Reason = fmt.Sprintf("buy: ema_path=%v macd_path=%v obv_ok=%v eri_ok=%v bull=%v", emaPath, macdPath, obvOK, eriOK, bullRegime)
		return d
	}
	if buySignal && nearHigh {
		d.Signal = Wait
		d.Reason = "buy_suppressed_near_high"
		return d
	}

	// Primary SELL: an EMA12/EMA26 cross-down or a MACD/signal cross-down
	// on its own; unlike the BUY paths, neither needs a confirming
	// indicator.
	emaCrossDown := fr.EMA12CrossBelowEMA26[i]
	macdCrossDown := fr.MACDCrossBelowSignal[i]
	if emaCrossDown || macdCrossDown {
		d.Signal = Sell
		d.Reason = fmt.Sprintf("sell: ema_cross_down=%v macd_cross_down=%v", emaCrossDown, macdCrossDown)
		return d
	}

	d.Signal = Wait
	d.Reason = "no_signal"
	return d
}

func bullRequired(cfg Config) bool { return !cfg.DisableBullOnly }

// StepStrategy is the full per-tick decision: primary signal, trailing
// buy/sell arming and chasing, and — when in a position — the exit
// ladder. It mutates pos in place (latches, trailing state, and the reset
// to flat on a SELL; opening the position on a BUY is left to the caller)
// and returns the action actually taken this tick (which may differ
// from the primary Decision.Signal, e.g. a BUY signal that is still
// chasing a trailing-buy entry).
func StepStrategy(c []Candle, fr *IndicatorFrame, pos *Position, cfg Config, feeRate float64) (action LastAction, reason string) {
	i := len(c) - 1
	price := c[i].Close
	primary := Decide(c, fr, cfg)

	if pos.InPosition {
		pos.UpdateBuyHigh(price)
		quote := QuoteSell(*pos, price, feeRate)
		ctx := ExitContext{Pos: pos, Price: price, Cfg: cfg, Quote: quote, Frame: fr, Idx: i, Candles: c}

		if pos.TrailingSell != nil {
			if StepTrailingSell(pos.TrailingSell, price, cfg) {
				pos.TrailingSell = nil
				pos.Reset()
				return ActionSell, "trailing_sell_filled"
			}
			return ActionWait, "trailing_sell_chasing"
		}

		if fire, why := EvaluateExitLadder(ctx); fire {
			if cfg.TrailingSellPcnt > 0 {
				pos.TrailingSell = &TrailingSellState{ArmPrice: price, High: price}
				return ActionWait, "trailing_sell_armed:" + why
			}
			pos.Reset()
			return ActionSell, why
		}
		if primary.Signal == Sell {
			if cfg.TrailingSellPcnt > 0 {
				pos.TrailingSell = &TrailingSellState{ArmPrice: price, High: price}
				return ActionWait, "trailing_sell_armed:primary"
			}
			pos.Reset()
			return ActionSell, "primary_sell"
		}
		return ActionWait, "hold"
	}

	// Flat: only a BUY signal (primary or a completing trailing-buy chase)
	// can act.
	if pos.TrailingBuy != nil {
		if fire, cancel := StepTrailingBuy(pos.TrailingBuy, price, cfg); fire {
			pos.TrailingBuy = nil
			return ActionBuy, "trailing_buy_filled"
		} else if cancel {
			pos.TrailingBuy = nil
			return ActionWait, "trailing_buy_bailout"
		}
		return ActionWait, "trailing_buy_chasing"
	}
	if primary.Signal == Buy {
		if cfg.TrailingBuyPcnt > 0 {
			pos.TrailingBuy = &TrailingBuyState{ArmPrice: price, Low: price}
			return ActionWait, "trailing_buy_armed"
		}
		return ActionBuy, primary.Reason
	}
	return ActionWait, primary.Reason
}
