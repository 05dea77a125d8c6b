// FILE: trailing.go
// Package main – the trailing-buy and trailing-sell sub-machines. Both
// are tagged-variant state machines armed by a primary BUY/SELL signal:
// instead of acting immediately, the bot "chases" price for a configured
// percent before filling, with an immediate-fill shortcut and a bailout
// guard against a runaway move.
//
// Grounded on step.go's PendingOpen/reprice-loop shape (the pattern of
// tracking a reference price and rechecking it every tick rather than
// firing once); the exact percent thresholds and the fluctuation-band
// bailout come from check_trailing_buy/check_trailing_sell.
package main

// fluctuationBand is the 0.9 factor of the trailing buy: it fires once
// price recovers TrailingBuyPcnt*fluctuationBand percent off its low, and
// the trail is abandoned once price runs TrailingBuyPcnt*fluctuationBand*10
// percent above the arm price (9% for a TrailingBuyPcnt of 1) rather than
// chasing a runaway move indefinitely. The trailing sell does not use it.
const fluctuationBand = 0.9

// TrailingBuyState tracks an in-progress trailing buy: armed the tick a
// primary BUY signal fires with cfg.TrailingBuyPcnt > 0, it watches the
// lowest price seen since arming and fires once price recovers by
// TrailingBuyPcnt*fluctuationBand off that low (or immediately if it jumps
// TrailingBuyImmediatePcnt off the arm price).
type TrailingBuyState struct {
	ArmPrice float64 // price at the moment the primary BUY signal fired
	Low      float64 // lowest price observed since arming
}

// StepTrailingBuy advances the trailing-buy machine by one tick. It
// returns (fire=true) when the position should actually be opened at
// price, or (cancel=true) when the bailout band was breached and the
// trail should be abandoned (no buy this cycle).
func StepTrailingBuy(st *TrailingBuyState, price float64, cfg Config) (fire, cancel bool) {
	if st == nil {
		return false, false
	}
	if price < st.Low || st.Low == 0 {
		st.Low = price
	}

	if cfg.TrailingBuyImmediatePcnt != nil {
		if ChangePcnt(st.ArmPrice, price) >= *cfg.TrailingBuyImmediatePcnt {
			return true, false
		}
	}

	// Bailout: price ran away upward before ever pulling back — chasing it
	// further would mean buying well above the signal price.
	if ChangePcnt(st.ArmPrice, price) >= cfg.TrailingBuyPcnt*fluctuationBand*10 {
		return false, true
	}

	recovery := ChangePcnt(st.Low, price)
	threshold := cfg.TrailingBuyPcnt * fluctuationBand
	if cfg.TrailingBuyPcnt > 0 && recovery >= threshold {
		return true, false
	}
	return false, false
}

// TrailingSellState mirrors TrailingBuyState for the sell side: armed
// when a primary SELL/exit signal fires, it watches the highest price
// since arming and fires once price falls back by TrailingSellPcnt off
// that high (or immediately on a TrailingSellImmediatePcnt drop, or as a
// bailout once it falls TrailingSellBailoutPcnt below the arm price,
// whatever high it reached before).
type TrailingSellState struct {
	ArmPrice float64
	High     float64
}

// StepTrailingSell advances the trailing-sell machine by one tick,
// returning fire=true when the position should be closed at price.
func StepTrailingSell(st *TrailingSellState, price float64, cfg Config) (fire bool) {
	if st == nil {
		return false
	}
	if price > st.High || st.High == 0 {
		st.High = price
	}

	if cfg.TrailingSellImmediatePcnt != nil {
		if ChangePcnt(st.ArmPrice, price) <= -*cfg.TrailingSellImmediatePcnt {
			return true
		}
	}
	if cfg.TrailingSellBailoutPcnt != nil {
		if ChangePcnt(st.ArmPrice, price) <= -*cfg.TrailingSellBailoutPcnt {
			return true
		}
	}

	drop := ChangePcnt(st.High, price)
	if cfg.TrailingSellPcnt > 0 && drop <= -cfg.TrailingSellPcnt {
		return true
	}
	return false
}
