// FILE: position.go
// Package main – the bot's position state. This replaces the
// the prior multi-lot/pyramiding Position in trader.go with a
// single-last-buy-record model: at most one open position per market,
// tracked with enough fee/peak-price history to drive the exit-trigger
// ladder in rules.go.
package main

import "time"

// LastAction mirrors the 3-way decision the strategy engine can reach.
type LastAction string

const (
	ActionWait LastAction = "WAIT"
	ActionBuy  LastAction = "BUY"
	ActionSell LastAction = "SELL"
)

// Position is the bot's mutable trading state, persisted across ticks (and,
// if PersistState is set, across restarts — see trader.go saveState/loadState).
type Position struct {
	InPosition bool

	OpenPrice float64   // fill price of the last BUY
	Size      float64   // base-currency size currently held
	OpenTime  time.Time
	EntryFeeRate float64 // taker fee rate charged on entry, snapshotted at buy time

	BuyHigh float64 // highest Close observed since the position opened (ratchet high)

	// FibLow/FibHigh are the Fibonacci retracement bracket computed once
	// at BUY time from the entry candles, anchored on the fill price.
	// The fibonacci-floor failsafe (rules.go) gates on FibLow as a fixed
	// floor for the life of the position, not recomputed per tick.
	FibLow  float64
	FibHigh float64

	// PreventLoss is a two-phase latch: once triggered
	// (margin rose above PreventLossTrigger percent) it stays armed and
	// fires a SELL the first time margin falls back to PreventLossMargin
	// percent or below, even if margin never again reaches the trigger.
	PreventLossActivated bool

	// TrailingStopActive/TrailingStopPrice hold the ratcheted trailing
	// stop-loss level once it has been armed.
	TrailingStopActive bool
	TrailingStopPrice  float64

	LastAction LastAction

	// Trailing buy/sell sub-machine state, nil when idle.
	TrailingBuy  *TrailingBuyState
	TrailingSell *TrailingSellState
}

// Reset clears the position back to flat after a completed SELL.
func (p *Position) Reset() {
	*p = Position{LastAction: ActionSell}
}

// Open records a new BUY fill.
func (p *Position) Open(price, size, feeRate float64, at time.Time) {
	p.InPosition = true
	p.OpenPrice = price
	p.Size = size
	p.OpenTime = at
	p.EntryFeeRate = feeRate
	p.BuyHigh = price
	p.PreventLossActivated = false
	p.TrailingStopActive = false
	p.TrailingStopPrice = 0
	p.FibLow = 0
	p.FibHigh = 0
	p.LastAction = ActionBuy
}

// SetFibLevels records the Fibonacci retracement bracket computed at
// entry; called once, right after Open, from the candles available at
// fill time.
func (p *Position) SetFibLevels(low, high float64) {
	p.FibLow = low
	p.FibHigh = high
}

// UpdateBuyHigh ratchets the high-water mark used by the trailing
// stop-loss and change_pcnt_from_buy_high.
func (p *Position) UpdateBuyHigh(price float64) {
	if price > p.BuyHigh {
		p.BuyHigh = price
	}
}
