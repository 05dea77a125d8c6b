// FILE: step.go
// Package main – the 16-step tick, extracted from the main
// loop the way this file's prior step.go separates the tick body from
// trader.go's state/record types.
//
// Ordering guarantee: within one tick, fetch → indicators →
// strategy → account action → state update → persist, strictly in that
// order; between ticks, state is monotonic except the trailing-buy/sell
// waiting-price reset and the post-SELL clear (trailing.go/position.go).
package main

import (
	"context"
	"fmt"
	"log"
	"time"
)

// tickOutcome is the scheduler's next-wake instruction: a fixed delay,
// which is zero ("immediate") only in sim-fast mode; a smart switch
// retries after smartSwitchDelay.
type tickOutcome struct {
	msg   string
	delay time.Duration
	err   error
}

const (
	reconnectDelay    = 300 * time.Second
	shortRangeDelay   = 300 * time.Second
	smartSwitchDelay  = 5 * time.Second
	liveTickDelay     = 120 * time.Second
	simSlowTickDelay  = 1 * time.Second
)

// Tick runs one iteration of the control loop at index idx (sim mode)
// or against live market data (live mode),  16 steps.
func (b *Bot) Tick(ctx context.Context, simFrame []Candle, idx int) tickOutcome {
	start := time.Now()
	defer func() { ObserveTickDuration(time.Since(start).Seconds()) }()

	// Step 1: connectivity check (live only).
	if b.cfg.Live {
		if _, err := b.broker.GetTime(ctx); err != nil {
			b.alertf("ERR connectivity check failed: %v", err)
			return tickOutcome{msg: "RECONNECT", delay: reconnectDelay, err: err}
		}
	}

	// Step 2: increment iterations.
	b.mu.Lock()
	b.iterations++
	iterations := b.iterations
	b.mu.Unlock()

	// Step 3: fetch candles.
	var candles []Candle
	gran := b.Granularity()
	if b.cfg.Live {
		end := time.Now().UTC()
		start := end.Add(-time.Duration(b.cfg.AdjustTotalPeriodsFor()*2) * time.Duration(gran.Seconds()) * time.Second)
		cs, err := b.broker.GetHistoricalData(ctx, b.cfg.Market, gran, start, end)
		if err != nil {
			return tickOutcome{msg: "RESCHEDULE", delay: reconnectDelay, err: err}
		}
		candles = cs
	} else {
		if idx < 1 || idx > len(simFrame) {
			return tickOutcome{msg: "DONE", delay: 0}
		}
		candles = simFrame[:idx]
	}
	if len(candles) == 0 {
		return tickOutcome{msg: "RESCHEDULE", delay: reconnectDelay}
	}

	// Step 4: indicator engine on a copy of the frame.
	fr, err := BuildIndicatorFrame(candles, !b.cfg.Live)
	if err != nil {
		return tickOutcome{msg: "RESCHEDULE", delay: reconnectDelay, err: err}
	}

	// Step 5: df_last row.
	last := len(candles) - 1
	if names := fr.Patterns.DetectedAt(last); len(names) > 0 {
		log.Printf("[INFO] candlestick pattern detected: %v", names)
	}

	// Step 6: smart-switch arbitration (live only).
	if b.cfg.Live && b.cfg.SmartSwitch {
		if sw, newGran := smartSwitchDecision(gran, fr, last); sw {
			b.SetGranularity(newGran)
			IncSmartSwitch()
			log.Printf("[INFO] smart-switch: %s -> %s", gran.Short(), newGran.Short())
			return tickOutcome{msg: "SMART-SWITCH", delay: smartSwitchDelay}
		}
	}

	// Step 7: length guard.
	need := b.cfg.AdjustTotalPeriodsFor()
	if len(candles) < need {
		return tickOutcome{msg: "RESCHEDULE", delay: reconnectDelay,
			err: &SeriesTooShortError{Indicator: "tick", Need: need, Have: len(candles)}}
	}

	// Step 8: current price.
	var price float64
	if b.cfg.Live {
		p, err := b.broker.GetTicker(ctx, b.cfg.Market)
		if err != nil {
			return tickOutcome{msg: "RESCHEDULE", delay: reconnectDelay, err: err}
		}
		price = p
	} else {
		price = candles[last].Close
	}
	if price < 0.0001 {
		err := &LogicInvariantBreach{Invariant: "unsuitable_price", Detail: fmt.Sprintf("price=%v", price)}
		b.alertf("ERR %v", err)
		return tickOutcome{msg: "FATAL", err: err}
	}

	b.mu.Lock()
	// Step 9: ratchet buy-high.
	if b.pos.InPosition {
		b.pos.UpdateBuyHigh(price)
	}
	feeRate := b.feeRateLocked(ctx)
	b.mu.Unlock()

	// Step 10+12: recompute margin, evaluate strategy, dispatch the action.
	// pos is snapshotted before StepStrategy runs: on a SELL path StepStrategy
	// resets b.pos to flat as a side effect, so executeSell needs the position
	// as it stood at entry (OpenPrice/Size/BuyHigh) to quote profit/margin,
	// not the zeroed position left behind afterward.
	b.mu.Lock()
	pos := b.pos
	action, reason := StepStrategy(candles, fr, &b.pos, b.cfg, feeRate)
	SetTrailingBuyActive(b.pos.TrailingBuy != nil)
	SetTrailingSellActive(b.pos.TrailingSell != nil)
	b.mu.Unlock()

	IncDecision(decisionSignalFor(action))

	// Step 11: already-processed guard.
	b.mu.Lock()
	alreadyProcessed := b.lastDFIndex == last && action == ActionWait
	b.mu.Unlock()
	if alreadyProcessed {
		log.Printf("DEBUG tick: candle %d already processed, no action", last)
	} else {
		switch action {
		case ActionBuy:
			b.executeBuy(ctx, price, reason, candles)
		case ActionSell:
			b.executeSell(ctx, price, reason, pos)
		}
	}

	// Step 13: advance ledger counters.
	b.mu.Lock()
	b.lastDFIndex = last
	b.mu.Unlock()

	// Step 14 (live): persist order tracker CSV happens inside
	// executeBuy/executeSell so the CSV row always matches the fill
	// actually recorded, live or paper.

	// Step 15 (live): poll cross-process control file.
	if b.cfg.Live {
		b.pollControlFile(ctx)
	}

	SetMarginPcnt(b.currentMarginPcnt(price, feeRate))

	// Step 16: schedule next tick.
	delay := liveTickDelay
	switch {
	case !b.cfg.Live && b.cfg.Sim == SimFast:
		delay = 0
	case !b.cfg.Live:
		delay = simSlowTickDelay
	}
	_ = iterations
	return tickOutcome{msg: string(action) + ": " + reason, delay: delay}
}

func decisionSignalFor(a LastAction) Signal {
	switch a {
	case ActionBuy:
		return Buy
	case ActionSell:
		return Sell
	default:
		return Wait
	}
}

func (b *Bot) feeRateLocked(ctx context.Context) float64 {
	fee, err := b.broker.GetTakerFee(ctx, b.cfg.Market)
	if err != nil || fee <= 0 {
		return b.cfg.TakerFeeDefault()
	}
	return fee
}

func (b *Bot) currentMarginPcnt(price, feeRate float64) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.pos.InPosition {
		return 0
	}
	return QuoteSell(b.pos, price, feeRate).MarginPcnt
}

// executeBuy computes the buy size, places the market order, and seeds
// position state.
func (b *Bot) executeBuy(ctx context.Context, price float64, reason string, candles []Candle) {
	b.mu.RLock()
	market := b.cfg.Market
	buyMax := b.cfg.BuyMaxSize
	buyPct := b.cfg.BuyPercent
	b.mu.RUnlock()

	accounts, err := b.broker.GetAccounts(ctx)
	if err != nil {
		b.alertf("ERR fetching accounts for buy: %v", err)
		return
	}
	_, quoteAsset := parseProductSymbols(market)
	var availableQuote float64
	for _, a := range accounts {
		if a.Asset == quoteAsset {
			availableQuote = a.Available
			break
		}
	}
	quoteUSD := availableQuote * (buyPct / 100.0)
	if quoteUSD > buyMax {
		quoteUSD = buyMax
	}
	if quoteUSD <= 0 {
		log.Printf("[WARN] buy signal with zero buyable quote (%s), skipping", market)
		return
	}

	order, err := b.broker.MarketBuy(ctx, market, quoteUSD)
	if err != nil {
		b.alertf("ERR market buy failed: %v", err)
		return
	}
	feeRate := b.feeRateLocked(ctx)

	fibLow, fibHigh := FibRetracementLevels(candles, &order.Price)

	b.mu.Lock()
	b.pos.Open(order.Price, order.BaseSize, feeRate, order.CreateTime)
	b.pos.SetFibLevels(fibLow, fibHigh)
	b.lastBuySize = order.BaseSize
	b.mu.Unlock()

	IncOrder(b.modeLabel(), SideBuy)
	log.Printf("[INFO] BUY %s size=%.8f price=%.2f reason=%q", market, order.BaseSize, order.Price, reason)
	b.notifier.Notify(fmt.Sprintf("BUY %s size=%.8f @ %.2f (%s)", market, order.BaseSize, order.Price, reason))

	_ = AppendOrderCSV("orders.csv", OrderRecord{
		CreatedAt: order.CreateTime, Market: market, Action: ActionBuy, Type: "market",
		Size: order.BaseSize, Value: order.QuoteSpent, Fees: order.CommissionUSD,
		Price: order.Price, Status: order.Status,
	})
}

// executeSell sells the full base balance (× sell_percent), logs the
// margin summary, and resets trailing state.
func (b *Bot) executeSell(ctx context.Context, price float64, reason string, pos Position) {
	b.mu.RLock()
	market := b.cfg.Market
	sellPct := b.cfg.SellPercent
	b.mu.RUnlock()

	accounts, err := b.broker.GetAccounts(ctx)
	if err != nil {
		b.alertf("ERR fetching accounts for sell: %v", err)
		return
	}
	baseAsset, _ := parseProductSymbols(market)
	var availableBase float64
	for _, a := range accounts {
		if a.Asset == baseAsset {
			availableBase = a.Available
			break
		}
	}
	sellSize := availableBase * (sellPct / 100.0)
	if sellSize <= 0 {
		log.Printf("[WARN] sell signal with zero sellable base (%s), skipping", market)
		return
	}

	feeRate := b.feeRateLocked(ctx)
	quote := QuoteSell(pos, price, feeRate)

	order, err := b.broker.MarketSell(ctx, market, sellSize)
	if err != nil {
		b.alertf("ERR market sell failed: %v", err)
		return
	}

	b.addDailyPnL(quote.Profit)
	b.SetEquityUSD(b.EquityUSD() + quote.Profit)

	b.mu.Lock()
	b.pos.Reset()
	b.lastSellSize = order.BaseSize
	b.mu.Unlock()

	IncOrder(b.modeLabel(), SideSell)
	IncTrade(quote.Profit > 0)
	IncExitReason(reason)
	log.Printf("[INFO] SELL %s size=%.8f price=%.2f profit=%.2f margin=%.4f%% reason=%q",
		market, order.BaseSize, order.Price, quote.Profit, quote.MarginPcnt, reason)
	b.notifier.Notify(fmt.Sprintf("SELL %s size=%.8f @ %.2f profit=%.2f (%s)",
		market, order.BaseSize, order.Price, quote.Profit, reason))

	_ = AppendOrderCSV("orders.csv", OrderRecord{
		CreatedAt: order.CreateTime, Market: market, Action: ActionSell, Type: "market",
		Size: order.BaseSize, Value: order.QuoteSpent, Fees: order.CommissionUSD,
		Price: order.Price, Status: order.Status,
	})
	_ = AppendTrackerCSV("tracker.csv", NewTrackerRecord(market, pos, order.CreateTime, order.Price, quote))
}

func (b *Bot) modeLabel() string {
	if b.cfg.DryRun {
		return "paper"
	}
	return "live"
}

func (b *Bot) alertf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[WARN] %s", msg)
	if !b.cfg.DisableTelegramErrorMsgs {
		b.notifier.Notify(msg)
	}
}
