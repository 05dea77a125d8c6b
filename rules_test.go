package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newCandles(closes []float64) []Candle {
	c := make([]Candle, len(closes))
	base := time.Now().Add(-time.Duration(len(closes)) * time.Hour)
	for i, p := range closes {
		c[i] = Candle{Time: base.Add(time.Duration(i) * time.Hour), Open: p, High: p, Low: p, Close: p, Volume: 1}
	}
	return c
}

func TestPreventLossLatchFiresOnRetrace(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.PreventLoss = true
	cfg.PreventLossTrigger = 2.0
	cfg.PreventLossMargin = 1.0

	var pos Position
	pos.Open(100, 1, 0.0, time.Now())

	// Margin clears the trigger: latch arms, no fire yet.
	quote := QuoteSell(pos, 103, 0.0)
	ctx := ExitContext{Pos: &pos, Price: 103, Cfg: cfg, Quote: quote}
	fire, _ := EvaluateExitLadder(ctx)
	assert.False(t, fire)
	assert.True(t, pos.PreventLossActivated)

	// Price retraces to within PreventLossMargin: fires.
	quote = QuoteSell(pos, 101, 0.0)
	ctx = ExitContext{Pos: &pos, Price: 101, Cfg: cfg, Quote: quote}
	fire, reason := EvaluateExitLadder(ctx)
	assert.True(t, fire)
	assert.Equal(t, "prevent_loss", reason)
}

func TestNoSellAtLossVetoSuppressesNegativeMarginSell(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.SellAtLoss = false

	var pos Position
	pos.Open(100, 1, 0.0, time.Now())
	quote := QuoteSell(pos, 90, 0.0)
	ctx := ExitContext{Pos: &pos, Price: 90, Cfg: cfg, Quote: quote}

	fire, reason := EvaluateExitLadder(ctx)
	assert.False(t, fire)
	assert.Equal(t, "no_sell_at_loss", reason)
}

func TestNoSellBandSuppressesNearBreakeven(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.NoSellMinPcnt = -0.5
	cfg.NoSellMaxPcnt = 0.5

	var pos Position
	pos.Open(100, 1, 0.0, time.Now())
	quote := QuoteSell(pos, 100.2, 0.0)
	ctx := ExitContext{Pos: &pos, Price: 100.2, Cfg: cfg, Quote: quote}

	fire, reason := EvaluateExitLadder(ctx)
	assert.False(t, fire)
	assert.Equal(t, "no_sell_band", reason)
}

func TestTrailingStopLossFiresOnceArmedAndBreached(t *testing.T) {
	cfg := loadDefaultConfig()
	trigger := 2.0
	distance := 1.0
	cfg.TrailingStopLossTrigger = &trigger
	cfg.TrailingStopLoss = &distance

	var pos Position
	pos.Open(100, 1, 0.0, time.Now())
	pos.UpdateBuyHigh(103)

	// Arm: margin clears the trigger at 103.
	quote := QuoteSell(pos, 103, 0.0)
	ctx := ExitContext{Pos: &pos, Price: 103, Cfg: cfg, Quote: quote}
	fire, _ := EvaluateExitLadder(ctx)
	assert.False(t, fire)
	assert.True(t, pos.TrailingStopActive)

	// Price falls through the ratcheted stop (103 * 0.99 = 101.97): fires.
	quote = QuoteSell(pos, 101.5, 0.0)
	ctx = ExitContext{Pos: &pos, Price: 101.5, Cfg: cfg, Quote: quote}
	fire, reason := EvaluateExitLadder(ctx)
	assert.True(t, fire)
	assert.Equal(t, "trailing_stop_loss", reason)
}

func TestPreventLossZeroTriggerFiresWithoutPriorArming(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.PreventLoss = true
	cfg.PreventLossTrigger = 0
	cfg.PreventLossMargin = 1.0

	var pos Position
	pos.Open(100, 1, 0.0, time.Now())

	// Price never cleared any run-up; a zero trigger still fires once
	// margin retraces to the floor.
	quote := QuoteSell(pos, 100.5, 0.0)
	ctx := ExitContext{Pos: &pos, Price: 100.5, Cfg: cfg, Quote: quote}
	fire, reason := EvaluateExitLadder(ctx)
	assert.True(t, fire)
	assert.Equal(t, "prevent_loss", reason)
	assert.False(t, pos.PreventLossActivated)
}

func TestLowerFailsafeRequiresSellAtLoss(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.SellAtLoss = false
	lower := -5.0
	cfg.SellLowerPcnt = &lower

	var pos Position
	pos.Open(100, 1, 0.0, time.Now())
	quote := QuoteSell(pos, 90, 0.0)
	ctx := ExitContext{Pos: &pos, Price: 90, Cfg: cfg, Quote: quote}

	// no_sell_at_loss vetoes first since SellAtLoss is false and margin < 0;
	// lower_failsafe never gets a chance to fire either way.
	fire, reason := EvaluateExitLadder(ctx)
	assert.False(t, fire)
	assert.Equal(t, "no_sell_at_loss", reason)
}

func TestFibonacciFloorFailsafeUsesStoredFibLow(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.SellAtLoss = true

	var pos Position
	pos.Open(100, 1, 0.0, time.Now())
	pos.SetFibLevels(95, 105)

	quote := QuoteSell(pos, 94, 0.0)
	ctx := ExitContext{Pos: &pos, Price: 94, Cfg: cfg, Quote: quote}
	fire, reason := EvaluateExitLadder(ctx)
	assert.True(t, fire)
	assert.Equal(t, "fibonacci_floor_failsafe", reason)
}

func TestFibonacciFloorFailsafeDisabledWhenSellLowerPcntSet(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.SellAtLoss = true
	lower := -50.0
	cfg.SellLowerPcnt = &lower

	var pos Position
	pos.Open(100, 1, 0.0, time.Now())
	pos.SetFibLevels(95, 105)

	quote := QuoteSell(pos, 94, 0.0)
	ctx := ExitContext{Pos: &pos, Price: 94, Cfg: cfg, Quote: quote}
	fire, reason := EvaluateExitLadder(ctx)
	assert.False(t, fire)
	assert.Equal(t, "none", reason)
}

func TestSellAtResistanceRequiresMinimumMargin(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.SellAtResistance = true

	var pos Position
	pos.Open(100, 1, 0.0, time.Now())
	// Margin is under 2%, so the rule must not fire even with a high price.
	quote := QuoteSell(pos, 101, 0.0)
	fr := &IndicatorFrame{FBB: FBB{Upper: map[float64][]float64{1.0: {90}}}}
	ctx := ExitContext{Pos: &pos, Price: 101, Cfg: cfg, Quote: quote, Frame: fr, Idx: 0}

	fire, reason := EvaluateExitLadder(ctx)
	assert.False(t, fire)
	assert.Equal(t, "none", reason)
}

func TestExitLadderNoneWhenNothingConfigured(t *testing.T) {
	cfg := loadDefaultConfig()
	var pos Position
	pos.Open(100, 1, 0.0, time.Now())
	quote := QuoteSell(pos, 105, 0.0)
	ctx := ExitContext{Pos: &pos, Price: 105, Cfg: cfg, Quote: quote}

	fire, reason := EvaluateExitLadder(ctx)
	assert.False(t, fire)
	assert.Equal(t, "none", reason)
}
