package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mkCandles3(highs, closes []float64) []Candle {
	base := time.Now().Add(-3 * time.Hour)
	c := make([]Candle, len(closes))
	for i := range closes {
		c[i] = Candle{Time: base.Add(time.Duration(i) * time.Hour), High: highs[i], Low: closes[i], Open: closes[i], Close: closes[i], Volume: 1}
	}
	return c
}

func baseFrame(n int) *IndicatorFrame {
	return &IndicatorFrame{
		EMA12:                make([]float64, n),
		EMA26:                make([]float64, n),
		MACD:                 make([]float64, n),
		MACDSignal:           make([]float64, n),
		OBVPercentChange:     make([]float64, n),
		EriBuy:               make([]bool, n),
		EriSell:              make([]bool, n),
		GoldenCross:          make([]bool, n),
		EMA12CrossAboveEMA26: make([]bool, n),
		EMA12CrossBelowEMA26: make([]bool, n),
		MACDCrossAboveSignal: make([]bool, n),
		MACDCrossBelowSignal: make([]bool, n),
	}
}

func TestDecideNotEnoughData(t *testing.T) {
	c := mkCandles3([]float64{100}, []float64{100})
	d := Decide(c, baseFrame(1), loadDefaultConfig())
	assert.Equal(t, Wait, d.Signal)
	assert.Equal(t, "not_enough_data", d.Reason)
}

func TestDecideBuyOnEMAPath(t *testing.T) {
	c := mkCandles3([]float64{100, 101, 102}, []float64{100, 101, 102})
	fr := baseFrame(3)
	fr.EMA12CrossAboveEMA26[2] = true
	fr.MACD[2] = 1
	fr.MACDSignal[2] = 0
	fr.OBVPercentChange[2] = 1
	fr.EriBuy[2] = true
	fr.GoldenCross[2] = true

	cfg := loadDefaultConfig()
	cfg.DisableBuyMACD = true

	d := Decide(c, fr, cfg)
	assert.Equal(t, Buy, d.Signal)
	assert.True(t, d.EMAPathConfirmed)
	assert.False(t, d.BuyNearHighVeto)
}

func TestDecideBuyNearHighVeto(t *testing.T) {
	c := mkCandles3([]float64{100, 101, 102}, []float64{100, 101, 102})
	fr := baseFrame(3)
	fr.EMA12CrossAboveEMA26[2] = true
	fr.MACD[2] = 1
	fr.MACDSignal[2] = 0
	fr.OBVPercentChange[2] = 1
	fr.EriBuy[2] = true
	fr.GoldenCross[2] = true

	cfg := loadDefaultConfig()
	cfg.DisableBuyMACD = true
	cfg.DisableBuyNearHigh = true
	cfg.NoBuyNearHighPcnt = 100 // any price counts as "near" the recent high

	d := Decide(c, fr, cfg)
	assert.Equal(t, Wait, d.Signal)
	assert.Equal(t, "buy_suppressed_near_high", d.Reason)
	assert.True(t, d.BuyNearHighVeto)
}

func TestDecideSellOnEMACrossDown(t *testing.T) {
	c := mkCandles3([]float64{100, 101, 102}, []float64{100, 101, 90})
	fr := baseFrame(3)
	fr.EMA12CrossBelowEMA26[2] = true

	d := Decide(c, fr, loadDefaultConfig())
	assert.Equal(t, Sell, d.Signal)
}

func TestStepStrategyReturnsBuyWithoutOpeningPosition(t *testing.T) {
	c := mkCandles3([]float64{100, 101, 102}, []float64{100, 101, 102})
	fr := baseFrame(3)
	fr.EMA12CrossAboveEMA26[2] = true
	fr.MACD[2] = 1
	fr.MACDSignal[2] = 0
	fr.OBVPercentChange[2] = 1
	fr.EriBuy[2] = true
	fr.GoldenCross[2] = true

	cfg := loadDefaultConfig()
	cfg.DisableBuyMACD = true

	var pos Position
	action, _ := StepStrategy(c, fr, &pos, cfg, 0)
	assert.Equal(t, ActionBuy, action)
	assert.False(t, pos.InPosition) // StepStrategy signals the buy; the caller opens the position
}

func TestStepStrategyArmsTrailingBuyInsteadOfFiring(t *testing.T) {
	c := mkCandles3([]float64{100, 101, 102}, []float64{100, 101, 102})
	fr := baseFrame(3)
	fr.EMA12CrossAboveEMA26[2] = true
	fr.MACD[2] = 1
	fr.MACDSignal[2] = 0
	fr.OBVPercentChange[2] = 1
	fr.EriBuy[2] = true
	fr.GoldenCross[2] = true

	cfg := loadDefaultConfig()
	cfg.DisableBuyMACD = true
	cfg.TrailingBuyPcnt = 1.0

	var pos Position
	action, reason := StepStrategy(c, fr, &pos, cfg, 0)
	assert.Equal(t, ActionWait, action)
	assert.Equal(t, "trailing_buy_armed", reason)
	assert.NotNil(t, pos.TrailingBuy)
}

func TestStepStrategySellsOnExitLadderFire(t *testing.T) {
	c := mkCandles3([]float64{100, 101, 100}, []float64{100, 101, 100})
	fr := baseFrame(3)

	cfg := loadDefaultConfig()
	cfg.PreventLoss = true // trigger=2.0, margin=1.0 from defaults

	var pos Position
	pos.Open(100, 1, 0, time.Now())
	pos.PreventLossActivated = true // simulate the latch already armed from a prior tick

	action, reason := StepStrategy(c, fr, &pos, cfg, 0)
	assert.Equal(t, ActionSell, action)
	assert.Equal(t, "prevent_loss", reason)
	assert.False(t, pos.InPosition)
}
