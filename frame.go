// FILE: frame.go
// Package main – assembles the per-tick indicator frame: every column
// the indicator-frame names, computed once per tick from the
// candle series and handed to the strategy engine as a single read-only
// value (strategy.go never recomputes an indicator itself).
package main

// IndicatorFrame is the struct-of-slices companion to a Frame:
// one aligned slice per indicator column, index-compatible with the
// Candle slice it was computed from.
type IndicatorFrame struct {
	EMA12, EMA26, EMA50, EMA200 []float64
	SMA50, SMA200               []float64
	MACD, MACDSignal, MACDHist  []float64
	RSI14                       []float64
	OBV, OBVPercentChange       []float64
	ElderRayBull, ElderRayBear  []float64
	EriBuy, EriSell             []bool
	GoldenCross                 []bool
	FBB                         FBB
	Patterns                    Patterns

	// Cross-over flags: true only on the row the crossing
	// happens, in the direction named.
	EMA12CrossAboveEMA26 []bool
	EMA12CrossBelowEMA26 []bool
	MACDCrossAboveSignal []bool
	MACDCrossBelowSignal []bool
}

// BuildIndicatorFrame computes every indicator column over c in a single
// pass per indicator. simRampUp controls the golden-cross ramp-up rule
// used while a simulation's lookback window is still shorter than 200
// candles; it is false for live trading.
func BuildIndicatorFrame(c []Candle, simRampUp bool) (*IndicatorFrame, error) {
	if len(c) < 5 {
		return nil, &SeriesTooShortError{Indicator: "frame", Need: 5, Have: len(c)}
	}
	closes := make([]float64, len(c))
	for i := range c {
		closes[i] = c[i].Close
	}

	fr := &IndicatorFrame{}
	fr.EMA12 = EMA(closes, 12)
	fr.EMA26 = EMA(closes, 26)
	fr.EMA50 = EMA(closes, 50)
	fr.EMA200 = EMA(closes, 200)
	fr.SMA50 = SMA(c, 50)
	fr.SMA200 = SMA(c, 200)
	fr.MACD, fr.MACDSignal, fr.MACDHist = MACD(closes, 12, 26, 9)
	fr.RSI14 = RSI(c, 14)
	fr.OBV = OBV(c)
	fr.OBVPercentChange = OBVPercentChange(fr.OBV)
	fr.ElderRayBull, fr.ElderRayBear = ElderRay(c, EMA(closes, 13))
	fr.EriBuy, fr.EriSell = EriSignals(fr.ElderRayBull, fr.ElderRayBear)
	fr.GoldenCross = GoldenCross(fr.SMA50, fr.SMA200, simRampUp)
	fr.FBB = ComputeFBB(c)
	fr.Patterns = ComputePatterns(c)

	emaGT := GTBool(fr.EMA12, fr.EMA26)
	fr.EMA12CrossAboveEMA26, fr.EMA12CrossBelowEMA26 = CrossOverBool(emaGT)
	macdGT := GTBool(fr.MACD, fr.MACDSignal)
	fr.MACDCrossAboveSignal, fr.MACDCrossBelowSignal = CrossOverBool(macdGT)

	return fr, nil
}

// Last returns the index of the most recent row, or -1 if the frame is
// empty; a convenience used throughout the strategy/rules code which
// only ever reasons about "the last row" of a frame.
func (fr *IndicatorFrame) Last(c []Candle) int {
	return len(c) - 1
}
