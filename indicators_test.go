package main

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func closesToCandles(closes []float64) []Candle {
	base := time.Now().Add(-time.Duration(len(closes)) * time.Hour)
	c := make([]Candle, len(closes))
	for i, v := range closes {
		c[i] = Candle{Time: base.Add(time.Duration(i) * time.Hour), Open: v, High: v, Low: v, Close: v, Volume: 10}
	}
	return c
}

func TestSMAPrefixIsNaNThenAverages(t *testing.T) {
	c := closesToCandles([]float64{1, 2, 3, 4, 5})
	out := SMA(c, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 0.0001) // (1+2+3)/3
	assert.InDelta(t, 3.0, out[3], 0.0001) // (2+3+4)/3
	assert.InDelta(t, 4.0, out[4], 0.0001) // (3+4+5)/3
}

func TestSMACheckedRejectsOutOfRangePeriod(t *testing.T) {
	c := closesToCandles([]float64{1, 2, 3})
	_, err := SMAChecked(c, 2)
	assert.Error(t, err)
	var rangeErr *PeriodOutOfRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestSMACheckedRejectsShortSeries(t *testing.T) {
	c := closesToCandles([]float64{1, 2, 3})
	_, err := SMAChecked(c, 5)
	assert.Error(t, err)
	var shortErr *SeriesTooShortError
	assert.ErrorAs(t, err, &shortErr)
}

func TestEMASeededBySMAThenRecurses(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	out := EMA(closes, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 0.0001) // seed: (1+2+3)/3
	k := 2.0 / 4.0
	want3 := closes[3]*k + out[2]*(1-k)
	assert.InDelta(t, want3, out[3], 0.0001)
}

func TestRSIDefaultsTo50BeforeFullWindow(t *testing.T) {
	closes := []float64{100, 101, 102, 103}
	c := closesToCandles(closes)
	out := RSI(c, 14)
	for i := range out {
		assert.Equal(t, 50.0, out[i])
	}
}

func TestRSIAllGainsReaches100(t *testing.T) {
	closes := make([]float64, 5)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	c := closesToCandles(closes)
	out := RSI(c, 3)
	assert.Equal(t, 100.0, out[3])
	assert.Equal(t, 100.0, out[4])
}

func TestOBVAccumulatesSignedVolume(t *testing.T) {
	c := closesToCandles([]float64{100, 101, 100, 100})
	out := OBV(c)
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 10.0, out[1])  // up close: +volume
	assert.Equal(t, 0.0, out[2])   // down close: -volume
	assert.Equal(t, 0.0, out[3])   // flat close: unchanged
}

func TestOBVPercentChangeZeroOnFlatPriorOBV(t *testing.T) {
	obv := []float64{0, 0, 10}
	out := OBVPercentChange(obv)
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 0.0, out[1]) // guarded: obv[i-1] == 0
	assert.Equal(t, 0.0, out[2]) // guarded: obv[1] == 0 too
}

func TestGTBoolAndCrossOverBool(t *testing.T) {
	a := []float64{1, 2, 3, 1}
	b := []float64{2, 1, 1, 2}
	gt := GTBool(a, b)
	assert.Equal(t, []bool{false, true, true, false}, gt)

	up, down := CrossOverBool(gt)
	assert.Equal(t, []bool{false, true, false, false}, up)
	assert.Equal(t, []bool{false, false, false, true}, down)
}
