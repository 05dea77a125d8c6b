package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildIndicatorFrameRejectsShortSeries(t *testing.T) {
	c := closesToCandles([]float64{1, 2, 3})
	_, err := BuildIndicatorFrame(c, false)
	assert.Error(t, err)
	var shortErr *SeriesTooShortError
	assert.ErrorAs(t, err, &shortErr)
}

func TestBuildIndicatorFrameProducesAlignedColumns(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	c := closesToCandles(closes)

	fr, err := BuildIndicatorFrame(c, true)
	assert.NoError(t, err)
	assert.Len(t, fr.EMA12, len(c))
	assert.Len(t, fr.MACD, len(c))
	assert.Len(t, fr.RSI14, len(c))
	assert.Len(t, fr.EMA12CrossAboveEMA26, len(c))
	assert.Equal(t, len(c)-1, fr.Last(c))
}
