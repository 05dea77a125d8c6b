package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuoteBuyThenSellRoundTrip(t *testing.T) {
	bq := QuoteBuy(1000, 100, 0.005)
	assert.InDelta(t, 9.95, bq.BaseSize, 0.01)

	var pos Position
	pos.Open(100, bq.BaseSize, 0.005, time.Now())
	pos.UpdateBuyHigh(110)

	sq := QuoteSell(pos, 110, 0.005)
	assert.Greater(t, sq.Profit, 0.0)
	assert.InDelta(t, 9.45, sq.MarginPcnt, 0.5)
	assert.InDelta(t, 0, sq.ChangePcntFromBuyHigh, 0.001)
}

func TestQuoteSellAtLossIsNegativeMargin(t *testing.T) {
	var pos Position
	pos.Open(100, 1.0, 0.005, time.Now())
	pos.UpdateBuyHigh(100)

	sq := QuoteSell(pos, 90, 0.005)
	assert.Less(t, sq.MarginPcnt, 0.0)
}

func TestChangePcnt(t *testing.T) {
	assert.InDelta(t, 10.0, ChangePcnt(100, 110), 0.0001)
	assert.InDelta(t, -10.0, ChangePcnt(100, 90), 0.0001)
	assert.Equal(t, 0.0, ChangePcnt(0, 50))
}
