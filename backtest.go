// FILE: backtest.go
// Package main – CSV candle loader and the simulation harness.
//
// Kept: the CSV loader (loadCSV, flexible RFC3339/UNIX-seconds time
// parsing, case-insensitive headers) for feeding an offline candle file
// straight into the loop instead of an exchange. Rewritten: runBacktest
// no longer trains or walk-forwards a micro-model (ML signals are out of
// scope) — it now drives the same Bot/Tick single-position loop live
// mode uses, pre-fetching a back-paginated historical window the way
// original_source/models/PyCryptoBot.py's simulation setup does, and
// prints the buy/sell-count and compounded-margin summary at the end.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"
)

// loadCSV reads a generic candle CSV with headers:
// time|timestamp, open, high, low, close, volume
func loadCSV(path string) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []Candle
	var headers []string
	rowIdx := 0

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		row := map[string]string{}
		for j, h := range headers {
			k := strings.ToLower(strings.TrimSpace(h))
			if j < len(rec) {
				row[k] = strings.TrimSpace(rec[j])
			}
		}
		ts := first(row, "time", "timestamp")
		op := first(row, "open")
		hp := first(row, "high")
		lp := first(row, "low")
		cp := first(row, "close")
		vp := first(row, "volume", "vol")
		if ts == "" || op == "" || cp == "" {
			continue
		}
		tt, err := parseTimeFlexible(ts)
		if err != nil {
			continue
		}
		o, _ := strconv.ParseFloat(op, 64)
		h, _ := strconv.ParseFloat(hp, 64)
		l, _ := strconv.ParseFloat(lp, 64)
		c, _ := strconv.ParseFloat(cp, 64)
		v, _ := strconv.ParseFloat(vp, 64)
		out = append(out, Candle{Time: tt, Open: o, High: h, Low: l, Close: c, Volume: v})
		rowIdx++
	}

	sortCandlesAsc(out)
	return out, nil
}

// parseTimeFlexible supports RFC3339 or UNIX seconds.
func parseTimeFlexible(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time: %s", s)
}

// first returns the first non-empty value for keys in m.
func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}

// fetchSimulationWindow back-paginates from broker in 200-300 candle
// pages until it has at least `need` rows or start is reached, capped
// at 10 chained requests.
func fetchSimulationWindow(ctx context.Context, broker Broker, market string, gran Granularity, start, end time.Time, need int) ([]Candle, error) {
	const pageCandles = 250
	const maxRequests = 10

	var all []Candle
	cursor := end
	pageSpan := time.Duration(pageCandles) * time.Duration(gran.Seconds()) * time.Second

	for i := 0; i < maxRequests && len(all) < need && cursor.After(start); i++ {
		pageStart := cursor.Add(-pageSpan)
		if pageStart.Before(start) {
			pageStart = start
		}
		page, err := broker.GetHistoricalData(ctx, market, gran, pageStart, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if pageStart.Equal(start) {
			break
		}
		cursor = pageStart.Add(-time.Second)
	}
	sortCandlesAsc(all)
	return all, nil
}

// randomizedStartDate picks a uniform start within the exchange-specific
// lookback window when none is given: [now-3y, now] for
// Coinbase, [now-1y, now] for others, rounded to the hour.
func randomizedStartDate(exch Exchange, now time.Time) time.Time {
	years := 1
	if exch == ExchangeCoinbase {
		years = 3
	}
	earliest := now.AddDate(-years, 0, 0)
	span := now.Sub(earliest)
	offset := time.Duration(rand.Int63n(int64(span)))
	return earliest.Add(offset).Truncate(time.Hour)
}

// simSummary is the end-of-window report printed after a run.
type simSummary struct {
	BuyCount      int
	SellCount     int
	FirstBuySize  float64
	LastSellSize  float64
	MarginPcnt    float64
}

// runBacktest drives the same Bot/Tick loop live mode uses, sourced
// from a pre-fetched historical window, and prints the final summary.
func runBacktest(ctx context.Context, b *Bot, start, end time.Time) (simSummary, error) {
	need := b.cfg.AdjustTotalPeriodsFor()
	candles, err := fetchSimulationWindow(ctx, b.broker, b.cfg.Market, b.Granularity(), start, end, need)
	if err != nil {
		return simSummary{}, err
	}
	if len(candles) < need {
		return simSummary{}, &SeriesTooShortError{Indicator: "backtest", Need: need, Have: len(candles)}
	}
	if pb, ok := b.broker.(*PaperBroker); ok {
		pb.SetCandles(candles)
	}

	log.Printf("[BT] window rows=%d start=%s end=%s", len(candles), candles[0].Time, candles[len(candles)-1].Time)

	var firstBuySize, lastSellSize float64
	buyCount, sellCount := 0, 0

	for i := need; i <= len(candles); i++ {
		select {
		case <-ctx.Done():
			return simSummary{}, ctx.Err()
		default:
		}
		if pb, ok := b.broker.(*PaperBroker); ok {
			pb.SetCandles(candles[:i])
		}
		out := b.Tick(ctx, candles, i)
		if out.err != nil {
			log.Printf("[BT] tick %d error: %v", i, out.err)
			continue
		}
		if strings.HasPrefix(out.msg, string(ActionBuy)) {
			buyCount++
			if firstBuySize == 0 {
				firstBuySize = b.LastBuySize()
			}
		}
		if strings.HasPrefix(out.msg, string(ActionSell)) {
			sellCount++
			lastSellSize = b.LastSellSize()
		}
		if i%100 == 0 {
			log.Printf("[BT] i=%d msg=%s equity=%.2f", i, out.msg, b.EquityUSD())
		}
	}

	margin := 0.0
	if firstBuySize > 0 && lastSellSize > 0 {
		margin = ((lastSellSize - firstBuySize) / firstBuySize) * 100
	}
	summary := simSummary{
		BuyCount: buyCount, SellCount: sellCount,
		FirstBuySize: firstBuySize, LastSellSize: lastSellSize, MarginPcnt: margin,
	}
	log.Printf("[BT] complete: buys=%d sells=%d first_buy=%.8f last_sell=%.8f margin=%.4f%% equity=%.2f",
		summary.BuyCount, summary.SellCount, summary.FirstBuySize, summary.LastSellSize, summary.MarginPcnt, b.EquityUSD())
	return summary, nil
}
