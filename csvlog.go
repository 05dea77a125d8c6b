// FILE: csvlog.go
// Package main – order/round-trip persistence to CSV.
//
// Uses encoding/csv directly, matching backtest.go's loadCSV. orders.csv
// records one row per fill (created_at, market, action, type, size,
// value, fees, price, status); tracker.csv pairs a closed position's buy
// row with its matching sell row, adding the realized profit/margin
// columns account.go's QuoteSell already computes.
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// OrderRecord is one row of orders.csv: every fill the bot places.
type OrderRecord struct {
	CreatedAt time.Time
	Market    string
	Action    LastAction
	Type      string // "market"
	Size      float64
	Value     float64
	Fees      float64
	Price     float64
	Status    OrderStatus
}

var orderCSVHeader = []string{"created_at", "market", "action", "type", "size", "value", "fees", "price", "status"}

// AppendOrderCSV appends rec to path, writing the header first if the
// file doesn't exist yet.
func AppendOrderCSV(path string, rec OrderRecord) error {
	row := []string{
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.Market,
		string(rec.Action),
		rec.Type,
		strconv.FormatFloat(rec.Size, 'f', 8, 64),
		strconv.FormatFloat(rec.Value, 'f', 8, 64),
		strconv.FormatFloat(rec.Fees, 'f', 8, 64),
		strconv.FormatFloat(rec.Price, 'f', 8, 64),
		string(rec.Status),
	}
	return appendCSVRow(path, orderCSVHeader, row)
}

// TrackerRecord is one row of tracker.csv: a completed buy→sell
// round-trip with its realized outcome.
type TrackerRecord struct {
	Market        string
	BuyTime       time.Time
	SellTime      time.Time
	BuyPrice      float64
	SellPrice     float64
	Size          float64
	Fees          float64
	Profit        float64
	MarginPcnt    float64
}

var trackerCSVHeader = []string{"market", "buy_time", "sell_time", "buy_price", "sell_price", "size", "fees", "profit", "margin_pcnt"}

// AppendTrackerCSV appends rec to path, pairing a completed buy/sell
// round-trip the way the original's saveTrackerCSV pairs consecutive
// buy/sell orders per market.
func AppendTrackerCSV(path string, rec TrackerRecord) error {
	row := []string{
		rec.Market,
		rec.BuyTime.UTC().Format(time.RFC3339),
		rec.SellTime.UTC().Format(time.RFC3339),
		strconv.FormatFloat(rec.BuyPrice, 'f', 8, 64),
		strconv.FormatFloat(rec.SellPrice, 'f', 8, 64),
		strconv.FormatFloat(rec.Size, 'f', 8, 64),
		strconv.FormatFloat(rec.Fees, 'f', 8, 64),
		strconv.FormatFloat(rec.Profit, 'f', 8, 64),
		strconv.FormatFloat(rec.MarginPcnt, 'f', 4, 64),
	}
	return appendCSVRow(path, trackerCSVHeader, row)
}

// NewTrackerRecord derives a TrackerRecord from a closed position and
// the SellQuote account.go computed for its closing trade.
func NewTrackerRecord(market string, pos Position, sellTime time.Time, sellPrice float64, q SellQuote) TrackerRecord {
	return TrackerRecord{
		Market: market, BuyTime: pos.OpenTime, SellTime: sellTime,
		BuyPrice: pos.OpenPrice, SellPrice: sellPrice, Size: pos.Size,
		Fees: q.SellFee, Profit: q.Profit, MarginPcnt: q.MarginPcnt,
	}
}

func appendCSVRow(path string, header, row []string) error {
	_, err := os.Stat(path)
	needHeader := os.IsNotExist(err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
