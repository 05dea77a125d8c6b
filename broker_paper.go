// FILE: broker_paper.go
// Package main – in-memory paper/simulation broker. Feeds fills from a caller-supplied candle series (the
// simulation harness advances it tick by tick via SetCandles);
// never performs network I/O.
//
// Kept from the prior PaperBroker (single mutable last-price field,
// uuid.New() order IDs) and adapted to the new
// Broker interface: GetHistoricalData now actually serves candles (the
// teacher's paper broker explicitly refused — "use bridge or CSV" — but
// the simulation harness needs a broker that can replay history), and
// the maker-first stub methods are dropped (its Non-goals exclude
// limit-order management).
package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PaperBroker simulates fills against a replayed/streamed candle series.
type PaperBroker struct {
	mu      sync.Mutex
	candles []Candle
	price   float64
	base    Account
	quote   Account
	takerFee, makerFee float64
}

// NewPaperBroker builds a paper broker seeded with starting balances and
// the fee schedule configured for the simulated exchange.
func NewPaperBroker(baseAsset string, baseBalance float64, quoteAsset string, quoteBalance, takerFee, makerFee float64) *PaperBroker {
	return &PaperBroker{
		base:     Account{Asset: baseAsset, Available: baseBalance},
		quote:    Account{Asset: quoteAsset, Available: quoteBalance},
		takerFee: takerFee,
		makerFee: makerFee,
	}
}

func (p *PaperBroker) Name() string { return "paper" }

// SetCandles loads (or extends) the replay buffer and updates the last price.
func (p *PaperBroker) SetCandles(c []Candle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candles = c
	if len(c) > 0 {
		p.price = c[len(c)-1].Close
	}
}

func (p *PaperBroker) GetTime(ctx context.Context) (time.Time, error) {
	return time.Now().UTC(), nil
}

func (p *PaperBroker) GetHistoricalData(ctx context.Context, product string, granularity Granularity, start, end time.Time) ([]Candle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.candles) == 0 {
		return nil, errors.New("paper broker has no candles loaded; call SetCandles first")
	}
	out := make([]Candle, 0, len(p.candles))
	for _, c := range p.candles {
		if (c.Time.Equal(start) || c.Time.After(start)) && (c.Time.Equal(end) || c.Time.Before(end)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (p *PaperBroker) GetTicker(ctx context.Context, product string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.price <= 0 {
		return 0, &LogicInvariantBreach{Invariant: "paper_price", Detail: "no price set"}
	}
	return p.price, nil
}

func (p *PaperBroker) GetAccounts(ctx context.Context) ([]Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return []Account{p.base, p.quote}, nil
}

func (p *PaperBroker) GetBalance(ctx context.Context, asset string) (Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if strings.EqualFold(asset, p.base.Asset) {
		return p.base, nil
	}
	if strings.EqualFold(asset, p.quote.Asset) {
		return p.quote, nil
	}
	return Account{}, errors.New("unknown asset: " + asset)
}

func (p *PaperBroker) GetTakerFee(ctx context.Context, product string) (float64, error) { return p.takerFee, nil }
func (p *PaperBroker) GetMakerFee(ctx context.Context, product string) (float64, error) { return p.makerFee, nil }

func (p *PaperBroker) MarketBuy(ctx context.Context, product string, quoteUSD float64) (*PlacedOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if quoteUSD <= 0 {
		return nil, errors.New("quoteUSD must be > 0")
	}
	if quoteUSD > p.quote.Available {
		return nil, &LogicInvariantBreach{Invariant: "insufficient_quote_balance", Detail: product}
	}
	q := QuoteBuy(quoteUSD, p.price, p.takerFee)
	p.quote.Available -= quoteUSD
	p.base.Available += q.NetBase
	return &PlacedOrder{
		ID: uuid.New().String(), ProductID: product, Side: SideBuy,
		Price: p.price, BaseSize: q.NetBase, QuoteSpent: quoteUSD,
		CommissionUSD: q.BuyFee, CreateTime: time.Now().UTC(), Status: OrderStatusFilled,
	}, nil
}

func (p *PaperBroker) MarketSell(ctx context.Context, product string, baseSize float64) (*PlacedOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if baseSize <= 0 {
		return nil, errors.New("baseSize must be > 0")
	}
	if baseSize > p.base.Available {
		return nil, &LogicInvariantBreach{Invariant: "insufficient_base_balance", Detail: product}
	}
	sellValue := trunc8(baseSize * p.price)
	fee := trunc8(sellValue * p.takerFee)
	proceeds := trunc8(sellValue - fee)
	p.base.Available -= baseSize
	p.quote.Available += proceeds
	return &PlacedOrder{
		ID: uuid.New().String(), ProductID: product, Side: SideSell,
		Price: p.price, BaseSize: baseSize, QuoteSpent: proceeds,
		CommissionUSD: fee, CreateTime: time.Now().UTC(), Status: OrderStatusFilled,
	}, nil
}

func (p *PaperBroker) GetOrders(ctx context.Context, product string) ([]PlacedOrder, error) {
	return nil, nil
}

func (p *PaperBroker) GetExchangeFilters(ctx context.Context, product string) (ExFilters, error) {
	return ExFilters{PriceTick: 0.01, BaseStep: 0.00000001, QuoteStep: 0.01, MinNotional: 1}, nil
}

// parseProductSymbols splits a product like "BTC-USD" into ("BTC", "USD").
func parseProductSymbols(product string) (base string, quote string) {
	product = strings.TrimSpace(product)
	parts := strings.Split(product, "-")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return "", ""
}
