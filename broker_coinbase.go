// FILE: broker_coinbase.go
// Package main – Coinbase Advanced Trade REST adapter.
//
// Kept from almost unchanged: the JWT-minting auth helpers
// (addAuth/mintCoinbaseJWT, github.com/golang-jwt/jwt/v5 + google/uuid),
// the flexible any-shaped JSON decoding helpers (firstString/parseFloat/
// anyFirst), and the candles/accounts/product endpoints. Adapted to the
// new Broker interface: GetNowPrice/GetRecentCandles/PlaceMarketQuote/
// GetAvailableBase/GetAvailableQuote are renamed and reshaped to
// GetTicker/GetHistoricalData/MarketBuy+MarketSell/GetAccounts+
// GetBalance ; the maker-first stub methods (PlaceLimitPostOnly/
// GetOrder/CancelOrder/GetBBO) are dropped (its Non-goals exclude
// limit-order management).
package main

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type CoinbaseBroker struct {
	apiBase string
	hc      *http.Client

	keyName       string
	privateKeyPEM string
	bearerToken   string
}

func NewCoinbaseBroker() *CoinbaseBroker {
	return &CoinbaseBroker{
		apiBase:       strings.TrimRight(getEnv("COINBASE_API_BASE", "https://api.coinbase.com"), "/"),
		hc:            &http.Client{Timeout: 15 * time.Second},
		keyName:       strings.TrimSpace(getEnv("COINBASE_API_KEY_NAME", "")),
		privateKeyPEM: normalizeMultiline(getEnv("COINBASE_API_PRIVATE_KEY", getEnv("COINBASE_API_SECRET", ""))),
		bearerToken:   strings.TrimSpace(getEnv("COINBASE_BEARER_TOKEN", "")),
	}
}

func (cb *CoinbaseBroker) Name() string { return "coinbase" }

func (cb *CoinbaseBroker) GetTime(ctx context.Context) (time.Time, error) {
	return time.Now().UTC(), nil
}

// ---------- Price ----------

func (cb *CoinbaseBroker) GetTicker(ctx context.Context, product string) (float64, error) {
	u := fmt.Sprintf("%s/api/v3/brokerage/products/%s", cb.apiBase, url.PathEscape(product))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "cryptobot/coinbase-go")
	cb.addAuthIfAvailable(req)

	res, err := cb.hc.Do(req)
	if err != nil {
		return 0, &TransientNetworkError{Op: "coinbase.ticker", Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode >= 500 {
		b, _ := io.ReadAll(res.Body)
		return 0, &TransientNetworkError{Op: "coinbase.ticker", Err: fmt.Errorf("%d: %s", res.StatusCode, string(b))}
	}
	if res.StatusCode >= 400 {
		b, _ := io.ReadAll(res.Body)
		return 0, &AuthError{Op: "coinbase.ticker", Status: res.StatusCode, Msg: string(b)}
	}
	var j map[string]any
	if err := json.NewDecoder(res.Body).Decode(&j); err != nil {
		return 0, err
	}
	for _, k := range []string{"price", "mid_market_price", "best_ask", "best_bid"} {
		if v, ok := j[k]; ok {
			if f := parseFloat(v); f > 0 {
				return f, nil
			}
		}
	}
	return 0, errors.New("no usable price in product payload")
}

// ---------- Candles ----------

func granularityToCoinbase(g Granularity) string {
	switch g {
	case OneMinute:
		return "ONE_MINUTE"
	case FiveMinute:
		return "FIVE_MINUTE"
	case FifteenMinute:
		return "FIFTEEN_MINUTE"
	case OneHour:
		return "ONE_HOUR"
	case SixHour:
		return "SIX_HOUR"
	case OneDay:
		return "ONE_DAY"
	default:
		return "ONE_HOUR"
	}
}

// GetHistoricalData pages backward because Coinbase caps a
// single candles request at 350 rows.
func (cb *CoinbaseBroker) GetHistoricalData(ctx context.Context, product string, granularity Granularity, start, end time.Time) ([]Candle, error) {
	const pageLimit = 350
	sec := granularity.Seconds()
	var all []Candle
	cursor := end
	for cursor.After(start) {
		pageStart := cursor.Add(-time.Duration(pageLimit*sec) * time.Second)
		if pageStart.Before(start) {
			pageStart = start
		}
		page, err := cb.fetchCandlePage(ctx, product, granularity, pageStart, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || !pageStart.After(start) {
			break
		}
		cursor = pageStart
	}
	sortCandlesAsc(all)
	return all, nil
}

func (cb *CoinbaseBroker) fetchCandlePage(ctx context.Context, product string, granularity Granularity, start, end time.Time) ([]Candle, error) {
	qs := url.Values{
		"granularity": []string{granularityToCoinbase(granularity)},
		"start":       []string{strconv.FormatInt(start.Unix(), 10)},
		"end":         []string{strconv.FormatInt(end.Unix(), 10)},
	}
	u := fmt.Sprintf("%s/api/v3/brokerage/products/%s/candles?%s", cb.apiBase, url.PathEscape(product), qs.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "cryptobot/coinbase-go")
	cb.addAuthIfAvailable(req)

	res, err := cb.hc.Do(req)
	if err != nil {
		return nil, &TransientNetworkError{Op: "coinbase.candles", Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode >= 500 {
		b, _ := io.ReadAll(res.Body)
		return nil, &TransientNetworkError{Op: "coinbase.candles", Err: fmt.Errorf("%d: %s", res.StatusCode, string(b))}
	}
	if res.StatusCode >= 400 {
		b, _ := io.ReadAll(res.Body)
		return nil, &AuthError{Op: "coinbase.candles", Status: res.StatusCode, Msg: string(b)}
	}

	var raw any
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, err
	}
	rows := normalizeCandlesCBS(raw)
	out := make([]Candle, 0, len(rows))
	for _, r := range rows {
		ts, _ := strconv.ParseInt(strings.TrimSpace(r.Start), 10, 64)
		if ts <= 0 {
			continue
		}
		out = append(out, Candle{
			Time: time.Unix(ts, 0).UTC(),
			Open: parseFloat(r.Open), High: parseFloat(r.High), Low: parseFloat(r.Low),
			Close: parseFloat(r.Close), Volume: parseFloat(r.Volume),
		})
	}
	return out, nil
}

type candleRow struct {
	Start  string `json:"start"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

func normalizeCandlesCBS(raw any) []candleRow {
	switch v := raw.(type) {
	case []any:
		return toCandleRows(v)
	case map[string]any:
		if c, ok := v["candles"]; ok {
			if arr, ok := c.([]any); ok {
				return toCandleRows(arr)
			}
		}
	}
	return nil
}
func toCandleRows(arr []any) []candleRow {
	out := make([]candleRow, 0, len(arr))
	for _, it := range arr {
		switch m := it.(type) {
		case map[string]any:
			out = append(out, candleRow{
				Start: asStr(m["start"]), Open: asStr(m["open"]), High: asStr(m["high"]),
				Low: asStr(m["low"]), Close: asStr(m["close"]), Volume: asStr(m["volume"]),
			})
		case []any:
			if len(m) >= 6 {
				out = append(out, candleRow{
					Start: asStr(m[0]), Open: asStr(m[1]), High: asStr(m[2]),
					Low: asStr(m[3]), Close: asStr(m[4]), Volume: asStr(m[5]),
				})
			}
		}
	}
	return out
}
func asStr(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ---------- Orders ----------

func (cb *CoinbaseBroker) MarketBuy(ctx context.Context, product string, quoteUSD float64) (*PlacedOrder, error) {
	return cb.placeMarketQuote(ctx, product, SideBuy, quoteUSD)
}

func (cb *CoinbaseBroker) MarketSell(ctx context.Context, product string, baseSize float64) (*PlacedOrder, error) {
	price, err := cb.GetTicker(ctx, product)
	if err != nil {
		return nil, err
	}
	return cb.placeMarketQuote(ctx, product, SideSell, baseSize*price)
}

func (cb *CoinbaseBroker) placeMarketQuote(ctx context.Context, product string, side OrderSide, quoteUSD float64) (*PlacedOrder, error) {
	if quoteUSD <= 0 {
		return nil, fmt.Errorf("invalid quote USD: %.2f", quoteUSD)
	}
	clientOrderID := uuid.New().String()
	body := map[string]any{
		"client_order_id": clientOrderID,
		"product_id":      product,
		"side":            strings.ToUpper(string(side)),
		"order_configuration": map[string]any{
			"market_market_ioc": map[string]string{"quote_size": fmt.Sprintf("%.2f", quoteUSD)},
		},
	}
	u := cb.apiBase + "/api/v3/brokerage/orders"
	bs, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(bs))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "cryptobot/coinbase-go")
	req.Header.Set("Content-Type", "application/json")
	if err := cb.addAuth(req); err != nil {
		return nil, err
	}

	res, err := cb.hc.Do(req)
	if err != nil {
		return nil, &TransientNetworkError{Op: "coinbase.order", Err: err}
	}
	defer res.Body.Close()
	rb, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 500 {
		return nil, &TransientNetworkError{Op: "coinbase.order", Err: fmt.Errorf("%d: %s", res.StatusCode, string(rb))}
	}
	if res.StatusCode >= 400 {
		return nil, &AuthError{Op: "coinbase.order", Status: res.StatusCode, Msg: string(rb)}
	}

	var generic map[string]any
	_ = json.Unmarshal(rb, &generic)
	orderID := firstString(generic["order_id"], nested(generic, "success_response", "order_id"))
	if strings.TrimSpace(orderID) == "" {
		orderID = clientOrderID
	}

	price, base, commission := cb.pollFill(ctx, orderID)
	return &PlacedOrder{
		ID: orderID, ProductID: product, Side: side,
		Price: price, BaseSize: base, QuoteSpent: price * base,
		CommissionUSD: commission, CreateTime: time.Now().UTC(),
		Status: convertCoinbaseStatus(""),
	}, nil
}

func (cb *CoinbaseBroker) pollFill(ctx context.Context, orderID string) (price, base, commission float64) {
	const attempts = 6
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return
		}
		if p, b, c, err := cb.fetchOrderFill(ctx, orderID); err == nil && b > 0 && p > 0 {
			return p, b, c
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(250 * time.Millisecond):
		}
	}
	return
}

// convertCoinbaseStatus normalizes Coinbase's order status vocabulary.
// Coinbase never reports a partial-fill status distinct from "OPEN" on
// its market-order lifecycle, so OrderStatusPartiallyFilled is never
// produced here (an order-status normalization question — see DESIGN.md).
func convertCoinbaseStatus(raw string) OrderStatus {
	switch strings.ToUpper(raw) {
	case "FILLED":
		return OrderStatusFilled
	case "CANCELLED", "EXPIRED":
		return OrderStatusCancelled
	case "FAILED", "REJECTED":
		return OrderStatusRejected
	case "OPEN", "PENDING":
		return OrderStatusOpen
	default:
		return OrderStatusFilled
	}
}

func (cb *CoinbaseBroker) fetchOrderFill(ctx context.Context, orderID string) (avgPrice, filledBase, commissionUSD float64, err error) {
	if strings.TrimSpace(orderID) == "" {
		return 0, 0, 0, fmt.Errorf("empty order id")
	}
	qs := url.Values{"order_id": []string{orderID}}
	u := fmt.Sprintf("%s/api/v3/brokerage/orders/historical/fills?%s", cb.apiBase, qs.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, 0, err
	}
	req.Header.Set("User-Agent", "cryptobot/coinbase-go")
	if err := cb.addAuth(req); err != nil {
		return 0, 0, 0, err
	}

	res, err := cb.hc.Do(req)
	if err != nil {
		return 0, 0, 0, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return 0, 0, 0, fmt.Errorf("fills %d: %s", res.StatusCode, string(b))
	}
	var j map[string]any
	if err := json.NewDecoder(res.Body).Decode(&j); err != nil {
		return 0, 0, 0, err
	}
	arr := anyFirst(j["fills"], j["data"], j["results"])
	list, _ := arr.([]any)
	if len(list) == 0 {
		return 0, 0, 0, nil
	}

	var totBase, totNotional, totCommission float64
	for _, it := range list {
		m, _ := it.(map[string]any)
		priceF := parseFloat(firstString(m["price"], m["average_filled_price"]))
		sizeF := parseFloat(firstString(m["size"], m["filled_size"]))
		commissionF := parseFloat(m["commission"])
		sizeInQuote := false
		if sv, ok := m["size_in_quote"].(bool); ok {
			sizeInQuote = sv
		}
		var base, notional float64
		if sizeInQuote {
			if priceF > 0 {
				base = sizeF / priceF
			}
			notional = sizeF
		} else {
			base = sizeF
			notional = sizeF * priceF
		}
		totBase += base
		totNotional += notional
		totCommission += commissionF
	}
	var avg float64
	if totBase > 0 {
		avg = totNotional / totBase
	}
	return avg, totBase, totCommission, nil
}

func (cb *CoinbaseBroker) GetOrders(ctx context.Context, product string) ([]PlacedOrder, error) {
	return nil, nil
}

// ---------- Balances / Steps ----------

func (cb *CoinbaseBroker) GetAccounts(ctx context.Context) ([]Account, error) {
	u := fmt.Sprintf("%s/api/v3/brokerage/accounts?limit=200", cb.apiBase)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "cryptobot/coinbase-go")
	if err := cb.addAuth(req); err != nil {
		return nil, err
	}
	res, err := cb.hc.Do(req)
	if err != nil {
		return nil, &TransientNetworkError{Op: "coinbase.accounts", Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return nil, &AuthError{Op: "coinbase.accounts", Status: res.StatusCode, Msg: string(b)}
	}
	var j map[string]any
	if err := json.NewDecoder(res.Body).Decode(&j); err != nil {
		return nil, err
	}
	arr, _ := anyFirst(j["accounts"], j["data"]).([]any)
	out := make([]Account, 0, len(arr))
	for _, a := range arr {
		m, _ := a.(map[string]any)
		ab, _ := m["available_balance"].(map[string]any)
		if ab == nil {
			continue
		}
		out = append(out, Account{
			Asset:     strings.ToUpper(firstString(ab["currency"])),
			Available: parseFloat(ab["value"]),
		})
	}
	return out, nil
}

func (cb *CoinbaseBroker) GetBalance(ctx context.Context, asset string) (Account, error) {
	accs, err := cb.GetAccounts(ctx)
	if err != nil {
		return Account{}, err
	}
	for _, a := range accs {
		if strings.EqualFold(a.Asset, asset) {
			return a, nil
		}
	}
	return Account{Asset: asset}, nil
}

func (cb *CoinbaseBroker) GetTakerFee(ctx context.Context, product string) (float64, error) {
	return Config{Exchange: ExchangeCoinbase}.TakerFeeDefault(), nil
}
func (cb *CoinbaseBroker) GetMakerFee(ctx context.Context, product string) (float64, error) {
	return 0.004, nil
}

func (cb *CoinbaseBroker) GetExchangeFilters(ctx context.Context, product string) (ExFilters, error) {
	u := fmt.Sprintf("%s/api/v3/brokerage/products/%s", cb.apiBase, url.PathEscape(product))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ExFilters{}, err
	}
	req.Header.Set("User-Agent", "cryptobot/coinbase-go")
	cb.addAuthIfAvailable(req)
	res, err := cb.hc.Do(req)
	if err != nil {
		return ExFilters{}, &TransientNetworkError{Op: "coinbase.product", Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return ExFilters{}, &AuthError{Op: "coinbase.product", Status: res.StatusCode, Msg: string(b)}
	}
	var p map[string]any
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return ExFilters{}, err
	}
	return ExFilters{
		BaseStep:  parseFloat(firstString(p["base_increment"], p["base_increment_value"])),
		QuoteStep: parseFloat(firstString(p["quote_increment"], p["quote_increment_value"])),
		PriceTick: parseFloat(firstString(p["quote_increment"])),
	}, nil
}

// ---------- auth helpers ----------

func (cb *CoinbaseBroker) addAuthIfAvailable(req *http.Request) {
	if cb.bearerToken != "" || (cb.keyName != "" && cb.privateKeyPEM != "") {
		_ = cb.addAuth(req)
	}
}

func (cb *CoinbaseBroker) addAuth(req *http.Request) error {
	if cb.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+cb.bearerToken)
		return nil
	}
	if cb.keyName == "" || cb.privateKeyPEM == "" {
		return &AuthError{Op: "coinbase.auth", Status: 0, Msg: "no credentials configured"}
	}
	token, err := mintCoinbaseJWT(cb.keyName, cb.privateKeyPEM, 25*time.Second)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("CB-ACCESS-KEY", cb.keyName)
	return nil
}

func mintCoinbaseJWT(keyName, privatePEM string, ttl time.Duration) (string, error) {
	block, _ := pem.Decode([]byte(privatePEM))
	if block == nil {
		return "", errors.New("invalid private key (no PEM block)")
	}
	var priv *rsa.PrivateKey
	switch block.Type {
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return "", err
		}
		var ok bool
		priv, ok = k.(*rsa.PrivateKey)
		if !ok {
			return "", errors.New("not RSA private key")
		}
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return "", err
		}
		priv = k
	default:
		return "", fmt.Errorf("unsupported key type: %s", block.Type)
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": keyName,
		"aud": "retail_rest_api",
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"nbf": now.Add(-5 * time.Second).Unix(),
		"jti": uuid.New().String(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return t.SignedString(priv)
}

// ---------- small utils ----------

func firstString(vals ...any) string {
	for _, v := range vals {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case fmt.Stringer:
			if s := strings.TrimSpace(t.String()); s != "" {
				return s
			}
		}
	}
	return ""
}
func nested(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[k]
	}
	return cur
}
func anyFirst(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
func parseFloat(v any) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	case float64:
		return t
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}
func normalizeMultiline(s string) string {
	if strings.Contains(s, `\n`) {
		return strings.ReplaceAll(s, `\n`, "\n")
	}
	return s
}
