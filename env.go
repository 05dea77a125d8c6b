// FILE: env.go
// Package main – Environment helpers and JSON config-file loading.
//
// This file provides:
//   1) Small helpers to read environment variables with sane defaults
//      (strings, ints, floats, bools) — used as the lowest-precedence
//      override layer for secrets (API keys) that operators prefer to keep
//      out of the config file.
//   2) A dependency-free .env loader (loadBotEnv), kept here,
//      generalized to the full set of keys this bot recognizes.
//   3) loadConfigFile: the JSON config-file loader —
//      "JSON with a top-level object keyed by exchange name; under that, an
//      optional config subobject... Also accepted at the top level for
//      backward compatibility."
package main

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// --------- Env helpers (used across files) ---------

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}
func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// --------- Lightweight .env loader (no external deps) ---------

// loadBotEnv reads .env from "." and ".." and sets ONLY the keys the Go bot
// needs, without overriding variables already present in the environment.
func loadBotEnv() {
	needed := map[string]struct{}{
		"COINBASE_API_KEY_NAME": {}, "COINBASE_API_PRIVATE_KEY": {}, "COINBASE_API_SECRET": {},
		"BINANCE_API_KEY": {}, "BINANCE_API_SECRET": {},
		"KUCOIN_API_KEY": {}, "KUCOIN_API_SECRET": {}, "KUCOIN_API_PASSPHRASE": {},
		"SLACK_WEBHOOK": {}, "TELEGRAM_BOT_TOKEN": {}, "TELEGRAM_CHAT_ID": {},
		"CONFIG_FILE": {}, "DRY_RUN": {}, "PORT": {},
	}
	try := func(path string) {
		fh, err := os.Open(path)
		if err != nil {
			return
		}
		defer fh.Close()
		s := bufio.NewScanner(fh)
		for s.Scan() {
			line := strings.TrimSpace(s.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if strings.HasPrefix(line, "export ") {
				line = strings.TrimSpace(line[len("export "):])
			}
			eq := strings.Index(line, "=")
			if eq <= 0 {
				continue
			}
			key := strings.TrimSpace(line[:eq])
			if _, ok := needed[key]; !ok {
				continue
			}
			val := strings.TrimSpace(line[eq+1:])
			if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
				val = val[1 : len(val)-1]
			}
			if idx := strings.IndexAny(val, "#"); idx >= 0 {
				val = strings.TrimSpace(val[:idx])
			}
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, val)
			}
		}
	}
	for _, base := range []string{".", ".."} {
		try(filepath.Join(base, ".env"))
	}
}

// rawConfigFile is the on-disk JSON shape: a top-level object keyed by
// exchange name, each holding either a nested "config" object or the
// options directly (backward-compatible form).
type rawConfigFile map[string]json.RawMessage

// loadConfigFile reads path, selects the object for exchange exch, and
// json.Unmarshals either its "config" subobject or itself into dst.
// A missing file is not an error: callers proceed with defaults.
func loadConfigFile(path string, exch Exchange, dst *configFileOptions) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &ConfigError{Field: "config_file", Msg: err.Error()}
	}
	var raw rawConfigFile
	if err := json.Unmarshal(b, &raw); err != nil {
		return &ConfigError{Field: "config_file", Msg: "malformed JSON: " + err.Error()}
	}
	section, ok := raw[string(exch)]
	if !ok {
		return nil
	}
	var wrapper struct {
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(section, &wrapper); err == nil && len(wrapper.Config) > 0 {
		return json.Unmarshal(wrapper.Config, dst)
	}
	return json.Unmarshal(section, dst)
}

// configFileOptions mirrors the JSON-facing subset of Config; every field is
// a pointer so that "absent from file" is distinguishable from "zero value",
// so missing options take documented defaults.
type configFileOptions struct {
	Market      *string  `json:"market"`
	Granularity *string  `json:"granularity"`
	Live        *bool    `json:"live"`
	Sim         *string  `json:"sim"`

	SellAtLoss              *bool    `json:"sellatloss"`
	SellUpperPcnt           *float64 `json:"sell_upper_pcnt"`
	SellLowerPcnt           *float64 `json:"sell_lower_pcnt"`
	NoSellMinPcnt           *float64 `json:"nosell_min_pcnt"`
	NoSellMaxPcnt           *float64 `json:"nosell_max_pcnt"`
	TrailingStopLoss        *float64 `json:"trailing_stop_loss"`
	TrailingStopLossTrigger *float64 `json:"trailing_stop_loss_trigger"`
	DynamicTSL              *bool    `json:"dynamic_tsl"`
	TSLMultiplier           *float64 `json:"tsl_multiplier"`
	TSLTriggerMultiplier    *float64 `json:"tsl_trigger_multiplier"`
	TSLMaxPcnt              *float64 `json:"tsl_max_pcnt"`

	PreventLoss        *bool    `json:"preventloss"`
	PreventLossTrigger *float64 `json:"preventlosstrigger"`
	PreventLossMargin  *float64 `json:"preventlossmargin"`

	TrailingBuyPcnt           *float64 `json:"trailing_buy_pcnt"`
	TrailingBuyImmediatePcnt  *float64 `json:"trailing_buy_immediate_pcnt"`
	TrailingSellPcnt          *float64 `json:"trailing_sell_pcnt"`
	TrailingSellImmediatePcnt *float64 `json:"trailing_sell_immediate_pcnt"`
	TrailingSellBailoutPcnt   *float64 `json:"trailing_sell_bailout_pcnt"`

	NoBuyNearHighPcnt *float64 `json:"nobuynearhigh_pcnt"`

	BuyPercent  *float64 `json:"buy_percent"`
	SellPercent *float64 `json:"sell_percent"`
	BuyMaxSize  *float64 `json:"buy_max_size"`
	BuyMinSize  *float64 `json:"buy_min_size"`

	SmartSwitch     *bool `json:"smart_switch"`
	SellSmartSwitch *bool `json:"sell_smart_switch"`

	DisableBullOnly             *bool `json:"disable_bullonly"`
	DisableBuyNearHigh          *bool `json:"disable_buynearhigh"`
	DisableBuyMACD              *bool `json:"disable_buymacd"`
	DisableBuyEMA               *bool `json:"disable_buyema"`
	DisableBuyOBV               *bool `json:"disable_buyobv"`
	DisableBuyElderRay          *bool `json:"disable_buyelderray"`
	DisableFailsafeFibonacciLow *bool `json:"disable_failsafefibonaccilow"`
	DisableFailsafeLowerPcnt    *bool `json:"disable_failsafelowerpcnt"`
	DisableProfitBankUpperPcnt  *bool `json:"disable_profitbankupperpcnt"`
	DisableProfitBankReversal   *bool `json:"disable_profitbankreversal"`

	SellAtResistance *bool `json:"sellatresistance"`
	AutoRestart      *bool `json:"autorestart"`
	WebSocket        *bool `json:"websocket"`

	EnablePandasTA       *bool `json:"enable_pandas_ta"`
	EnableCustomStrategy *bool `json:"enable_custom_strategy"`
	AdjustTotalPeriods   *int  `json:"adjust_total_periods"`

	BaseCurrency  *string `json:"base_currency"`
	QuoteCurrency *string `json:"quote_currency"`

	APIKey        *string `json:"api_key"`
	APISecret     *string `json:"api_secret"`
	APIPassphrase *string `json:"api_passphrase"`
	APIURL        *string `json:"api_url"`
	RecvWindow    *int    `json:"recv_window"`
}

// applyConfigFileOptions merges non-nil fields of o onto c, returning the
// merged Config. Unknown granularity/sim strings surface as ConfigError.
func applyConfigFileOptions(c Config, o configFileOptions) (Config, error) {
	if o.Market != nil {
		c.Market = *o.Market
	}
	if o.Granularity != nil {
		g, err := ParseGranularity(*o.Granularity)
		if err != nil {
			return c, err
		}
		c.Granularity = g
	}
	if o.Live != nil {
		c.Live = *o.Live
	}
	if o.Sim != nil {
		switch s := SimMode(*o.Sim); s {
		case SimOff, SimFast, SimSlow, SimFastSample, SimSlowSample:
			c.Sim = s
		default:
			return c, &ConfigError{Field: "sim", Msg: "unrecognized sim mode: " + *o.Sim}
		}
	}
	if o.SellAtLoss != nil {
		c.SellAtLoss = *o.SellAtLoss
	}
	if o.SellUpperPcnt != nil {
		c.SellUpperPcnt = o.SellUpperPcnt
	}
	if o.SellLowerPcnt != nil {
		c.SellLowerPcnt = o.SellLowerPcnt
	}
	if o.NoSellMinPcnt != nil {
		c.NoSellMinPcnt = *o.NoSellMinPcnt
	}
	if o.NoSellMaxPcnt != nil {
		c.NoSellMaxPcnt = *o.NoSellMaxPcnt
	}
	if o.TrailingStopLoss != nil {
		c.TrailingStopLoss = o.TrailingStopLoss
	}
	if o.TrailingStopLossTrigger != nil {
		c.TrailingStopLossTrigger = o.TrailingStopLossTrigger
	}
	if o.DynamicTSL != nil {
		c.DynamicTSL = *o.DynamicTSL
	}
	if o.TSLMultiplier != nil {
		c.TSLMultiplier = *o.TSLMultiplier
	}
	if o.TSLTriggerMultiplier != nil {
		c.TSLTriggerMultiplier = *o.TSLTriggerMultiplier
	}
	if o.TSLMaxPcnt != nil {
		c.TSLMaxPcnt = *o.TSLMaxPcnt
	}
	if o.PreventLoss != nil {
		c.PreventLoss = *o.PreventLoss
	}
	if o.PreventLossTrigger != nil {
		c.PreventLossTrigger = *o.PreventLossTrigger
	}
	if o.PreventLossMargin != nil {
		c.PreventLossMargin = *o.PreventLossMargin
	}
	if o.TrailingBuyPcnt != nil {
		c.TrailingBuyPcnt = *o.TrailingBuyPcnt
	}
	if o.TrailingBuyImmediatePcnt != nil {
		c.TrailingBuyImmediatePcnt = o.TrailingBuyImmediatePcnt
	}
	if o.TrailingSellPcnt != nil {
		c.TrailingSellPcnt = *o.TrailingSellPcnt
	}
	if o.TrailingSellImmediatePcnt != nil {
		c.TrailingSellImmediatePcnt = o.TrailingSellImmediatePcnt
	}
	if o.TrailingSellBailoutPcnt != nil {
		c.TrailingSellBailoutPcnt = o.TrailingSellBailoutPcnt
	}
	if o.NoBuyNearHighPcnt != nil {
		c.NoBuyNearHighPcnt = *o.NoBuyNearHighPcnt
	}
	if o.BuyPercent != nil {
		c.BuyPercent = *o.BuyPercent
	}
	if o.SellPercent != nil {
		c.SellPercent = *o.SellPercent
	}
	if o.BuyMaxSize != nil {
		c.BuyMaxSize = *o.BuyMaxSize
	}
	if o.BuyMinSize != nil {
		c.BuyMinSize = *o.BuyMinSize
	}
	if o.SmartSwitch != nil {
		c.SmartSwitch = *o.SmartSwitch
	}
	if o.SellSmartSwitch != nil {
		c.SellSmartSwitch = *o.SellSmartSwitch
	}
	if o.DisableBullOnly != nil {
		c.DisableBullOnly = *o.DisableBullOnly
	}
	if o.DisableBuyNearHigh != nil {
		c.DisableBuyNearHigh = *o.DisableBuyNearHigh
	}
	if o.DisableBuyMACD != nil {
		c.DisableBuyMACD = *o.DisableBuyMACD
	}
	if o.DisableBuyEMA != nil {
		c.DisableBuyEMA = *o.DisableBuyEMA
	}
	if o.DisableBuyOBV != nil {
		c.DisableBuyOBV = *o.DisableBuyOBV
	}
	if o.DisableBuyElderRay != nil {
		c.DisableBuyElderRay = *o.DisableBuyElderRay
	}
	if o.DisableFailsafeFibonacciLow != nil {
		c.DisableFailsafeFibonacciLow = *o.DisableFailsafeFibonacciLow
	}
	if o.DisableFailsafeLowerPcnt != nil {
		c.DisableFailsafeLowerPcnt = *o.DisableFailsafeLowerPcnt
	}
	if o.DisableProfitBankUpperPcnt != nil {
		c.DisableProfitBankUpperPcnt = *o.DisableProfitBankUpperPcnt
	}
	if o.DisableProfitBankReversal != nil {
		c.DisableProfitBankReversal = *o.DisableProfitBankReversal
	}
	if o.SellAtResistance != nil {
		c.SellAtResistance = *o.SellAtResistance
	}
	if o.AutoRestart != nil {
		c.AutoRestart = *o.AutoRestart
	}
	if o.WebSocket != nil {
		c.WebSocket = *o.WebSocket
	}
	if o.EnablePandasTA != nil {
		c.EnablePandasTA = *o.EnablePandasTA
	}
	if o.EnableCustomStrategy != nil {
		c.EnableCustomStrategy = *o.EnableCustomStrategy
	}
	if o.AdjustTotalPeriods != nil {
		c.AdjustTotalPeriods = *o.AdjustTotalPeriods
	}
	if o.BaseCurrency != nil {
		c.BaseCurrency = *o.BaseCurrency
	}
	if o.QuoteCurrency != nil {
		c.QuoteCurrency = *o.QuoteCurrency
	}
	if o.APIKey != nil {
		c.APIKey = *o.APIKey
	}
	if o.APISecret != nil {
		c.APISecret = *o.APISecret
	}
	if o.APIPassphrase != nil {
		c.APIPassphrase = *o.APIPassphrase
	}
	if o.APIURL != nil {
		c.APIURL = *o.APIURL
	}
	if o.RecvWindow != nil {
		c.RecvWindow = *o.RecvWindow
	}
	return c, nil
}

// loadSecretsFromEnv fills API credentials and notifier settings that
// operators conventionally keep out of the config file.
func loadSecretsFromEnv(c Config) Config {
	switch c.Exchange {
	case ExchangeCoinbase:
		if c.APIKey == "" {
			c.APIKey = getEnv("COINBASE_API_KEY_NAME", "")
		}
		if c.APISecret == "" {
			c.APISecret = getEnv("COINBASE_API_PRIVATE_KEY", getEnv("COINBASE_API_SECRET", ""))
		}
	case ExchangeBinance:
		if c.APIKey == "" {
			c.APIKey = getEnv("BINANCE_API_KEY", "")
		}
		if c.APISecret == "" {
			c.APISecret = getEnv("BINANCE_API_SECRET", "")
		}
	case ExchangeKucoin:
		if c.APIKey == "" {
			c.APIKey = getEnv("KUCOIN_API_KEY", "")
		}
		if c.APISecret == "" {
			c.APISecret = getEnv("KUCOIN_API_SECRET", "")
		}
		if c.APIPassphrase == "" {
			c.APIPassphrase = getEnv("KUCOIN_API_PASSPHRASE", "")
		}
	}
	c.SlackWebhook = getEnv("SLACK_WEBHOOK", c.SlackWebhook)
	c.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.TelegramChatID)
	return c
}
