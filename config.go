// FILE: config.go
// Package main – Runtime configuration model and loader.
//
// Config is a frozen record read once at startup. It is
// populated in two layers, lowest precedence first:
//   1. built-in defaults (loadDefaultConfig)
//   2. a JSON config file keyed by exchange name (loadConfigFile, env.go)
// CLI flags (main.go) given on the command line override both layers.
// Flags exist only for market, granularity, live, sim and the exchange
// (which also selects the config-file section); every other option is
// set by the defaults or the config file.
//
// This mirrors this file's prior config.go/env.go split (env-driven
// defaults, Config struct, loadConfigFromEnv) generalized from a dozen
// knobs to every option this bot recognizes.
package main

// SimMode selects how the simulation harness paces itself.
type SimMode string

const (
	SimOff        SimMode = "off"
	SimFast       SimMode = "fast"
	SimSlow       SimMode = "slow"
	SimFastSample SimMode = "fast-sample"
	SimSlowSample SimMode = "slow-sample"
)

// Exchange identifies which of the three supported venues this bot targets.
type Exchange string

const (
	ExchangeCoinbase Exchange = "coinbase"
	ExchangeBinance  Exchange = "binance"
	ExchangeKucoin   Exchange = "kucoin"
)

// optFloat is the sentinel for an optional percent threshold the config can
// disable entirely (optional thresholds). A pointer keeps "unset"
// distinct from "set to zero".
type optFloat = *float64

func f(v float64) optFloat { return &v }

// Config holds every runtime knob this bot recognizes. It is read once
// and never mutated after startup; the scheduler and strategy only read it.
type Config struct {
	// Trading target
	Exchange    Exchange
	Market      string // canonical "BASE-QUOTE", e.g. "BTC-USD"
	Granularity Granularity
	Live        bool
	Sim         SimMode

	// Strategy: exit-trigger and fee thresholds
	SellAtLoss              bool
	SellUpperPcnt           optFloat
	SellLowerPcnt           optFloat
	NoSellMinPcnt           float64
	NoSellMaxPcnt           float64
	TrailingStopLoss        optFloat
	TrailingStopLossTrigger optFloat
	DynamicTSL              bool
	TSLMultiplier           float64
	TSLTriggerMultiplier    float64
	TSLMaxPcnt              float64
	TSLRespectsSellAtLoss   bool // open design question: default false

	PreventLoss        bool
	PreventLossTrigger float64
	PreventLossMargin  float64

	TrailingBuyPcnt           float64
	TrailingBuyImmediatePcnt  optFloat
	TrailingSellPcnt          float64
	TrailingSellImmediatePcnt optFloat
	TrailingSellBailoutPcnt   optFloat

	NoBuyNearHighPcnt float64 // configurable; 3.0 is only the default

	BuyPercent  float64
	SellPercent float64
	BuyMaxSize  float64
	BuyMinSize  float64

	SmartSwitch     bool
	SellSmartSwitch bool

	DisableBullOnly             bool
	DisableBuyNearHigh          bool
	DisableBuyMACD              bool
	DisableBuyEMA               bool
	DisableBuyOBV               bool
	DisableBuyElderRay          bool
	DisableFailsafeFibonacciLow bool
	DisableFailsafeLowerPcnt    bool
	DisableProfitBankUpperPcnt  bool
	DisableProfitBankReversal   bool

	SellAtResistance bool
	AutoRestart      bool
	WebSocket        bool

	EnablePandasTA       bool // name-compatible no-op; no pandas-ta equivalent wired
	EnableCustomStrategy bool
	AdjustTotalPeriods   int

	BaseCurrency  string
	QuoteCurrency string

	APIKey        string
	APISecret     string
	APIPassphrase string
	APIURL        string
	RecvWindow    int

	// Ops (ambient, carried from teacher's config.go)
	DryRun           bool
	MaxDailyLossPct  float64
	USDEquity        float64
	OrderMinUSD      float64
	LongOnly         bool
	FeeRatePct       float64
	Port             int
	MaxHistoryCandle int
	StateFile        string
	PersistState     bool

	// Notifier
	SlackWebhook             string
	TelegramBotToken         string
	TelegramChatID           string
	DisableTelegramErrorMsgs bool
}

// loadDefaultConfig returns a Config with every documented default from
// this bot recognizes, mirroring the prior loadConfigFromEnv defaults
// generalized to the full option set.
func loadDefaultConfig() Config {
	return Config{
		Exchange:    ExchangeCoinbase,
		Market:      "BTC-USD",
		Granularity: OneHour,
		Live:        false,
		Sim:         SimOff,

		SellAtLoss:    true,
		NoSellMinPcnt: 0,
		NoSellMaxPcnt: 0,

		DynamicTSL:            false,
		TSLMultiplier:         1.1,
		TSLTriggerMultiplier:  1.1,
		TSLMaxPcnt:            -1.0,
		TSLRespectsSellAtLoss: false,

		PreventLoss:        false,
		PreventLossTrigger: 2.0,
		PreventLossMargin:  1.0,

		TrailingBuyPcnt:  0.0,
		TrailingSellPcnt: 0.0,

		NoBuyNearHighPcnt: 3.0, // default (source's hard-coded 0.97 expressed as a percent)

		BuyPercent:  100,
		SellPercent: 100,
		BuyMaxSize:  100,
		BuyMinSize:  0,

		SmartSwitch:     false,
		SellSmartSwitch: false,

		SellAtResistance: false,
		AutoRestart:      true,
		WebSocket:        false,

		EnableCustomStrategy: false,
		AdjustTotalPeriods:   300,

		BaseCurrency:  "BTC",
		QuoteCurrency: "USD",
		RecvWindow:    5000,

		DryRun:           true,
		MaxDailyLossPct:  1.0,
		USDEquity:        1000.0,
		OrderMinUSD:      5.0,
		LongOnly:         true,
		FeeRatePct:       0.5,
		Port:             8080,
		MaxHistoryCandle: 5000,
		StateFile:        "state.json",
		PersistState:     true,
	}
}

// TakerFeeDefault returns the per-exchange default taker fee used in
// simulation when the live adapter cannot be queried.
func (c Config) TakerFeeDefault() float64 {
	switch c.Exchange {
	case ExchangeCoinbase:
		return 0.005
	case ExchangeBinance:
		return 0.001
	case ExchangeKucoin:
		return 0.0015
	default:
		return 0.005
	}
}

// AdjustTotalPeriodsFor returns the effective minimum series length,
// honoring the 1-day-on-Binance minimum-length exception.
func (c Config) AdjustTotalPeriodsFor() int {
	if c.Exchange == ExchangeBinance && c.Granularity == OneDay {
		return 250
	}
	if c.AdjustTotalPeriods > 0 {
		return c.AdjustTotalPeriods
	}
	return 300
}

// Validate applies the ConfigError taxonomy to the handful of fields whose
// values would otherwise surface as confusing runtime failures deep in the
// indicator/strategy code.
func (c Config) Validate() error {
	if c.Market == "" {
		return &ConfigError{Field: "market", Msg: "must not be empty"}
	}
	switch c.Exchange {
	case ExchangeCoinbase, ExchangeBinance, ExchangeKucoin:
	default:
		return &ConfigError{Field: "exchange", Msg: "unknown exchange: " + string(c.Exchange)}
	}
	if c.AdjustTotalPeriods < 200 {
		return &ConfigError{Field: "adjust_total_periods", Msg: "must be >= 200"}
	}
	if c.BuyPercent <= 0 || c.BuyPercent > 100 {
		return &ConfigError{Field: "buy_percent", Msg: "must be in (0, 100]"}
	}
	if c.SellPercent <= 0 || c.SellPercent > 100 {
		return &ConfigError{Field: "sell_percent", Msg: "must be in (0, 100]"}
	}
	return nil
}
