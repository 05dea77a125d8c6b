// FILE: main.go
// Package main – program entrypoint and HTTP/metrics server.
//
// Boot sequence (kept from this file's prior: env -> config -> broker
// wiring -> metrics server -> run mode), generalized to the three-way
// exchange switch plus paper. CLI flags exist for -config, -exchange,
// -market, -granularity, -sim and -live (plus the two paper-broker
// balances); every other option comes from the defaults or the file:
//   1) loadBotEnv()               – read .env
//   2) loadDefaultConfig()        – built-in defaults
//   3) flag.Parse()               – CLI flags
//   4) loadConfigFile()           – JSON config file; a flag given on the
//                                   command line wins over the file
//   5) loadSecretsFromEnv()       – API credentials from env, for any the config file left empty
//   6) wire broker/notifier/bot
//   7) start Prometheus /healthz + /metrics server on cfg.Port
//   8) runBacktest (sim) or RunLive (live) based on cfg.Sim/cfg.Live
//
// Exit codes: 0 on normal shutdown (including Ctrl-C), non-zero on
// unrecoverable startup/config error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	loadBotEnv()
	cfg := loadDefaultConfig()

	var configFile string
	var market, granularity, exchange, simMode string
	var live bool
	var baseBalance, quoteBalance float64

	flag.StringVar(&configFile, "config", getEnv("CONFIG_FILE", ""), "Path to JSON config file")
	flag.StringVar(&exchange, "exchange", string(cfg.Exchange), "coinbase|binance|kucoin")
	flag.StringVar(&market, "market", cfg.Market, "Trading pair, e.g. BTC-USD")
	flag.StringVar(&granularity, "granularity", cfg.Granularity.Short(), "1m|5m|15m|1h|6h|1d")
	flag.StringVar(&simMode, "sim", string(cfg.Sim), "off|fast|slow|fast-sample|slow-sample")
	flag.BoolVar(&live, "live", cfg.Live, "Run the live loop against a real exchange")
	flag.Float64Var(&baseBalance, "paper-base-balance", 0, "Paper-broker starting base-asset balance")
	flag.Float64Var(&quoteBalance, "paper-quote-balance", cfg.USDEquity, "Paper-broker starting quote-asset balance")
	flag.Parse()

	cfg.Exchange = Exchange(strings.ToLower(exchange))
	cfg.Market = market
	cfg.Live = live
	cfg.Sim = SimMode(simMode)
	if g, err := ParseGranularity(granularity); err == nil {
		cfg.Granularity = g
	} else {
		log.Fatalf("[FATAL] %v", err)
	}

	var opts configFileOptions
	if err := loadConfigFile(configFile, cfg.Exchange, &opts); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	// A flag given on the command line overrides the config file.
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "market":
			opts.Market = nil
		case "granularity":
			opts.Granularity = nil
		case "live":
			opts.Live = nil
		case "sim":
			opts.Sim = nil
		}
	})
	cfg, err := applyConfigFileOptions(cfg, opts)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	cfg = loadSecretsFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	baseAsset, quoteAsset := parseProductSymbols(cfg.Market)

	var broker Broker
	if !cfg.Live {
		pb := NewPaperBroker(baseAsset, baseBalance, quoteAsset, quoteBalance, cfg.TakerFeeDefault(), 0.001)
		broker = pb
	} else {
		switch cfg.Exchange {
		case ExchangeCoinbase:
			broker = NewCoinbaseBroker()
		case ExchangeBinance:
			broker = NewBinanceBroker()
		case ExchangeKucoin:
			broker = NewKucoinBroker()
		default:
			log.Fatalf("[FATAL] unknown exchange: %s", cfg.Exchange)
		}
	}

	notifier := NewNotifier(cfg)
	bot := NewBot(cfg, broker, notifier)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		log.Printf("[INFO] serving metrics on :%d/metrics", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[FATAL] metrics server: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var runErr error
	if cfg.Sim != SimOff && !cfg.Live {
		end := time.Now().UTC()
		start := randomizedStartDate(cfg.Exchange, end)
		_, runErr = runBacktest(ctx, bot, start, end)
	} else {
		runErr = RunLive(ctx, bot)
	}

	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Printf("[FATAL] %v", runErr)
		os.Exit(1)
	}
}
