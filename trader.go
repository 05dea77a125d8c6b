// FILE: trader.go
// Package main – Bot: the long-lived record the control loop ticks.
//
// Generalized from the prior Trader (kept: RWMutex-guarded state,
// EquityUSD()/SetEquityUSD() accessor pair, dailyStart/dailyPnL circuit
// breaker, write-then-rename state persistence, [INFO]/[WARN]/[FATAL]
// log.Printf convention). Dropped entirely: the multi-lot SideBook/
// pyramiding/equity-staging/maker-first-pending-order machinery — this
// bot's data model is a single open-or-flat Position (position.go), and
// limit-order management is out of scope, so none of that state has a
// home here (see DESIGN.md). Bot instead owns exactly what a minimal
// design calls for: a frozen Config, a mutable Position, and the Broker
// and Notifier interfaces.
package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Bot owns the frozen config, the single mutable Position, and the
// broker/notifier interfaces the control loop drives every tick.
type Bot struct {
	cfg      Config
	broker   Broker
	notifier Notifier

	mu  sync.RWMutex
	pos Position

	equityUSD  float64
	dailyStart time.Time
	dailyPnL   float64

	lastBuySize, lastSellSize float64

	iterations  int
	lastDFIndex int

	stateFile string

	// granularity is mutable at runtime only via the smart-switch
	// arbitration step; everything else in cfg is frozen.
	granularity Granularity
}

func NewBot(cfg Config, broker Broker, notifier Notifier) *Bot {
	b := &Bot{
		cfg:         cfg,
		broker:      broker,
		notifier:    notifier,
		pos:         Position{LastAction: ActionSell},
		equityUSD:   cfg.USDEquity,
		dailyStart:  midnightUTC(time.Now().UTC()),
		stateFile:   cfg.StateFile,
		granularity: cfg.Granularity,
	}
	if !cfg.PersistState {
		b.stateFile = ""
		log.Printf("[INFO] persistence disabled (persist_state=false); starting fresh state")
		return b
	}
	if err := b.loadState(); err != nil {
		log.Printf("[INFO] no prior state restored: %v", err)
	} else {
		log.Printf("[INFO] bot state restored from %s", b.stateFile)
	}
	return b
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (b *Bot) EquityUSD() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.equityUSD
}

func (b *Bot) SetEquityUSD(v float64) {
	b.mu.Lock()
	b.equityUSD = v
	b.mu.Unlock()
	SetEquityUSD(v)
	if err := b.saveState(); err != nil {
		log.Printf("[WARN] saveState: %v", err)
	}
}

// LastBuySize/LastSellSize report the most recent fill sizes, used by
// the simulation harness's end-of-window margin summary.
func (b *Bot) LastBuySize() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastBuySize
}
func (b *Bot) LastSellSize() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSellSize
}

func (b *Bot) Granularity() Granularity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.granularity
}

func (b *Bot) SetGranularity(g Granularity) {
	b.mu.Lock()
	b.granularity = g
	b.mu.Unlock()
}

// rolloverDaily resets the circuit-breaker window at UTC midnight.
func (b *Bot) rolloverDaily(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	mid := midnightUTC(now)
	if mid.After(b.dailyStart) {
		b.dailyStart = mid
		b.dailyPnL = 0
	}
}

func (b *Bot) dailyLossBreached() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.cfg.MaxDailyLossPct <= 0 {
		return false
	}
	return b.dailyPnL <= -b.cfg.MaxDailyLossPct/100.0*b.equityUSD
}

func (b *Bot) addDailyPnL(v float64) {
	b.mu.Lock()
	b.dailyPnL += v
	b.mu.Unlock()
}

// botStateSnapshot is the on-disk persisted shape.
type botStateSnapshot struct {
	Position    Position
	EquityUSD   float64
	DailyStart  time.Time
	DailyPnL    float64
	Iterations  int
	LastDFIndex int
	Granularity Granularity
}

func (b *Bot) snapshot() botStateSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return botStateSnapshot{
		Position: b.pos, EquityUSD: b.equityUSD, DailyStart: b.dailyStart,
		DailyPnL: b.dailyPnL, Iterations: b.iterations, LastDFIndex: b.lastDFIndex,
		Granularity: b.granularity,
	}
}

// saveState writes the snapshot via a temp-file-then-rename so a reader
// (or a crash mid-write) never observes a partially written file.
func (b *Bot) saveState() error {
	if b.stateFile == "" {
		return nil
	}
	snap := b.snapshot()
	bs, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(b.stateFile)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(bs); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, b.stateFile)
}

func (b *Bot) loadState() error {
	if b.stateFile == "" {
		return os.ErrNotExist
	}
	bs, err := os.ReadFile(b.stateFile)
	if err != nil {
		return err
	}
	var snap botStateSnapshot
	if err := json.Unmarshal(bs, &snap); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = snap.Position
	b.equityUSD = snap.EquityUSD
	b.dailyStart = snap.DailyStart
	b.dailyPnL = snap.DailyPnL
	b.iterations = snap.Iterations
	b.lastDFIndex = snap.LastDFIndex
	if snap.Granularity != 0 || b.granularity == 0 {
		b.granularity = snap.Granularity
	}
	return nil
}
