// FILE: live.go
// Package main – live-only helpers: smart-switch granularity arbitration
// and the cross-process control-file protocol.
//
// Kept: the write-then-rename JSON snapshot discipline and
// context-scoped helpers, trimmed of the bridge-warmup/ML-model-fit
// machinery that belonged to the old multi-lot loop (superseded by
// scheduler.go's single control loop and backtest.go's own warmup
// fetch).
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// smartSwitchDecision implements its two symmetric
// arbitration rules. Returns (true, newGranularity) at most once per
// tick; repeated ticks observing the same bull/bear state do not
// re-trigger (idempotent — see the smart-switch-idempotence
// invariant), because the caller switches the bot's granularity in
// place and the same state never triggers from the new granularity
// (15m stays while bull, 1h stays while not bull).
func smartSwitchDecision(gran Granularity, fr *IndicatorFrame, last int) (bool, Granularity) {
	if last < 0 || last >= len(fr.ElderRayBull) {
		return false, gran
	}
	// is1hBull/is6hBull proxy: ERI bull signal qualifies current-frame bullishness.
	// (an open design question: "is1hEMA1226Bull/is6hEMA1226Bull reference self.df_last
	// before returning" is a bug in the source; we derive purely from the local frame.)
	isBull := fr.EriBuy[last] || (last < len(fr.GoldenCross) && fr.GoldenCross[last])

	switch gran {
	case OneHour:
		if isBull {
			return true, FifteenMinute
		}
	case FifteenMinute:
		if !isBull {
			return true, OneHour
		}
	}
	return false, gran
}

// controlFile is the per-market cross-process snapshot a companion
// Telegram process reads to display status and writes to request a
// manual override.
type controlFile struct {
	Status          string    `json:"status"` // "active" | "paused"
	ManualBuy       bool      `json:"manualbuy"`
	ManualSell      bool      `json:"manualsell"`
	Market          string    `json:"market"`
	MarginPcnt      float64   `json:"margin_pcnt"`
	LastAction      LastAction `json:"last_action"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func controlFilePath(market string) string {
	return filepath.Join("telegram_data", strings.ReplaceAll(market, "/", "-")+".json")
}

// writeControlSnapshot publishes current status for the Telegram
// companion to read (write-then-rename, never on the trade critical path).
func (b *Bot) writeControlSnapshot(price, feeRate float64) {
	b.mu.RLock()
	market := b.cfg.Market
	pos := b.pos
	b.mu.RUnlock()

	snap := controlFile{
		Status: "active", Market: market, LastAction: pos.LastAction,
		UpdatedAt: time.Now().UTC(),
	}
	if pos.InPosition {
		snap.MarginPcnt = QuoteSell(pos, price, feeRate).MarginPcnt
	}

	path := controlFilePath(market)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	bs, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ctl-*.tmp")
	if err != nil {
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(bs); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return
	}
	tmp.Close()
	_ = os.Rename(tmpName, path)
}

// pollControlFile reads back the control file (if present) and logs a
// pause request. It does not act on the file: manualbuy, manualsell and
// a paused status leave the next tick's decision unchanged. Missing
// file or malformed JSON is not an error: the bot proceeds unattended.
func (b *Bot) pollControlFile(ctx context.Context) {
	b.mu.RLock()
	market := b.cfg.Market
	b.mu.RUnlock()

	path := controlFilePath(market)
	bs, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var ctl controlFile
	if err := json.Unmarshal(bs, &ctl); err != nil {
		log.Printf("[WARN] malformed control file %s: %v", path, err)
		return
	}
	if ctl.Status == "paused" {
		log.Printf("DEBUG control file requests pause for %s", market)
	}
	_ = ctl
}
