// FILE: scheduler.go
// Package main – the control loop's scheduling shell.
//
// Single-threaded cooperative loop, one job queue, at most one tick in
// flight: a single loop that sleeps until the next due time rather than
// a callback-scheduler — no parallelism is required here. This is the
// simplest form: a loop holding one absolute wake time, sleeping via
// context-aware time.Timer so Ctrl-C (ctx cancellation) interrupts the
// sleep immediately rather than waiting out a stale delay.
package main

import (
	"context"
	"log"
	"time"
)

// RunLive drives the control loop against live market data until ctx is
// canceled. autorestart: on a FATAL tick outcome, if
// cfg.AutoRestart, sleep 30s and re-enter; else return the error.
func RunLive(ctx context.Context, b *Bot) error {
	log.Printf("[INFO] starting live loop: exchange=%s market=%s granularity=%s dry_run=%v",
		b.broker.Name(), b.cfg.Market, b.Granularity().Short(), b.cfg.DryRun)

	for {
		b.rolloverDaily(time.Now().UTC())
		if b.dailyLossBreached() {
			log.Printf("[WARN] daily loss circuit breaker tripped; pausing until next UTC day")
			if !sleepCtx(ctx, reconnectDelay) {
				return ctx.Err()
			}
			continue
		}

		out := b.Tick(ctx, nil, 0)
		if out.err != nil {
			log.Printf("[WARN] tick: %s (%v)", out.msg, out.err)
		} else {
			log.Printf("[INFO] tick: %s", out.msg)
		}

		if out.msg == "FATAL" {
			if !b.cfg.AutoRestart {
				return out.err
			}
			log.Printf("[WARN] autorestart: sleeping 30s then resuming")
			if !sleepCtx(ctx, 30*time.Second) {
				return ctx.Err()
			}
			continue
		}

		delay := out.delay
		if delay <= 0 {
			delay = liveTickDelay
		}
		if !sleepCtx(ctx, delay) {
			return ctx.Err()
		}
	}
}

// sleepCtx sleeps for d or returns false early if ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
