package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepTrailingBuyNilStateNeverFires(t *testing.T) {
	fire, cancel := StepTrailingBuy(nil, 100, loadDefaultConfig())
	assert.False(t, fire)
	assert.False(t, cancel)
}

func TestStepTrailingBuyFiresOnRecoveryOffLow(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.TrailingBuyPcnt = 1.0

	st := &TrailingBuyState{ArmPrice: 100}

	fire, cancel := StepTrailingBuy(st, 98, cfg)
	assert.False(t, fire)
	assert.False(t, cancel)
	assert.Equal(t, 98.0, st.Low)

	// Price recovers 1% off the low of 98 (98 * 1.01 = 98.98).
	fire, cancel = StepTrailingBuy(st, 99, cfg)
	assert.True(t, fire)
	assert.False(t, cancel)
}

func TestStepTrailingBuyImmediateShortcut(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.TrailingBuyPcnt = 1.0
	immediate := 0.5
	cfg.TrailingBuyImmediatePcnt = &immediate

	st := &TrailingBuyState{ArmPrice: 100}
	fire, cancel := StepTrailingBuy(st, 100.6, cfg)
	assert.True(t, fire)
	assert.False(t, cancel)
}

func TestStepTrailingBuyBailoutOnRunaway(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.TrailingBuyPcnt = 1.0

	st := &TrailingBuyState{ArmPrice: 100}
	// Runs away upward without ever pulling back: bailout band is
	// TrailingBuyPcnt * fluctuationBand * 10 = 1.0 * 0.9 * 10 = 9%.
	fire, cancel := StepTrailingBuy(st, 110, cfg)
	assert.False(t, fire)
	assert.True(t, cancel)
}

func TestStepTrailingSellFiresOnDropOffHigh(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.TrailingSellPcnt = 1.0

	st := &TrailingSellState{ArmPrice: 100, High: 100}
	fire := StepTrailingSell(st, 103, cfg)
	assert.False(t, fire)
	assert.Equal(t, 103.0, st.High)

	// Falls more than 1% off the new high of 103 (103 * 0.99 = 101.97).
	fire = StepTrailingSell(st, 101.5, cfg)
	assert.True(t, fire)
}

func TestStepTrailingSellBailoutBelowArmPrice(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.TrailingSellPcnt = 5.0
	bailout := 2.0
	cfg.TrailingSellBailoutPcnt = &bailout

	st := &TrailingSellState{ArmPrice: 100, High: 100}
	fire := StepTrailingSell(st, 97, cfg)
	assert.True(t, fire)
}

func TestStepTrailingSellNilStateNeverFires(t *testing.T) {
	assert.False(t, StepTrailingSell(nil, 100, loadDefaultConfig()))
}
