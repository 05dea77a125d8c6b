package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaultConfigValidates(t *testing.T) {
	cfg := loadDefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsEmptyMarket(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.Market = ""
	err := cfg.Validate()
	assert.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "market", cfgErr.Field)
}

func TestValidateRejectsUnknownExchange(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.Exchange = Exchange("bogus")
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsBuyPercentOutOfRange(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.BuyPercent = 0
	assert.Error(t, cfg.Validate())

	cfg = loadDefaultConfig()
	cfg.BuyPercent = 150
	assert.Error(t, cfg.Validate())
}

func TestTakerFeeDefaultPerExchange(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.Exchange = ExchangeCoinbase
	assert.Equal(t, 0.005, cfg.TakerFeeDefault())
	cfg.Exchange = ExchangeBinance
	assert.Equal(t, 0.001, cfg.TakerFeeDefault())
	cfg.Exchange = ExchangeKucoin
	assert.Equal(t, 0.0015, cfg.TakerFeeDefault())
}

func TestAdjustTotalPeriodsForBinanceDailyException(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.Exchange = ExchangeBinance
	cfg.Granularity = OneDay
	assert.Equal(t, 250, cfg.AdjustTotalPeriodsFor())
}

func TestAdjustTotalPeriodsForDefaultsWhenUnset(t *testing.T) {
	cfg := loadDefaultConfig()
	cfg.AdjustTotalPeriods = 0
	assert.Equal(t, 300, cfg.AdjustTotalPeriodsFor())
}
