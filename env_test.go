package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyConfigFileOptionsOnlyTouchesSetFields(t *testing.T) {
	cfg := loadDefaultConfig()
	origSellPercent := cfg.SellPercent

	market := "ETH-USD"
	sellAtLoss := false
	opts := configFileOptions{
		Market:     &market,
		SellAtLoss: &sellAtLoss,
	}

	merged, err := applyConfigFileOptions(cfg, opts)
	assert.NoError(t, err)
	assert.Equal(t, "ETH-USD", merged.Market)
	assert.False(t, merged.SellAtLoss)
	assert.Equal(t, origSellPercent, merged.SellPercent) // untouched field keeps its default
}

func TestApplyConfigFileOptionsRejectsBadGranularity(t *testing.T) {
	cfg := loadDefaultConfig()
	bad := "3weeks"
	opts := configFileOptions{Granularity: &bad}

	_, err := applyConfigFileOptions(cfg, opts)
	assert.Error(t, err)
}

func TestApplyConfigFileOptionsSetsOptionalPointerFields(t *testing.T) {
	cfg := loadDefaultConfig()
	assert.Nil(t, cfg.TrailingStopLoss)

	tsl := 2.5
	opts := configFileOptions{TrailingStopLoss: &tsl}

	merged, err := applyConfigFileOptions(cfg, opts)
	assert.NoError(t, err)
	if assert.NotNil(t, merged.TrailingStopLoss) {
		assert.Equal(t, 2.5, *merged.TrailingStopLoss)
	}
}

func TestLoadConfigFileMissingPathIsNotAnError(t *testing.T) {
	var opts configFileOptions
	err := loadConfigFile("/nonexistent/path/does-not-exist.json", ExchangeCoinbase, &opts)
	assert.NoError(t, err)
}

func TestLoadConfigFileEmptyPathIsNoop(t *testing.T) {
	var opts configFileOptions
	err := loadConfigFile("", ExchangeCoinbase, &opts)
	assert.NoError(t, err)
	assert.Nil(t, opts.Market)
}

func TestGetEnvHelpersFallBackToDefault(t *testing.T) {
	assert.Equal(t, "fallback", getEnv("COINBOT_TEST_UNSET_KEY", "fallback"))
	assert.Equal(t, 42, getEnvInt("COINBOT_TEST_UNSET_KEY", 42))
	assert.Equal(t, 1.5, getEnvFloat("COINBOT_TEST_UNSET_KEY", 1.5))
	assert.Equal(t, true, getEnvBool("COINBOT_TEST_UNSET_KEY", true))
}
