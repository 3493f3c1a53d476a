package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_PassesValidationOnceASymbolIsConfigured(t *testing.T) {
	cfg := Default()
	cfg.Symbols.Pain = []string{"EURUSD"}
	require.NoError(t, validate(cfg))
}

func TestDefault_EqualityIsNotTrendDefaultsToTrue(t *testing.T) {
	cfg := Default()
	require.True(t, cfg.TrendFilter.EqualityIsNotTrend)
}

func TestLoad_NoFileUsesDefaultsAndFailsSymbolValidation(t *testing.T) {
	_, err := Load("")
	require.Error(t, err) // Default() ships with no symbols configured
}

func TestLoad_OverlaysJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"environment":{"timezone":"UTC","daily_close_hour":17},"symbols":{"pain":["EURUSD"],"gain":[]}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"EURUSD"}, cfg.Symbols.Pain)
	// Unset fields retain their defaults.
	require.Equal(t, 100, cfg.Indicators.SnakePeriod)
}

func TestValidate_RejectsOutOfRangeCloseHour(t *testing.T) {
	cfg := Default()
	cfg.Symbols.Pain = []string{"EURUSD"}
	cfg.Environment.DailyCloseHour = 24
	require.Error(t, validate(cfg))
}

func TestValidate_RejectsUnknownExchangeKind(t *testing.T) {
	cfg := Default()
	cfg.Symbols.Pain = []string{"EURUSD"}
	cfg.Exchange.Kind = "coinbase"
	require.Error(t, validate(cfg))
}

func TestValidate_RejectsNoSymbols(t *testing.T) {
	cfg := Default()
	require.Error(t, validate(cfg))
}
