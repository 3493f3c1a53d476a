// Package config is the typed configuration surface of §6/§11, loaded
// once at bootstrap and threaded by reference through every constructor —
// never re-read mid-run, matching the teacher's StrategyConfig being
// loaded once and passed into decision.NewStrategyEngine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type EnvironmentConfig struct {
	Timezone       string `json:"timezone"`
	DailyCloseHour int    `json:"daily_close_hour"`
}

type IndicatorsConfig struct {
	SnakePeriod      int     `json:"snake_period"`
	PurpleLinePeriod int     `json:"purple_line_period"`
	EMASmoothing     float64 `json:"ema_smoothing"`
}

type DailyBiasConfig struct {
	EpsilonWickRatio float64 `json:"epsilon_wick_ratio"`
}

type TrendFilterConfig struct {
	TimeframesToCheck  []string `json:"timeframes_to_check"`
	EqualityIsNotTrend bool     `json:"equality_is_not_trend"`
}

type EntryM1Config struct {
	MaxBarsBetweenCrossAndTouch int `json:"max_bars_between_cross_and_touch"`
}

type StructureConfig struct {
	H4Candidates int `json:"h4_candidates"`
}

type TradingConfig struct {
	LotSize        float64 `json:"lot_size"`
	TradeTargetUSD float64 `json:"trade_target_usd"`
	DailyTargetUSD float64 `json:"daily_target_usd"`
}

type RiskConfig struct {
	MaxSpreadPips       float64 `json:"max_spread_pips"`
	MaxSlippagePips     float64 `json:"max_slippage_pips"`
	MaxConcurrentOrders int     `json:"max_concurrent_orders"`
	EnableDailyStop     bool    `json:"enable_daily_stop"`
	EnableDailyTarget   bool    `json:"enable_daily_target"`
	DailyStopUSD        float64 `json:"daily_stop_usd"`
	DailyTargetUSD      float64 `json:"daily_target_usd"`
}

type SessionConfig struct {
	Enabled      bool   `json:"enabled"`
	StartHHMM    string `json:"start"`
	EndHHMM      string `json:"end"`
}

type SymbolsConfig struct {
	Pain []string `json:"pain"`
	Gain []string `json:"gain"`
}

type StoreConfig struct {
	SQLitePath      string `json:"sqlite_path"`
	RetentionDays   int    `json:"retention_days"`
}

type ControlConfig struct {
	BindAddr       string `json:"bind_addr"`
	SigningKey     string `json:"signing_key"`
	OperatorSecret string `json:"operator_secret"`
	TOTPSecret     string `json:"totp_secret"`
}

// ExchangeConfig selects and credentials the broker.Broker adapter cmd/barwatch
// wires up, mirroring the teacher's per-trader exchange credential block.
type ExchangeConfig struct {
	Kind      string `json:"kind"` // "binancefutures", "alpaca", or "sim"
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	Paper     bool   `json:"paper"` // alpaca only: trade the paper endpoint
}

// Config is the complete typed configuration surface.
type Config struct {
	Environment EnvironmentConfig `json:"environment"`
	Exchange    ExchangeConfig    `json:"exchange"`
	Indicators  IndicatorsConfig  `json:"indicators"`
	DailyBias   DailyBiasConfig   `json:"daily_bias"`
	TrendFilter TrendFilterConfig `json:"trend_filters"`
	EntryM1     EntryM1Config     `json:"entry_m1"`
	Structure   StructureConfig   `json:"structure_checks"`
	Trading     TradingConfig     `json:"trading"`
	Risk        RiskConfig        `json:"risk_management"`
	Session     SessionConfig     `json:"session"`
	Symbols     SymbolsConfig     `json:"symbols"`
	Store       StoreConfig       `json:"store"`
	Control     ControlConfig     `json:"control"`
}

// Default returns the spec's default configuration, mirroring the
// teacher's GetDefaultStrategyConfig.
func Default() Config {
	return Config{
		Environment: EnvironmentConfig{Timezone: "America/New_York", DailyCloseHour: 17},
		Exchange:    ExchangeConfig{Kind: "sim"},
		Indicators: IndicatorsConfig{
			SnakePeriod: 100, PurpleLinePeriod: 10, EMASmoothing: 2.0,
		},
		DailyBias:   DailyBiasConfig{EpsilonWickRatio: 0.05},
		TrendFilter: TrendFilterConfig{TimeframesToCheck: []string{"H1", "M30", "M15"}, EqualityIsNotTrend: true},
		EntryM1:     EntryM1Config{MaxBarsBetweenCrossAndTouch: 20},
		Structure:   StructureConfig{H4Candidates: 3},
		Trading:     TradingConfig{LotSize: 0.1, TradeTargetUSD: 50, DailyTargetUSD: 500},
		Risk: RiskConfig{
			MaxSpreadPips: 3.0, MaxSlippagePips: 2.0, MaxConcurrentOrders: 4,
			EnableDailyStop: true, EnableDailyTarget: false, DailyStopUSD: 300, DailyTargetUSD: 500,
		},
		Session: SessionConfig{Enabled: true, StartHHMM: "08:00", EndHHMM: "17:00"},
		Symbols: SymbolsConfig{Pain: []string{}, Gain: []string{}},
		Store:   StoreConfig{SQLitePath: "barwatch.db", RetentionDays: 90},
		Control: ControlConfig{BindAddr: ":8080"},
	}
}

// Load reads a JSON config file at path, overlays a .env file in the same
// style as the teacher's bootstrap (godotenv.Load is best-effort — a
// missing .env is not an error), and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional .env overlay; absence is not fatal

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	overlayEnv(&cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func overlayEnv(cfg *Config) {
	if v := os.Getenv("BARWATCH_CONTROL_SIGNING_KEY"); v != "" {
		cfg.Control.SigningKey = v
	}
	if v := os.Getenv("BARWATCH_CONTROL_OPERATOR_SECRET"); v != "" {
		cfg.Control.OperatorSecret = v
	}
	if v := os.Getenv("BARWATCH_CONTROL_TOTP_SECRET"); v != "" {
		cfg.Control.TOTPSecret = v
	}
	if v := os.Getenv("BARWATCH_EXCHANGE_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("BARWATCH_EXCHANGE_SECRET_KEY"); v != "" {
		cfg.Exchange.SecretKey = v
	}
}

func validate(cfg Config) error {
	if cfg.Environment.DailyCloseHour < 0 || cfg.Environment.DailyCloseHour > 23 {
		return fmt.Errorf("config: daily_close_hour out of range: %d", cfg.Environment.DailyCloseHour)
	}
	if cfg.Environment.Timezone == "" {
		return fmt.Errorf("config: environment.timezone is required")
	}
	if cfg.Indicators.SnakePeriod <= 0 || cfg.Indicators.PurpleLinePeriod <= 0 {
		return fmt.Errorf("config: indicator periods must be positive")
	}
	if len(cfg.Symbols.Pain) == 0 && len(cfg.Symbols.Gain) == 0 {
		return fmt.Errorf("config: at least one symbol must be configured")
	}
	if cfg.Session.Enabled {
		for _, hhmm := range []string{cfg.Session.StartHHMM, cfg.Session.EndHHMM} {
			if _, err := time.Parse("15:04", hhmm); len(hhmm) != 5 || err != nil {
				return fmt.Errorf("config: session time %q is not HH:MM", hhmm)
			}
		}
	}
	switch cfg.Exchange.Kind {
	case "binancefutures", "alpaca", "sim":
	default:
		return fmt.Errorf("config: exchange.kind must be one of binancefutures, alpaca, sim, got %q", cfg.Exchange.Kind)
	}
	return nil
}
