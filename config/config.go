// Package config loads orion-arb's layered configuration: a YAML file with
// an optional .env overlay for secrets and log overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete, immutable configuration for one engine run.
// It is constructed once by Load and passed by value/pointer to every
// constructor that needs it — never read from a package-level global.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Trading    TradingConfig    `yaml:"trading"`
	Capital    CapitalConfig    `yaml:"capital"`
	Risk       RiskConfig       `yaml:"risk"`
	Fees       FeesConfig       `yaml:"fees"`
	Polling    PollingConfig    `yaml:"polling"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// APIConfig holds the venue endpoints. These are deployment topology,
// not trading parameters, so they're also overridable from env.
type APIConfig struct {
	VenueABaseURL   string `yaml:"venue_a_base_url"`
	VenueBClobBase  string `yaml:"venue_b_clob_base"`
	VenueBGammaBase string `yaml:"venue_b_gamma_base"`
	VenueBRPCURL    string `yaml:"venue_b_rpc_url"`
}

// TradingConfig controls opportunity detection and sizing thresholds.
type TradingConfig struct {
	ThresholdSpread   float64 `yaml:"threshold_spread"`
	MinTradeSizeUSD   float64 `yaml:"min_trade_size_usd"`
	MaxTradeSizePct   float64 `yaml:"max_trade_size_pct"`
	TargetLiquidity   float64 `yaml:"target_liquidity_depth"`
	SlippageTolerance float64 `yaml:"slippage_tolerance"`
	AutoExecute       bool    `yaml:"auto_execute"`
}

// CapitalConfig controls bankroll allocation and rebalancing policy.
type CapitalConfig struct {
	InitialBankroll     float64 `yaml:"initial_bankroll"`
	VenueAAllocationPct float64 `yaml:"kalshi_allocation_pct"`
	VenueBAllocationPct float64 `yaml:"polymarket_allocation_pct"`
	ReservePct          float64 `yaml:"reserve_pct"`
	RebalanceThreshold  float64 `yaml:"rebalance_threshold"`
	MaxDaysToResolution int     `yaml:"max_days_to_resolution"`
	HighReturnThreshold float64 `yaml:"high_return_threshold"`
}

// RiskConfig bounds position concentration, daily loss, and the
// circuit breaker's drawdown latch.
type RiskConfig struct {
	MaxOpenPositions    int     `yaml:"max_open_positions"`
	MaxExposurePerEvent float64 `yaml:"max_exposure_per_event"`
	MaxDailyLossPct     float64 `yaml:"max_daily_loss_pct"`
	MaxDrawdownPct      float64 `yaml:"max_drawdown_pct"`
	ResetHourUTC        int     `yaml:"reset_hour_utc"`
}

// FeesConfig holds the per-venue fee model used in net-edge calculation.
type FeesConfig struct {
	VenueAFeePct      float64 `yaml:"kalshi_fee_pct"`
	VenueBFeePct      float64 `yaml:"polymarket_fee_pct"`
	BlockchainCostUSD float64 `yaml:"blockchain_cost_usd"`
}

// PollingConfig controls the engine tick cadence.
type PollingConfig struct {
	IntervalSec int `yaml:"interval_sec"`
}

// MonitoringConfig selects alert channels and gating thresholds.
type MonitoringConfig struct {
	AlertChannels          []string `yaml:"alert_channels"`
	AlertThresholdSpread   float64  `yaml:"alert_threshold_spread"`
	AlertMinOpportunityUSD float64  `yaml:"alert_min_opportunity_usd"`
}

// StorageConfig controls where the journal persists.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig controls the format and verbosity of structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML config at path, layers in a .env file if present
// (its variables supply secrets and may override log settings, the storage
// DSN and the venue endpoint URLs — never trading parameters), and fills in
// defaults for anything left unset.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// PollInterval returns the engine tick cadence as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalSec) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("VENUE_A_BASE_URL"); v != "" {
		cfg.API.VenueABaseURL = v
	}
	if v := os.Getenv("VENUE_B_CLOB_BASE"); v != "" {
		cfg.API.VenueBClobBase = v
	}
	if v := os.Getenv("VENUE_B_GAMMA_BASE"); v != "" {
		cfg.API.VenueBGammaBase = v
	}
	if v := os.Getenv("VENUE_B_RPC_URL"); v != "" {
		cfg.API.VenueBRPCURL = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.API.VenueABaseURL == "" {
		cfg.API.VenueABaseURL = "https://api.elections.kalshi.com/trade-api/v2"
	}
	if cfg.API.VenueBClobBase == "" {
		cfg.API.VenueBClobBase = "https://clob.polymarket.com"
	}
	if cfg.API.VenueBGammaBase == "" {
		cfg.API.VenueBGammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.VenueBRPCURL == "" {
		cfg.API.VenueBRPCURL = "https://polygon-rpc.com"
	}
	if cfg.Trading.ThresholdSpread <= 0 {
		cfg.Trading.ThresholdSpread = 0.02
	}
	if cfg.Trading.MinTradeSizeUSD <= 0 {
		cfg.Trading.MinTradeSizeUSD = 10
	}
	if cfg.Trading.MaxTradeSizePct <= 0 {
		cfg.Trading.MaxTradeSizePct = 0.1
	}
	if cfg.Trading.SlippageTolerance <= 0 {
		cfg.Trading.SlippageTolerance = 0.01
	}
	if cfg.Capital.InitialBankroll <= 0 {
		cfg.Capital.InitialBankroll = 1000
	}
	if cfg.Capital.VenueAAllocationPct <= 0 {
		cfg.Capital.VenueAAllocationPct = 0.5
	}
	if cfg.Capital.VenueBAllocationPct <= 0 {
		cfg.Capital.VenueBAllocationPct = 0.5
	}
	if cfg.Capital.ReservePct <= 0 {
		cfg.Capital.ReservePct = 0.2
	}
	if cfg.Capital.RebalanceThreshold <= 0 {
		cfg.Capital.RebalanceThreshold = 0.3
	}
	if cfg.Capital.MaxDaysToResolution <= 0 {
		cfg.Capital.MaxDaysToResolution = 30
	}
	if cfg.Capital.HighReturnThreshold <= 0 {
		cfg.Capital.HighReturnThreshold = 0.15
	}
	if cfg.Risk.MaxOpenPositions <= 0 {
		cfg.Risk.MaxOpenPositions = 10
	}
	if cfg.Risk.MaxExposurePerEvent <= 0 {
		cfg.Risk.MaxExposurePerEvent = 0.2
	}
	if cfg.Risk.MaxDailyLossPct <= 0 {
		cfg.Risk.MaxDailyLossPct = 0.05
	}
	if cfg.Risk.MaxDrawdownPct <= 0 {
		cfg.Risk.MaxDrawdownPct = 0.15
	}
	if cfg.Fees.VenueAFeePct < 0 {
		cfg.Fees.VenueAFeePct = 0.01
	}
	if cfg.Fees.VenueBFeePct < 0 {
		cfg.Fees.VenueBFeePct = 0.02
	}
	if cfg.Fees.BlockchainCostUSD < 0 {
		cfg.Fees.BlockchainCostUSD = 0.50
	}
	if cfg.Polling.IntervalSec <= 0 {
		cfg.Polling.IntervalSec = 30
	}
	if cfg.Monitoring.AlertThresholdSpread <= 0 {
		cfg.Monitoring.AlertThresholdSpread = cfg.Trading.ThresholdSpread
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "orion.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
