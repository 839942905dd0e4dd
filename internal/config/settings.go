// FILE: settings.go
// Package config loads nested runtime settings from config/settings.yaml
// with ${VAR:-default} environment substitution, overlaid by a .env file
// for exchange credentials — replacing the teacher's flat env.go/config.go
// with a structured loader (spec §6 has a nested config surface a flat
// key-value env table can't express).
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ExchangeConfig describes one connected exchange.
type ExchangeConfig struct {
	ID          string  `yaml:"id"`
	Enabled     bool    `yaml:"enabled"`
	TakerFeePct float64 `yaml:"taker_fee_pct"`
}

// RedisConfig addresses the store backend (internal/store).
type RedisConfig struct {
	URL  string `yaml:"url"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig controls log verbosity and heartbeat cadence.
type LoggingConfig struct {
	Level             string  `yaml:"level"`
	HeartbeatInterval int     `yaml:"heartbeat_interval"`
	MinNetSpread      float64 `yaml:"min_net_spread"`
}

// FundingConfig controls the funding-rate polling/logging loop.
type FundingConfig struct {
	Enabled            bool     `yaml:"enabled"`
	PollIntervalSec    int      `yaml:"poll_interval"`
	LogIntervalSec     int      `yaml:"log_interval"`
	MinAnnualizedPct   float64  `yaml:"min_annualized_pct"`
	MinCrossSpreadPct  float64  `yaml:"min_cross_spread_pct"`
	ExcludedExchanges  []string `yaml:"excluded_exchanges"`
}

// TradingConfig controls the basis-trade engine itself.
type TradingConfig struct {
	Enabled                 bool     `yaml:"enabled"`
	PaperTrading            bool     `yaml:"paper_trading"`
	PositionSizeUSDT        float64  `yaml:"position_size_usdt"`
	MinEntryAnnualizedPct   float64  `yaml:"min_entry_annualized_pct"`
	MinExitAnnualizedPct    float64  `yaml:"min_exit_annualized_pct"`
	MaxPositionsPerExchange int      `yaml:"max_positions_per_exchange"`
	MaxTotalPositions       int      `yaml:"max_total_positions"`
	CheckIntervalSec        int      `yaml:"check_interval"`
	Exchanges               []string `yaml:"exchanges"`
}

// CapitalConfig mirrors tier_config.py's CAPITAL_CONFIG block (spec §3).
type CapitalConfig struct {
	Total            float64 `yaml:"total"`
	Operative        float64 `yaml:"operative"`
	ReserveRebalance float64 `yaml:"reserve_rebalance"`
	StableBuffer     float64 `yaml:"stable_buffer"`
}

// Settings is the fully-resolved runtime configuration tree.
type Settings struct {
	Exchanges []ExchangeConfig `yaml:"exchanges"`
	Symbols   []string         `yaml:"symbols"`
	Logging   LoggingConfig    `yaml:"logging"`
	Redis     RedisConfig      `yaml:"redis"`
	Funding   FundingConfig    `yaml:"funding"`
	Trading   TradingConfig    `yaml:"trading"`
	Capital   CapitalConfig    `yaml:"capital"`
}

// EnabledExchanges returns the subset of Exchanges with Enabled set.
func (s Settings) EnabledExchanges() []ExchangeConfig {
	var out []ExchangeConfig
	for _, e := range s.Exchanges {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}

func defaultSettings() Settings {
	return Settings{
		Logging: LoggingConfig{Level: "INFO", HeartbeatInterval: 5, MinNetSpread: -0.05},
		Redis:   RedisConfig{Host: "localhost", Port: 6379},
		Funding: FundingConfig{PollIntervalSec: 300, LogIntervalSec: 60, MinAnnualizedPct: 5.0, MinCrossSpreadPct: 0.005},
		Trading: TradingConfig{
			PaperTrading: true, PositionSizeUSDT: 100, MinEntryAnnualizedPct: 10,
			MinExitAnnualizedPct: 3, MaxPositionsPerExchange: 3, MaxTotalPositions: 10,
			CheckIntervalSec: 60,
		},
	}
}

var envVarPattern = regexp.MustCompile(`\$\{(\w+)(?::-(.*?))?\}`)

// resolveEnvVars expands ${VAR:-default} references in s against the
// current process environment.
func resolveEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[2]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return def
	})
}

// Load reads settings.yaml at path, resolves ${VAR:-default} references
// in the redis block, and overlays a .env file (if present) for exchange
// credentials via github.com/joho/godotenv — godotenv.Load() only sets
// vars not already present in the environment, so real env vars win.
func Load(path string) (Settings, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaultSettings()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if len(cfg.Symbols) == 0 {
		return Settings{}, fmt.Errorf("config: no symbols configured in %s", path)
	}

	cfg.Redis.URL = resolveEnvVars(cfg.Redis.URL)
	cfg.Redis.Host = resolveEnvVars(cfg.Redis.Host)

	return cfg, nil
}

// Credentials holds an exchange API key triple, resolved from
// {ID}_API_KEY / {ID}_SECRET / {ID}_PASSWORD environment variables
// (uppercased exchange id as prefix), matching the original's
// connect_exchange env lookup convention.
type Credentials struct {
	APIKey   string
	Secret   string
	Password string
}

// CredentialsFor resolves API credentials for exchange id from the
// process environment (populated by Load's godotenv overlay).
func CredentialsFor(exchangeID string) Credentials {
	prefix := upper(exchangeID)
	return Credentials{
		APIKey:   os.Getenv(prefix + "_API_KEY"),
		Secret:   os.Getenv(prefix + "_SECRET"),
		Password: os.Getenv(prefix + "_PASSWORD"),
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
