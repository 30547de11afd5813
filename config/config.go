package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rustyeddy/candletrades/gemini"
	"github.com/rustyeddy/candletrades/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config is the complete run configuration.
type Config struct {
	Pair     string         `json:"pair" yaml:"pair"`
	Base     string         `json:"base,omitempty" yaml:"base,omitempty"`
	Quote    string         `json:"quote,omitempty" yaml:"quote,omitempty"`
	Window   int            `json:"window" yaml:"window"` // number of recent candles
	Timezone string         `json:"timezone" yaml:"timezone"`
	Exchange ExchangeConfig `json:"exchange" yaml:"exchange"`
	Trades   TradesConfig   `json:"trades" yaml:"trades"`
	Output   OutputConfig   `json:"output" yaml:"output"`
	Upload   UploadConfig   `json:"upload" yaml:"upload"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
	Log      logger.Config  `json:"log" yaml:"log"`
}

// ExchangeConfig holds the candle and trade endpoints. Empty URLs are
// derived from the pair.
type ExchangeConfig struct {
	CandlesURL        string  `json:"candles_url,omitempty" yaml:"candles_url,omitempty"`
	TradesURL         string  `json:"trades_url,omitempty" yaml:"trades_url,omitempty"`
	Timeout           string  `json:"timeout" yaml:"timeout"` // e.g. "15s"
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// TradesConfig bounds the backward trade walk.
type TradesConfig struct {
	PageLimit int    `json:"page_limit" yaml:"page_limit"`
	MaxPages  int    `json:"max_pages" yaml:"max_pages"`
	Budget    string `json:"budget" yaml:"budget"` // wall clock for one walk
}

type OutputConfig struct {
	File string `json:"file" yaml:"file"`
}

// UploadConfig targets an S3-compatible bucket. Credentials left empty come
// from the standard AWS chain.
type UploadConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	Bucket          string `json:"bucket" yaml:"bucket"`
	Prefix          string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region          string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
}

// JournalConfig enables the SQLite run journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// MetricsConfig controls where run metrics go. Textfile is rewritten after
// every run; Addr serves /metrics in schedule mode.
type MetricsConfig struct {
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

type ScheduleConfig struct {
	Every string `json:"every,omitempty" yaml:"every,omitempty"` // defaults to the window length
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	cfg := defaults()
	cfg.Resolve()
	return cfg
}

// defaults leaves pair-derived fields empty so overrides of the pair
// resolve to matching assets and endpoints.
func defaults() *Config {
	return &Config{
		Pair:     "BTCUSD",
		Window:   10,
		Timezone: "America/New_York",
		Exchange: ExchangeConfig{
			Timeout:           gemini.DefaultTimeout.String(),
			RequestsPerSecond: gemini.DefaultRequestsPerSecond,
		},
		Trades: TradesConfig{
			PageLimit: 500,
			MaxPages:  200,
			Budget:    "2m",
		},
		Output: OutputConfig{File: "candle_min_final.csv"},
		Upload: UploadConfig{
			Enabled: true,
			Bucket:  "gemini-data-landing",
		},
		Journal: JournalConfig{
			Enabled: true,
			DBPath:  "./candletrades.db",
		},
		Log: logger.DefaultConfig(),
	}
}

// LoadFromFile loads configuration from a file (YAML, or JSON as a fallback)
// layered over Default, then validates it.
func LoadFromFile(path string) (*Config, error) {
	cfg := defaults()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	cfg.Resolve()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load reads path (or just the defaults when path is empty), applies
// CANDLETRADES_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Resolve()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	base := *c
	if err := yaml.Unmarshal(data, c); err != nil {
		*c = base
		if jerr := json.Unmarshal(data, c); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

// SaveToFile saves configuration as YAML for .yaml/.yml paths, JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Resolve fills fields that derive from the pair: base and quote assets and
// empty endpoint URLs.
func (c *Config) Resolve() {
	c.Pair = strings.ToUpper(strings.TrimSpace(c.Pair))
	if c.Base == "" || c.Quote == "" {
		if base, quote, ok := SplitPair(c.Pair); ok {
			if c.Base == "" {
				c.Base = base
			}
			if c.Quote == "" {
				c.Quote = quote
			}
		}
	}
	if c.Exchange.CandlesURL == "" && c.Pair != "" {
		c.Exchange.CandlesURL = gemini.CandlesURL(gemini.BaseURL, c.Pair)
	}
	if c.Exchange.TradesURL == "" && c.Pair != "" {
		c.Exchange.TradesURL = gemini.TradesURL(gemini.BaseURL, c.Pair)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Pair == "" {
		return fmt.Errorf("pair is required")
	}
	if c.Base == "" || c.Quote == "" {
		return fmt.Errorf("base and quote are required for pair %s", c.Pair)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if c.Exchange.CandlesURL == "" || c.Exchange.TradesURL == "" {
		return fmt.Errorf("exchange candles_url and trades_url are required")
	}
	if _, err := c.Exchange.TimeoutDuration(); err != nil {
		return fmt.Errorf("exchange.timeout: %w", err)
	}
	if c.Exchange.RequestsPerSecond < 0 {
		return fmt.Errorf("exchange.requests_per_second must not be negative")
	}
	if c.Trades.PageLimit <= 0 {
		return fmt.Errorf("trades.page_limit must be positive")
	}
	if c.Trades.MaxPages < 0 {
		return fmt.Errorf("trades.max_pages must not be negative")
	}
	if _, err := c.Trades.BudgetDuration(); err != nil {
		return fmt.Errorf("trades.budget: %w", err)
	}
	if c.Output.File == "" {
		return fmt.Errorf("output.file is required")
	}
	if c.Upload.Enabled && c.Upload.Bucket == "" {
		return fmt.Errorf("upload.bucket required when upload is enabled")
	}
	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path required when journal is enabled")
	}
	if _, err := c.ScheduleEvery(); err != nil {
		return fmt.Errorf("schedule.every: %w", err)
	}
	return c.Log.Validate()
}

// Location loads the display time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// TimeoutDuration parses Timeout; empty means the client default.
func (e ExchangeConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration(e.Timeout)
}

// BudgetDuration parses Budget; empty means the collector default.
func (t TradesConfig) BudgetDuration() (time.Duration, error) {
	return parseDuration(t.Budget)
}

// ScheduleEvery is the interval between scheduled runs. It defaults to one
// window's worth of minutes.
func (c *Config) ScheduleEvery() (time.Duration, error) {
	d, err := parseDuration(c.Schedule.Every)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		d = time.Duration(c.Window) * time.Minute
	}
	return d, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

var quoteAssets = []string{"GUSD", "USDT", "USDC", "USD", "EUR", "GBP", "SGD", "DAI", "BTC", "ETH"}

// SplitPair splits a symbol like BTCUSD into base and quote assets by
// matching a known quote suffix.
func SplitPair(pair string) (base, quote string, ok bool) {
	pair = strings.ToUpper(pair)
	for _, q := range quoteAssets {
		if len(pair) > len(q) && strings.HasSuffix(pair, q) {
			return pair[:len(pair)-len(q)], q, true
		}
	}
	return "", "", false
}
