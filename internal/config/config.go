package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"EventStudy/internal/capm"
	"EventStudy/internal/dataset"
	"EventStudy/internal/mathctx"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Data struct {
		Dir              string `yaml:"dir"`
		RiskFreeFile     string `yaml:"risk_free_file"`
		EventsFile       string `yaml:"events_file"`
		PriceLayout      string `yaml:"price_layout"` // canonical | dutch
		ArchiveDownloads bool   `yaml:"archive_downloads"`
	} `yaml:"data"`
	Source struct {
		Provider string        `yaml:"provider"` // yahoo | csv | mock
		BaseURL  string        `yaml:"base_url"`
		Proxy    string        `yaml:"proxy"`
		Timeout  time.Duration `yaml:"timeout"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"source"`
	Analysis struct {
		Precision        int    `yaml:"precision"`
		Rounding         string `yaml:"rounding"`
		EstimationYears  int    `yaml:"estimation_years"`
		EventWindowDays  int    `yaml:"event_window_days"`
		SearchLimitDays  int    `yaml:"search_limit_days"`
		RiskFreeTenor    string `yaml:"risk_free_tenor"`
		RiskFreeFallback string `yaml:"risk_free_fallback"`
		Workers          int    `yaml:"workers"`
		TrendDaysBefore  int    `yaml:"trend_days_before"`
	} `yaml:"analysis"`
	Output struct {
		DecimalSeparator string `yaml:"decimal_separator"`
		LogFile          string `yaml:"log_file"`
	} `yaml:"output"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load reads config from a YAML file and a .env file beside the working
// directory, then applies environment variable overrides and defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN":            &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":              &c.Telegram.ChatID,
		"HTTPS_PROXY":                   &c.Source.Proxy,
		"SQLITE_PATH":                   &c.Database.SQLitePath,
		"EVENTSTUDY_DATA_DIR":           &c.Data.Dir,
		"EVENTSTUDY_RISK_FREE_FILE":     &c.Data.RiskFreeFile,
		"EVENTSTUDY_EVENTS_FILE":        &c.Data.EventsFile,
		"EVENTSTUDY_PRICE_LAYOUT":       &c.Data.PriceLayout,
		"EVENTSTUDY_PROVIDER":           &c.Source.Provider,
		"EVENTSTUDY_BASE_URL":           &c.Source.BaseURL,
		"EVENTSTUDY_ROUNDING":           &c.Analysis.Rounding,
		"EVENTSTUDY_RISK_FREE_TENOR":    &c.Analysis.RiskFreeTenor,
		"EVENTSTUDY_RISK_FREE_FALLBACK": &c.Analysis.RiskFreeFallback,
		"EVENTSTUDY_DECIMAL_SEPARATOR":  &c.Output.DecimalSeparator,
		"EVENTSTUDY_LOG_FILE":           &c.Output.LogFile,
		"EVENTSTUDY_CRON":               &c.Schedule.Cron,
		"EVENTSTUDY_LOG_LEVEL":          &c.Log.Level,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"EVENTSTUDY_PRECISION":         &c.Analysis.Precision,
		"EVENTSTUDY_ESTIMATION_YEARS":  &c.Analysis.EstimationYears,
		"EVENTSTUDY_EVENT_WINDOW_DAYS": &c.Analysis.EventWindowDays,
		"EVENTSTUDY_WORKERS":           &c.Analysis.Workers,
		"EVENTSTUDY_SEARCH_LIMIT_DAYS": &c.Analysis.SearchLimitDays,
		"EVENTSTUDY_TREND_DAYS_BEFORE": &c.Analysis.TrendDaysBefore,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"EVENTSTUDY_ARCHIVE_DOWNLOADS": &c.Data.ArchiveDownloads,
		"EVENTSTUDY_LOG_DEVELOPMENT":   &c.Log.Development,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"EVENTSTUDY_TIMEOUT":   &c.Source.Timeout,
		"EVENTSTUDY_CACHE_TTL": &c.Source.CacheTTL,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Data.RiskFreeFile == "" {
		c.Data.RiskFreeFile = filepath.Join(c.Data.Dir, "RFIrate.csv")
	}
	if c.Data.EventsFile == "" {
		c.Data.EventsFile = filepath.Join(c.Data.Dir, "attacks.csv")
	}
	if c.Data.PriceLayout == "" {
		c.Data.PriceLayout = "dutch"
	}
	if c.Source.Provider == "" {
		c.Source.Provider = "yahoo"
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = 30 * time.Second
	}
	if c.Source.CacheTTL == 0 {
		c.Source.CacheTTL = time.Hour
	}
	if c.Analysis.Precision == 0 {
		c.Analysis.Precision = 10
	}
	if c.Analysis.Rounding == "" {
		c.Analysis.Rounding = "half_up"
	}
	if c.Analysis.EstimationYears == 0 {
		c.Analysis.EstimationYears = 1
	}
	if c.Analysis.EventWindowDays == 0 {
		c.Analysis.EventWindowDays = 5
	}
	if c.Analysis.SearchLimitDays == 0 {
		c.Analysis.SearchLimitDays = capm.DefaultSearchLimitDays
	}
	if c.Analysis.RiskFreeTenor == "" {
		c.Analysis.RiskFreeTenor = capm.DefaultTenor
	}
	if c.Analysis.RiskFreeFallback == "" {
		c.Analysis.RiskFreeFallback = "0"
	}
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = 4
	}
	if c.Analysis.TrendDaysBefore == 0 {
		c.Analysis.TrendDaysBefore = 120
	}
	if c.Output.DecimalSeparator == "" {
		c.Output.DecimalSeparator = "."
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 0 7 * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if _, err := dataset.ParseFormat(c.Data.PriceLayout); err != nil {
		return fmt.Errorf("data.price_layout: %w", err)
	}
	switch c.Source.Provider {
	case "yahoo", "csv", "mock":
	default:
		return fmt.Errorf("source.provider must be yahoo, csv or mock, got %q", c.Source.Provider)
	}
	if _, err := c.MathContext(); err != nil {
		return err
	}
	if c.Analysis.EstimationYears < 1 {
		return fmt.Errorf("analysis.estimation_years must be positive")
	}
	if c.Analysis.EventWindowDays < 1 {
		return fmt.Errorf("analysis.event_window_days must be positive")
	}
	if c.Analysis.SearchLimitDays < 1 {
		return fmt.Errorf("analysis.search_limit_days must be positive")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be positive")
	}
	if c.Analysis.TrendDaysBefore < 2 {
		return fmt.Errorf("analysis.trend_days_before must be at least 2")
	}
	if _, err := c.RiskFreeFallback(); err != nil {
		return err
	}
	if s := c.Output.DecimalSeparator; s != "." && s != "," {
		return fmt.Errorf("output.decimal_separator must be \".\" or \",\", got %q", s)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// MathContext builds the decimal context of every division.
func (c *Config) MathContext() (mathctx.Context, error) {
	r, err := mathctx.ParseRounding(c.Analysis.Rounding)
	if err != nil {
		return mathctx.Context{}, fmt.Errorf("analysis.rounding: %w", err)
	}
	mc, err := mathctx.New(c.Analysis.Precision, r)
	if err != nil {
		return mathctx.Context{}, fmt.Errorf("analysis.precision: %w", err)
	}
	return mc, nil
}

// RiskFreeFallback parses the rate used when the table has no exact date.
func (c *Config) RiskFreeFallback() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Analysis.RiskFreeFallback)
	if err != nil {
		return decimal.Zero, fmt.Errorf("analysis.risk_free_fallback: %w", err)
	}
	return d, nil
}

// PriceFormat is the file format of archived and local price files.
func (c *Config) PriceFormat() dataset.Format {
	f, _ := dataset.ParseFormat(c.Data.PriceLayout)
	return f
}

// TelegramEnabled reports whether delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
