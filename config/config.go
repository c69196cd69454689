// Package config loads cashledger service configuration from an optional
// .env file, an optional YAML file and CASHLEDGER_* environment variables,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/types"
)

// EnvPrefix prefixes every environment override, e.g. CASHLEDGER_STORE_DSN.
const EnvPrefix = "CASHLEDGER"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Driver is one of memory, postgres or sqlite (default: memory).
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN is the connection string; a file path for sqlite.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`
}

// Config holds the cashledger service configuration.
type Config struct {
	// HTTPAddr is the listen address of the HTTP API (default: ":8080").
	HTTPAddr string `json:"http_addr" mapstructure:"http_addr" yaml:"http_addr"`

	// BasePath is the URL prefix for API routes (default: "/api/v1").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// DisableMigrate prevents schema migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	Store StoreConfig `json:"store" mapstructure:"store" yaml:"store"`

	// LogLevel is debug, info, warn or error (default: info).
	LogLevel string `json:"log_level" mapstructure:"log_level" yaml:"log_level"`

	// Timezone is the IANA zone whose calendar defines "today". It is
	// required; an unknown zone fails startup.
	Timezone string `json:"timezone" mapstructure:"timezone" yaml:"timezone"`

	// Horizon is day or month (default: month).
	Horizon string `json:"horizon" mapstructure:"horizon" yaml:"horizon"`

	// SchedulerInterval is how often due recurrences are advanced. Zero
	// disables the background scheduler (default: 1h).
	SchedulerInterval time.Duration `json:"scheduler_interval" mapstructure:"scheduler_interval" yaml:"scheduler_interval"`

	// SchedulerConcurrency bounds recurrences advanced in parallel (default: 8).
	SchedulerConcurrency int `json:"scheduler_concurrency" mapstructure:"scheduler_concurrency" yaml:"scheduler_concurrency"`

	// SchedulerBatchSize caps recurrences handled per run (default: 500).
	SchedulerBatchSize int `json:"scheduler_batch_size" mapstructure:"scheduler_batch_size" yaml:"scheduler_batch_size"`

	// Currencies lists the accepted ISO codes (default: every known code).
	Currencies []string `json:"currencies" mapstructure:"currencies" yaml:"currencies"`

	// IdempotencyTTL is how long a payment response is replayed for a
	// repeated Idempotency-Key (default: 24h).
	IdempotencyTTL time.Duration `json:"idempotency_ttl" mapstructure:"idempotency_ttl" yaml:"idempotency_ttl"`

	// RateLimit is the sustained requests per second allowed per store;
	// zero disables limiting (default: 50).
	RateLimit float64 `json:"rate_limit" mapstructure:"rate_limit" yaml:"rate_limit"`

	// RateBurst is the token bucket size (default: 100).
	RateBurst int `json:"rate_burst" mapstructure:"rate_burst" yaml:"rate_burst"`

	// HookTimeout bounds a single plugin call (default: 5s).
	HookTimeout time.Duration `json:"hook_timeout" mapstructure:"hook_timeout" yaml:"hook_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:             ":8080",
		BasePath:             "/api/v1",
		Store:                StoreConfig{Driver: DriverMemory},
		LogLevel:             "info",
		Timezone:             "UTC",
		Horizon:              string(recurrence.HorizonMonth),
		SchedulerInterval:    time.Hour,
		SchedulerConcurrency: 8,
		SchedulerBatchSize:   500,
		Currencies:           types.KnownCurrencies(),
		IdempotencyTTL:       24 * time.Hour,
		RateLimit:            50,
		RateBurst:            100,
		HookTimeout:          5 * time.Second,
	}
}

// Load reads configuration. A .env file in the working directory is
// loaded first if present. When path is empty, cashledger.yaml in the
// working directory is used if it exists.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("cashledger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal config: %w", err)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("base_path", d.BasePath)
	v.SetDefault("disable_migrate", d.DisableMigrate)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("horizon", d.Horizon)
	v.SetDefault("scheduler_interval", d.SchedulerInterval)
	v.SetDefault("scheduler_concurrency", d.SchedulerConcurrency)
	v.SetDefault("scheduler_batch_size", d.SchedulerBatchSize)
	v.SetDefault("currencies", d.Currencies)
	v.SetDefault("idempotency_ttl", d.IdempotencyTTL)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("rate_burst", d.RateBurst)
	v.SetDefault("hook_timeout", d.HookTimeout)
}

// Normalize trims and lowercases enumerated fields, roots BasePath and
// upper-cases currency codes. Load calls it before Validate.
func (c *Config) Normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Horizon = strings.ToLower(strings.TrimSpace(c.Horizon))
	c.BasePath = "/" + strings.Trim(c.BasePath, "/")
	codes := c.Currencies[:0]
	for _, code := range c.Currencies {
		if code = types.NormalizeCurrency(code); code != "" {
			codes = append(codes, code)
		}
	}
	c.Currencies = codes
}

// Validate checks required fields and value ranges.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}

	if c.Timezone == "" {
		errs = append(errs, errors.New("timezone is required"))
	} else if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if !recurrence.Horizon(c.Horizon).IsValid() {
		errs = append(errs, fmt.Errorf("horizon: unknown horizon %q", c.Horizon))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.SchedulerInterval < 0 {
		errs = append(errs, errors.New("scheduler_interval must not be negative"))
	}
	if c.SchedulerConcurrency < 1 {
		errs = append(errs, errors.New("scheduler_concurrency must be at least 1"))
	}
	if len(c.Currencies) == 0 {
		errs = append(errs, errors.New("currencies must not be empty"))
	}
	for _, code := range c.Currencies {
		if _, ok := types.LookupCurrency(code); !ok {
			errs = append(errs, fmt.Errorf("currencies: unknown code %q", code))
		}
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate_limit must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// LedgerOptions converts the configuration into engine options.
func (c Config) LedgerOptions(logger *slog.Logger) ([]cashledger.Option, error) {
	clock, err := cashledger.NewClock(c.Timezone)
	if err != nil {
		return nil, err
	}

	opts := []cashledger.Option{
		cashledger.WithClock(clock),
		cashledger.WithCurrencies(c.Currencies...),
		cashledger.WithHorizon(recurrence.Horizon(c.Horizon)),
		cashledger.WithScheduler(c.SchedulerInterval, c.SchedulerConcurrency, c.SchedulerBatchSize),
		cashledger.WithHookTimeout(c.HookTimeout),
	}
	if c.DisableMigrate {
		opts = append(opts, cashledger.WithoutMigrate())
	}
	if logger != nil {
		opts = append(opts, cashledger.WithLogger(logger))
	}
	return opts, nil
}
