// Package extension provides the Forge extension adapter for cashledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration, lifecycle management
// and HTTP routes.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.cashledger" or
// "cashledger" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/api"
	"github.com/xraph/cashledger/config"
	"github.com/xraph/cashledger/observability"
	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/store/backend"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "cashledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Multi-store cash ledger: payables, receivables and recurrences"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts cashledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	ledger     *cashledger.Ledger
	store      store.Store
	server     *api.Server
	ledgerOpts []cashledger.Option
	apiOpts    []api.Option
	useGrove   bool
}

// New creates a new cashledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying ledger. It is nil until Register is called.
func (e *Extension) Ledger() *cashledger.Ledger { return e.ledger }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration, builds
// the store and the ledger, registers the ledger in the DI container and
// mounts the HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := e.resolveStore(fapp)
		if err != nil {
			return err
		}
		e.store = s
	}

	opts, err := e.buildLedgerOpts(fapp)
	if err != nil {
		return err
	}
	e.ledger = cashledger.New(e.store, opts...)

	if err := vessel.Provide(fapp.Container(), func() (*cashledger.Ledger, error) {
		return e.ledger, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes {
		return nil
	}
	return e.registerRoutes(fapp.Router())
}

// Start implements [forge.Extension]. Migrations run here unless
// disabled, then the background scheduler starts.
func (e *Extension) Start(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("cashledger: extension not initialized")
	}

	if err := e.ledger.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.ledger != nil {
		if err := e.ledger.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("cashledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// resolveStore builds the store from a DI-provided grove.DB when asked
// to, otherwise from the configured driver.
func (e *Extension) resolveStore(fapp forge.App) (store.Store, error) {
	if !e.useGrove && e.config.GroveDatabase == "" {
		return backend.Open(context.Background(), e.config.Store)
	}

	var (
		db  *grove.DB
		err error
	)
	if e.config.GroveDatabase != "" {
		db, err = vessel.InjectNamed[*grove.DB](fapp.Container(), e.config.GroveDatabase)
	} else {
		db, err = vessel.Inject[*grove.DB](fapp.Container())
	}
	if err != nil {
		return nil, fmt.Errorf("cashledger: resolve grove database: %w", err)
	}
	return backend.FromGrove(db)
}

// buildLedgerOpts constructs cashledger.Option values from the resolved config.
func (e *Extension) buildLedgerOpts(fapp forge.App) ([]cashledger.Option, error) {
	opts, err := e.config.LedgerOptions(nil)
	if err != nil {
		return nil, err
	}

	if m := fapp.Metrics(); m != nil {
		opts = append(opts, cashledger.WithPlugin(
			observability.NewMetricsExtension(observability.NewGoUtilsFactory(m)),
		))
	}

	// Append any pass-through ledger options.
	return append(opts, e.ledgerOpts...), nil
}

// registerRoutes mounts the ledger API under BasePath and the scheduler
// trigger. The host app serves its own health and metrics endpoints.
func (e *Extension) registerRoutes(router forge.Router) error {
	opts := append([]api.Option{
		api.WithBasePath(e.config.BasePath),
		api.WithIdempotencyTTL(e.config.IdempotencyTTL),
		api.WithRateLimit(e.config.RateLimit, e.config.RateBurst),
	}, e.apiOpts...)
	e.server = api.New(e.ledger, opts...)

	h := e.server.Handler()
	if err := router.Handle(e.config.BasePath, h); err != nil {
		return fmt.Errorf("cashledger: mount %s: %w", e.config.BasePath, err)
	}
	if err := router.Handle(api.SchedulerPath, h); err != nil {
		return fmt.Errorf("cashledger: mount %s: %w", api.SchedulerPath, err)
	}
	return nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources,
// then normalizes and validates it.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("cashledger: configuration is required but not found in config files; " +
				"ensure 'extensions.cashledger' or 'cashledger' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.config.Normalize()
	if err := e.config.Validate(); err != nil {
		return fmt.Errorf("cashledger: %w", err)
	}

	e.Logger().Debug("cashledger: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("store_driver", e.config.Store.Driver),
		forge.F("grove_database", e.config.GroveDatabase),
		forge.F("timezone", e.config.Timezone),
		forge.F("horizon", e.config.Horizon),
		forge.F("scheduler_interval", e.config.SchedulerInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.cashledger", "cashledger"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("cashledger: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("cashledger: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	fillZero(&cfg.Config, config.DefaultConfig())
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and
// programmatic bool flags override when true.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if yamlConfig.GroveDatabase == "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}
	yamlConfig.RequireConfig = programmaticConfig.RequireConfig

	fillZero(&yamlConfig.Config, programmaticConfig.Config)
	return mergeWithDefaults(yamlConfig)
}

// fillZero copies every field of src into dst where dst holds the zero value.
func fillZero(dst *config.Config, src config.Config) {
	if dst.HTTPAddr == "" {
		dst.HTTPAddr = src.HTTPAddr
	}
	if dst.BasePath == "" {
		dst.BasePath = src.BasePath
	}
	if dst.Store.Driver == "" {
		dst.Store = src.Store
	}
	if dst.LogLevel == "" {
		dst.LogLevel = src.LogLevel
	}
	if dst.Timezone == "" {
		dst.Timezone = src.Timezone
	}
	if dst.Horizon == "" {
		dst.Horizon = src.Horizon
	}
	if dst.SchedulerInterval == 0 {
		dst.SchedulerInterval = src.SchedulerInterval
	}
	if dst.SchedulerConcurrency == 0 {
		dst.SchedulerConcurrency = src.SchedulerConcurrency
	}
	if dst.SchedulerBatchSize == 0 {
		dst.SchedulerBatchSize = src.SchedulerBatchSize
	}
	if len(dst.Currencies) == 0 {
		dst.Currencies = src.Currencies
	}
	if dst.IdempotencyTTL == 0 {
		dst.IdempotencyTTL = src.IdempotencyTTL
	}
	if dst.RateLimit == 0 {
		dst.RateLimit = src.RateLimit
	}
	if dst.RateBurst == 0 {
		dst.RateBurst = src.RateBurst
	}
	if dst.HookTimeout == 0 {
		dst.HookTimeout = src.HookTimeout
	}
}
