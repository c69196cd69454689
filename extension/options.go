package extension

import (
	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/api"
	"github.com/xraph/cashledger/config"
	"github.com/xraph/cashledger/plugin"
	"github.com/xraph/cashledger/store"
)

// Option configures the cashledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a cashledger.Option through to the engine.
func WithLedgerOption(opt cashledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithAPIOption passes an api.Option through to the HTTP server.
func WithAPIOption(opt api.Option) Option {
	return func(e *Extension) {
		e.apiOpts = append(e.apiOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, cashledger.WithPlugin(p))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithServiceConfig sets the service part of the configuration, typically
// the result of config.Load.
func WithServiceConfig(cfg config.Config) Option {
	return func(e *Extension) { e.config.Config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for ledger routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithGroveDatabase sets the name of the grove.DB to resolve from the DI container.
// The extension builds the postgres or sqlite store matching the grove driver.
// Pass an empty string to use the default (unnamed) grove.DB.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
