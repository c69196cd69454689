package extension

import "github.com/xraph/cashledger/config"

// Config holds the cashledger extension configuration. It carries the
// service configuration plus the settings only a host app needs. Fields
// can be set programmatically via Option functions or loaded from YAML
// under the "extensions.cashledger" or "cashledger" keys.
type Config struct {
	config.Config `json:",inline" mapstructure:",squash" yaml:",inline"`

	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, or when WithGroveDatabase was called, the store is built on
	// that database instead of Store.Driver/Store.DSN.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with the service defaults.
func DefaultConfig() Config {
	return Config{Config: config.DefaultConfig()}
}
