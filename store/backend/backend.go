// Package backend constructs a store.Store from configuration or from a
// grove database handle.
package backend

import (
	"context"
	"fmt"

	"github.com/xraph/grove"

	"github.com/xraph/cashledger/config"
	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/store/memory"
	"github.com/xraph/cashledger/store/postgres"
	"github.com/xraph/cashledger/store/sqlite"
)

// Grove driver names.
const (
	groveDriverPostgres = "pg"
	groveDriverSQLite   = "sqlite"
)

// Open opens the store selected by cfg.Driver. An empty driver selects
// the memory store.
func Open(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DSN)
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case config.DriverMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("backend: unknown store driver %q", cfg.Driver)
	}
}

// FromGrove wraps an open grove database in the store matching its
// driver. The store takes ownership of db.
func FromGrove(db *grove.DB) (store.Store, error) {
	if db == nil {
		return nil, fmt.Errorf("backend: nil grove database")
	}
	switch name := db.Driver().Name(); name {
	case groveDriverPostgres:
		return postgres.New(db), nil
	case groveDriverSQLite:
		return sqlite.New(db), nil
	default:
		return nil, fmt.Errorf("backend: unsupported grove driver %q", name)
	}
}
