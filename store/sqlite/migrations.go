package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/grove/migrate"

	// registers the "sqlite" migration executor
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"

	"github.com/xraph/cashledger"
)

// Migrations is the grove migration group for the cashledger store.
var Migrations = migrate.NewGroup("cashledger")

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("%w: create executor: %w", cashledger.ErrMigrationFailed, err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", cashledger.ErrMigrationFailed, err)
	}
	return nil
}

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_cashledger_parties",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cashledger_parties (
    id          TEXT PRIMARY KEY,
    store_id    TEXT NOT NULL,
    kind        TEXT NOT NULL,
    name        TEXT NOT NULL,
    document    TEXT NOT NULL DEFAULT '',
    email       TEXT NOT NULL DEFAULT '',
    phone       TEXT NOT NULL DEFAULT '',
    notes       TEXT NOT NULL DEFAULT '',
    archived    INTEGER NOT NULL DEFAULT 0,
    metadata    TEXT NOT NULL DEFAULT '{}',
    created_by  TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cashledger_parties_store ON cashledger_parties (store_id, name);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cashledger_parties`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_cashledger_recurrences",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cashledger_recurrences (
    id              TEXT PRIMARY KEY,
    store_id        TEXT NOT NULL,
    kind            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    amount          INTEGER NOT NULL CHECK (amount > 0),
    currency        TEXT NOT NULL,
    frequency       TEXT NOT NULL,
    status          TEXT NOT NULL,
    start_date      TEXT NOT NULL,
    end_date        TEXT,
    next_due_date   TEXT NOT NULL,
    anchor_day      INTEGER NOT NULL DEFAULT 0,
    counterparty_id TEXT REFERENCES cashledger_parties (id),
    category        TEXT NOT NULL DEFAULT '',
    cost_center     TEXT NOT NULL DEFAULT '',
    tags            TEXT NOT NULL DEFAULT '[]',
    occurrences     INTEGER NOT NULL DEFAULT 0,
    last_run_on     TEXT,
    metadata        TEXT NOT NULL DEFAULT '{}',
    created_by      TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cashledger_recurrences_store ON cashledger_recurrences (store_id, next_due_date);
CREATE INDEX IF NOT EXISTS idx_cashledger_recurrences_due ON cashledger_recurrences (status, next_due_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cashledger_recurrences`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_cashledger_transactions",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cashledger_transactions (
    id              TEXT PRIMARY KEY,
    store_id        TEXT NOT NULL,
    kind            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    amount          INTEGER NOT NULL CHECK (amount > 0),
    amount_paid     INTEGER NOT NULL DEFAULT 0 CHECK (amount_paid >= 0 AND amount_paid <= amount),
    currency        TEXT NOT NULL,
    due_date        TEXT NOT NULL,
    paid_date       TEXT,
    counterparty_id TEXT REFERENCES cashledger_parties (id),
    category        TEXT NOT NULL DEFAULT '',
    cost_center     TEXT NOT NULL DEFAULT '',
    tags            TEXT NOT NULL DEFAULT '[]',
    workflow        TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    recurrence_id   TEXT REFERENCES cashledger_recurrences (id),
    canceled_at     TEXT,
    cancel_reason   TEXT NOT NULL DEFAULT '',
    metadata        TEXT NOT NULL DEFAULT '{}',
    created_by      TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cashledger_transactions_store_due ON cashledger_transactions (store_id, due_date, id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cashledger_transactions_occurrence
    ON cashledger_transactions (recurrence_id, due_date) WHERE recurrence_id IS NOT NULL;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cashledger_transactions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_cashledger_payments",
			Version: "20260101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cashledger_payments (
    id             TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL REFERENCES cashledger_transactions (id),
    store_id       TEXT NOT NULL,
    kind           TEXT NOT NULL,
    amount         INTEGER NOT NULL CHECK (amount > 0),
    currency       TEXT NOT NULL,
    paid_on        TEXT NOT NULL,
    method         TEXT NOT NULL,
    note           TEXT NOT NULL DEFAULT '',
    reverses       TEXT REFERENCES cashledger_payments (id),
    recorded_by    TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cashledger_payments_transaction ON cashledger_payments (transaction_id, created_at, id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cashledger_payments_reverses ON cashledger_payments (reverses) WHERE reverses IS NOT NULL;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cashledger_payments`)
				return err
			},
		},
	)
}
