package store

import (
	"context"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/transaction"
)

// Store is the unified storage interface for all cashledger entities.
type Store interface {
	transaction.Store
	payment.Store
	recurrence.Store
	party.Store

	// InTx runs fn inside one unit of work. If fn returns an error every
	// write made through tx is discarded; otherwise all of them persist.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the view of the store inside a unit of work. The Lock methods
// hold an entity-scoped lock until the unit of work ends, so concurrent
// callers touching the same transaction or recurrence are serialized
// while different entities proceed in parallel.
type Tx interface {
	transaction.Store
	payment.Store
	recurrence.Store

	// GetParty reads a party for counterparty checks.
	GetParty(ctx context.Context, partyID id.PartyID) (*party.Party, error)

	LockTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error)
	LockRecurrence(ctx context.Context, recID id.RecurrenceID) (*recurrence.Recurrence, error)
}
