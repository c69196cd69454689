// Package cashledger is a multi-store cash ledger for Go applications:
// payables, receivables and transfers, partial payments, and recurring
// templates that materialize transactions on schedule.
//
// Cashledger is a library first. Import it, hand it a store, and call it
// directly; the api package and cmd/cashledger wrap the same engine in an
// HTTP service.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/cashledger"
//	    "github.com/xraph/cashledger/store/postgres"
//	)
//
//	store, err := postgres.Open(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l := cashledger.New(store)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// A transaction is an amount owed to or by a store, due on a date:
//
//	t, err := l.CreateTransaction(ctx, cashledger.CreateTransactionInput{
//	    StoreID: "store-1",
//	    Kind:    transaction.KindReceivable,
//	    Amount:  cashledger.BRL(10000),
//	    DueDate: types.MustParseDate("2026-02-10"),
//	})
//
// Payments settle it in one or more parts. A payment that would exceed the
// outstanding balance is rejected, however many callers race for it:
//
//	res, err := l.ApplyPayment(ctx, cashledger.ApplyPaymentInput{
//	    StoreID:       "store-1",
//	    TransactionID: t.ID,
//	    Amount:        cashledger.BRL(4000),
//	    Method:        payment.MethodPix,
//	})
//
// Recorded payments are never edited. A mistake is corrected with a
// compensating reversal through ReversePayment.
//
// A recurrence is a template. Advancing it materializes one transaction
// per due date up to the horizon and moves its cursor in the same unit of
// work, so a failed advance leaves nothing behind and a repeated one
// creates nothing new. Monthly and yearly cadences keep their anchor day,
// clamped to short months: Jan 31, Feb 28, Mar 31, Apr 30.
//
// # Status
//
// Status is derived, never set: canceled, then paid, then overdue (strictly
// after the due date), then the workflow flag, then pending. Reads
// re-derive it against the ledger clock.
//
// # Money
//
// Amounts are integers in the currency's minor unit. Arithmetic across
// currencies panics, and every transaction fixes its currency at creation.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	txn_01h2xcejqtf2nbrexx3vqjhp41    // Transaction ID
//	pay_01h2xcejqtf2nbrexx3vqjhp41    // Payment ID
//	rec_01h455vb4pex5vsknk084sn02q    // Recurrence ID
//	party_01h455vb4pex5vsknk084sn02q  // Party ID
package cashledger
