package cashledger_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/payment"
	"github.com/xraph/cashledger/recurrence"
	"github.com/xraph/cashledger/store/memory"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// TestDocumentationExamples verifies that the package documentation examples work.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		l := cashledger.New(store,
			cashledger.WithLogger(slog.Default()),
			cashledger.WithClock(cashledger.NewFixedClock(types.MustParseDate("2026-02-01"))),
			cashledger.WithScheduler(0, 0, 0),
		)

		ctx := context.Background()
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Stop()

		txn, err := l.CreateTransaction(ctx, cashledger.CreateTransactionInput{
			StoreID:     "store-1",
			Kind:        transaction.KindReceivable,
			Description: "Order #1042",
			Amount:      cashledger.BRL(10000),
			DueDate:     types.MustParseDate("2026-02-10"),
		})
		if err != nil {
			t.Fatal(err)
		}

		res, err := l.ApplyPayment(ctx, cashledger.ApplyPaymentInput{
			StoreID:       "store-1",
			TransactionID: txn.ID,
			Amount:        cashledger.BRL(4000),
			Method:        payment.MethodPix,
		})
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("outstanding: %s\n", res.Transaction.Outstanding())

		rec, err := l.CreateRecurrence(ctx, cashledger.CreateRecurrenceInput{
			StoreID:   "store-1",
			Kind:      transaction.KindPayable,
			Amount:    cashledger.BRL(250000),
			Frequency: recurrence.FrequencyMonthly,
			StartDate: types.MustParseDate("2026-01-31"),
		})
		if err != nil {
			t.Fatal(err)
		}

		adv, err := l.AdvanceRecurrence(ctx, "store-1", rec.ID, l.Today())
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("materialized %d, next due %s\n", len(adv.Created), adv.Recurrence.NextDueDate)
	})

	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.BRL(4900)   // R$49.00
		_ = types.USD(9900)   // $99.00
		_ = types.Zero("brl") // R$0.00

		// Arithmetic
		m1 := types.BRL(100)
		m2 := types.BRL(200)
		_ = m1.Add(m2)      // R$3.00
		_ = m2.Subtract(m1) // R$1.00

		// Comparison
		if m1.LessThan(m2) {
			// m1 is less than m2
		}

		// Formatting
		_ = m1.String()      // "R$1.00"
		_ = m1.FormatMajor() // "1.00"
	})
}
