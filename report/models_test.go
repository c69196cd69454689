package report

import (
	"testing"
	"time"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

func txn(kind transaction.Kind, amount, paid types.Money, due string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:         id.NewTransactionID(),
		StoreID:    "store-1",
		Kind:       kind,
		Amount:     amount,
		AmountPaid: paid,
		DueDate:    types.MustParseDate(due),
	}
}

func TestBucketFor(t *testing.T) {
	asOf := types.MustParseDate("2026-06-30")

	tests := []struct {
		due  string
		want Bucket
	}{
		{"2026-07-15", BucketCurrent},
		{"2026-06-30", BucketCurrent},
		{"2026-06-29", Bucket1To30},
		{"2026-05-31", Bucket1To30},
		{"2026-05-30", Bucket31To60},
		{"2026-05-01", Bucket31To60},
		{"2026-04-30", Bucket61To90},
		{"2026-04-01", Bucket61To90},
		{"2026-03-31", BucketOver90},
	}

	for _, tt := range tests {
		t.Run(tt.due, func(t *testing.T) {
			got := BucketFor(txn(transaction.KindPayable, types.BRL(1), types.BRL(0), tt.due), asOf)
			if got != tt.want {
				t.Errorf("BucketFor: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildAging(t *testing.T) {
	canceledAt := time.Now()
	canceled := txn(transaction.KindReceivable, types.BRL(9999), types.BRL(0), "2026-01-01")
	canceled.CanceledAt = &canceledAt

	txns := []*transaction.Transaction{
		txn(transaction.KindReceivable, types.BRL(10000), types.BRL(4000), "2026-07-10"), // current, 6000
		txn(transaction.KindReceivable, types.BRL(5000), types.BRL(0), "2026-06-20"),     // 1-30
		txn(transaction.KindReceivable, types.BRL(3000), types.BRL(0), "2026-01-01"),     // 90+
		txn(transaction.KindReceivable, types.BRL(7000), types.BRL(7000), "2026-01-01"),  // paid, excluded
		txn(transaction.KindReceivable, types.USD(100), types.USD(0), "2026-06-01"),      // 1-30 USD
		canceled,
	}

	reports := BuildAging(txns, types.MustParseDate("2026-06-30"))
	if len(reports) != 2 {
		t.Fatalf("expected 2 currencies, got %d", len(reports))
	}

	brl := reports[0]
	if brl.Currency != "BRL" {
		t.Fatalf("expected BRL first, got %s", brl.Currency)
	}
	if len(brl.Rows) != len(Buckets) {
		t.Fatalf("expected %d rows, got %d", len(Buckets), len(brl.Rows))
	}

	want := map[Bucket]int64{
		BucketCurrent: 6000,
		Bucket1To30:   5000,
		Bucket31To60:  0,
		Bucket61To90:  0,
		BucketOver90:  3000,
	}
	for _, row := range brl.Rows {
		if row.Outstanding.Amount != want[row.Bucket] {
			t.Errorf("%s: got %d, want %d", row.Bucket, row.Outstanding.Amount, want[row.Bucket])
		}
	}
	if brl.Total.Amount != 14000 {
		t.Errorf("Total: got %d, want 14000", brl.Total.Amount)
	}

	if usd := reports[1]; usd.Currency != "USD" || usd.Total.Amount != 100 {
		t.Errorf("USD: got %s %d", usd.Currency, usd.Total.Amount)
	}
}

func TestBuildBalances(t *testing.T) {
	rent := txn(transaction.KindPayable, types.BRL(5000), types.BRL(1000), "2026-06-01")
	rent.Category = "rent"
	rent2 := txn(transaction.KindPayable, types.BRL(5000), types.BRL(0), "2026-07-01")
	rent2.Category = "rent"
	food := txn(transaction.KindPayable, types.BRL(2000), types.BRL(0), "2026-06-10")
	food.Category = "food"
	sale := txn(transaction.KindReceivable, types.BRL(8000), types.BRL(0), "2026-06-10")
	sale.Category = "rent"
	settled := txn(transaction.KindPayable, types.BRL(100), types.BRL(100), "2026-06-10")
	settled.Category = "rent"

	rows := BuildBalances([]*transaction.Transaction{rent, rent2, food, sale, settled}, GroupByCategory)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(rows), rows)
	}

	// payable/food, payable/rent, receivable/rent
	if rows[0].Group != "food" || rows[0].Outstanding.Amount != 2000 {
		t.Errorf("row 0: %+v", rows[0])
	}
	if rows[1].Group != "rent" || rows[1].Kind != transaction.KindPayable ||
		rows[1].Count != 2 || rows[1].Outstanding.Amount != 9000 || rows[1].Paid.Amount != 1000 {
		t.Errorf("row 1: %+v", rows[1])
	}
	if rows[2].Kind != transaction.KindReceivable || rows[2].Outstanding.Amount != 8000 {
		t.Errorf("row 2: %+v", rows[2])
	}
}

func TestBuildTotals(t *testing.T) {
	asOf := types.MustParseDate("2026-06-30")
	txns := []*transaction.Transaction{
		txn(transaction.KindReceivable, types.BRL(10000), types.BRL(10000), "2026-06-01"),
		txn(transaction.KindReceivable, types.BRL(5000), types.BRL(2000), "2026-06-01"),
		txn(transaction.KindReceivable, types.BRL(3000), types.BRL(0), "2026-07-01"),
		txn(transaction.KindPayable, types.BRL(4000), types.BRL(0), "2026-06-30"),
	}

	rows := BuildTotals(txns, asOf)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	payable, receivable := rows[0], rows[1]
	if payable.Kind != transaction.KindPayable || payable.Overdue.Amount != 0 || payable.Outstanding.Amount != 4000 {
		t.Errorf("payable: %+v", payable)
	}
	if receivable.Count != 3 || receivable.PaidCount != 1 {
		t.Errorf("receivable counts: %+v", receivable)
	}
	if receivable.Amount.Amount != 18000 || receivable.Paid.Amount != 12000 || receivable.Outstanding.Amount != 6000 {
		t.Errorf("receivable sums: %+v", receivable)
	}
	if receivable.Overdue.Amount != 3000 {
		t.Errorf("receivable overdue: got %d, want 3000", receivable.Overdue.Amount)
	}
}
