// Package report aggregates transactions into balances, aging buckets and
// totals. Every function here is pure: callers load the transactions and
// pass the as-of date, so statuses are always derived at query time.
package report

import (
	"sort"

	"github.com/xraph/cashledger/transaction"
	"github.com/xraph/cashledger/types"
)

// Bucket is an aging band measured in days past due.
type Bucket string

const (
	BucketCurrent Bucket = "current"
	Bucket1To30   Bucket = "1-30"
	Bucket31To60  Bucket = "31-60"
	Bucket61To90  Bucket = "61-90"
	BucketOver90  Bucket = "90+"
)

// Buckets lists every aging band in display order.
var Buckets = []Bucket{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}

// BucketFor places t in its aging band as of the given date.
func BucketFor(t *transaction.Transaction, asOf types.Date) Bucket {
	days := t.DaysOverdue(asOf)
	switch {
	case days == 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// GroupBy selects the dimension Balances groups by.
type GroupBy string

const (
	GroupByKind         GroupBy = "kind"
	GroupByCategory     GroupBy = "category"
	GroupByCostCenter   GroupBy = "cost_center"
	GroupByCounterparty GroupBy = "counterparty"
)

// IsValid reports whether g is a known dimension.
func (g GroupBy) IsValid() bool {
	switch g {
	case GroupByKind, GroupByCategory, GroupByCostCenter, GroupByCounterparty:
		return true
	}
	return false
}

func (g GroupBy) key(t *transaction.Transaction) string {
	switch g {
	case GroupByCategory:
		return t.Category
	case GroupByCostCenter:
		return t.CostCenter
	case GroupByCounterparty:
		return t.CounterpartyID.String()
	default:
		return string(t.Kind)
	}
}

// AgingRow is one band of an aging report.
type AgingRow struct {
	Bucket      Bucket      `json:"bucket"`
	Count       int         `json:"count"`
	Outstanding types.Money `json:"outstanding"`
}

// Aging is the aging report for one currency.
type Aging struct {
	Currency string      `json:"currency"`
	AsOf     types.Date  `json:"as_of"`
	Rows     []AgingRow  `json:"rows"`
	Total    types.Money `json:"total"`
}

// Balance is the open balance of one group in one currency.
type Balance struct {
	Group       string           `json:"group"`
	Kind        transaction.Kind `json:"kind"`
	Currency    string           `json:"currency"`
	Count       int              `json:"count"`
	Amount      types.Money      `json:"amount"`
	Paid        types.Money      `json:"paid"`
	Outstanding types.Money      `json:"outstanding"`
}

// Totals are the running totals of one kind in one currency.
type Totals struct {
	Kind        transaction.Kind `json:"kind"`
	Currency    string           `json:"currency"`
	Count       int              `json:"count"`
	Amount      types.Money      `json:"amount"`
	Paid        types.Money      `json:"paid"`
	Outstanding types.Money      `json:"outstanding"`
	Overdue     types.Money      `json:"overdue"`
	PaidCount   int              `json:"paid_count"`
}

// open reports whether t still carries a balance.
func open(t *transaction.Transaction) bool {
	return !t.IsCanceled() && !t.IsSettled()
}

// BuildAging buckets the outstanding balance of open transactions, one
// report per currency sorted by currency code. Every band is present even
// when empty.
func BuildAging(txns []*transaction.Transaction, asOf types.Date) []Aging {
	byCurrency := make(map[string]*Aging)
	for _, t := range txns {
		if !open(t) {
			continue
		}
		cur := t.Currency()
		a, ok := byCurrency[cur]
		if !ok {
			a = &Aging{Currency: cur, AsOf: asOf, Total: types.Zero(cur)}
			for _, b := range Buckets {
				a.Rows = append(a.Rows, AgingRow{Bucket: b, Outstanding: types.Zero(cur)})
			}
			byCurrency[cur] = a
		}

		row := &a.Rows[bucketIndex(BucketFor(t, asOf))]
		row.Count++
		row.Outstanding = row.Outstanding.Add(t.Outstanding())
		a.Total = a.Total.Add(t.Outstanding())
	}

	out := make([]Aging, 0, len(byCurrency))
	for _, a := range byCurrency {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

func bucketIndex(b Bucket) int {
	for i, known := range Buckets {
		if known == b {
			return i
		}
	}
	return 0
}

// BuildBalances sums open transactions per group, kind and currency.
// Rows are sorted by kind, group and currency.
func BuildBalances(txns []*transaction.Transaction, by GroupBy) []Balance {
	type key struct {
		group    string
		kind     transaction.Kind
		currency string
	}
	rows := make(map[key]*Balance)
	for _, t := range txns {
		if !open(t) {
			continue
		}
		k := key{group: by.key(t), kind: t.Kind, currency: t.Currency()}
		b, ok := rows[k]
		if !ok {
			b = &Balance{
				Group:       k.group,
				Kind:        k.kind,
				Currency:    k.currency,
				Amount:      types.Zero(k.currency),
				Paid:        types.Zero(k.currency),
				Outstanding: types.Zero(k.currency),
			}
			rows[k] = b
		}
		b.Count++
		b.Amount = b.Amount.Add(t.Amount)
		b.Paid = b.Paid.Add(t.AmountPaid)
		b.Outstanding = b.Outstanding.Add(t.Outstanding())
	}

	out := make([]Balance, 0, len(rows))
	for _, b := range rows {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}

// BuildTotals sums every non-canceled transaction per kind and currency.
// Overdue is the outstanding part of transactions past due at asOf.
func BuildTotals(txns []*transaction.Transaction, asOf types.Date) []Totals {
	type key struct {
		kind     transaction.Kind
		currency string
	}
	rows := make(map[key]*Totals)
	for _, t := range txns {
		if t.IsCanceled() {
			continue
		}
		k := key{kind: t.Kind, currency: t.Currency()}
		tot, ok := rows[k]
		if !ok {
			tot = &Totals{
				Kind:        k.kind,
				Currency:    k.currency,
				Amount:      types.Zero(k.currency),
				Paid:        types.Zero(k.currency),
				Outstanding: types.Zero(k.currency),
				Overdue:     types.Zero(k.currency),
			}
			rows[k] = tot
		}
		tot.Count++
		tot.Amount = tot.Amount.Add(t.Amount)
		tot.Paid = tot.Paid.Add(t.AmountPaid)
		tot.Outstanding = tot.Outstanding.Add(t.Outstanding())
		switch transaction.DeriveStatus(t, asOf) {
		case transaction.StatusOverdue:
			tot.Overdue = tot.Overdue.Add(t.Outstanding())
		case transaction.StatusPaid:
			tot.PaidCount++
		}
	}

	out := make([]Totals, 0, len(rows))
	for _, tot := range rows {
		out = append(out, *tot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}
