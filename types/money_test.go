package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"BRL", BRL(4900), 4900, "BRL", "R$49.00"},
		{"USD", USD(19900), 19900, "USD", "$199.00"},
		{"EUR", EUR(7550), 7550, "EUR", "€75.50"},
		{"JPY", JPY(100), 100, "JPY", "¥100"},
		{"New lower-case", New(2500, "cad"), 2500, "CAD", "C$25.00"},
		{"New padded", New(1, " gbp "), 1, "GBP", "£0.01"},
		{"Zero BRL", Zero("brl"), 0, "BRL", "R$0.00"},
		{"Unknown currency", New(1234, "XYZ"), 1234, "XYZ", "XYZ 12.34"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return BRL(100).Add(BRL(200)) }, BRL(300)},
		{"Subtract", func() Money { return BRL(500).Subtract(BRL(200)) }, BRL(300)},
		{"Negate", func() Money { return BRL(100).Negate() }, BRL(-100)},
		{"Sum", func() Money { return Sum("BRL", BRL(4000), BRL(6000)) }, BRL(10000)},
		{"Sum empty", func() Money { return Sum("usd") }, USD(0)},
		{"No drift over many cents", func() Money {
			total := Zero("BRL")
			for range 1000 {
				total = total.Add(BRL(1))
			}
			return total
		}, BRL(1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	_ = BRL(100).Add(USD(100))
}

func TestMoneyComparisons(t *testing.T) {
	a := BRL(100)
	b := BRL(200)

	if !a.LessThan(b) {
		t.Error("100 should be less than 200")
	}
	if !b.GreaterThan(a) {
		t.Error("200 should be greater than 100")
	}
	if a.Equal(USD(100)) {
		t.Error("different currencies should not be equal")
	}
	if !a.SameCurrency(b) {
		t.Error("expected same currency")
	}
	if !Zero("BRL").IsZero() || !a.IsPositive() || !a.Negate().IsNegative() {
		t.Error("sign predicates disagree with amount")
	}
}

func TestMoneyDecimal(t *testing.T) {
	tests := []struct {
		money Money
		want  string
	}{
		{BRL(10050), "100.5"},
		{BRL(-1), "-0.01"},
		{JPY(100), "100"},
	}

	for _, tt := range tests {
		t.Run(tt.money.String(), func(t *testing.T) {
			if got := tt.money.Decimal(); !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Decimal: got %s, want %s", got, tt.want)
			}
		})
	}

	if got := BRL(10050).FormatMajor(); got != "100.50" {
		t.Errorf("FormatMajor: got %s, want 100.50", got)
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		input    string
		currency string
		want     Money
		wantErr  bool
	}{
		{"100.50", "BRL", BRL(10050), false},
		{"100", "brl", BRL(10000), false},
		{" 0.01 ", "USD", USD(1), false},
		{"1.005", "BRL", Money{}, true},
		{"1.5", "JPY", Money{}, true},
		{"abc", "BRL", Money{}, true},
		{"99999999999999999999", "BRL", Money{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input+"/"+tt.currency, func(t *testing.T) {
			got, err := ParseMoney(tt.input, tt.currency)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	original := BRL(4900)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw error: %v", err)
	}
	if raw["display"] != "R$49.00" {
		t.Errorf("display: got %v, want R$49.00", raw["display"])
	}

	var decoded Money
	if err := json.Unmarshal([]byte(`{"amount":4900,"currency":"brl"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !decoded.Equal(original) {
		t.Errorf("got %v, want %v", decoded, original)
	}
}

func TestLookupCurrency(t *testing.T) {
	c, ok := LookupCurrency("jpy")
	if !ok {
		t.Fatal("expected JPY to be registered")
	}
	if c.Exponent != 0 {
		t.Errorf("Exponent: got %d, want 0", c.Exponent)
	}
	if _, ok := LookupCurrency("XYZ"); ok {
		t.Error("XYZ should not be registered")
	}

	codes := KnownCurrencies()
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Fatalf("KnownCurrencies not sorted: %v", codes)
		}
	}
}

func TestMaxAmount(t *testing.T) {
	tests := []struct {
		currency string
		want     int64
	}{
		{"BRL", 999_999_999_999_999_999},
		{"usd", 999_999_999_999_999_999},
		{"JPY", 9_999_999_999_999_999},
	}
	for _, tt := range tests {
		if got := MaxAmount(tt.currency); got != tt.want {
			t.Errorf("MaxAmount(%s): got %d, want %d", tt.currency, got, tt.want)
		}
	}

	// sixteen integer digits and two fractional ones, as NUMERIC(18,2)
	if got := New(MaxAmount("BRL"), "BRL").Decimal().String(); got != "9999999999999999.99" {
		t.Errorf("BRL ceiling decimal: got %s", got)
	}
}
