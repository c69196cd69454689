// Package types provides common value types used across cashledger.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in the smallest currency unit.
// All arithmetic is integer-only; no floating point.
//
// Examples:
//   - BRL(4900) = R$49.00 (4900 centavos)
//   - USD(19900) = $199.00 (19900 cents)
//   - JPY(100) = ¥100 (no minor unit)
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (cents, centavos, etc)
	Currency string `json:"currency"` // ISO 4217 upper-case: "BRL", "USD"
}

// BRL creates a Money value in Brazilian Reais (centavos).
func BRL(centavos int64) Money { return Money{Amount: centavos, Currency: "BRL"} }

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "USD"} }

// EUR creates a Money value in Euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "EUR"} }

// JPY creates a Money value in Japanese Yen (no decimal).
func JPY(yen int64) Money { return Money{Amount: yen, Currency: "JPY"} }

// New creates a Money value in the given currency. The code is upper-cased.
func New(minor int64, currency string) Money {
	return Money{Amount: minor, Currency: NormalizeCurrency(currency)}
}

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Amount: 0, Currency: NormalizeCurrency(currency)} }

// NormalizeCurrency trims and upper-cases an ISO currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Negate returns the negative of the Money value.
func (m Money) Negate() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// SameCurrency reports whether both values carry the same currency code.
func (m Money) SameCurrency(other Money) bool { return m.Currency == other.Currency }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// LessThan returns true if this Money is less than other. Panics if currencies don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount < other.Amount
}

// GreaterThan returns true if this Money is greater than other. Panics if currencies don't match.
func (m Money) GreaterThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount > other.Amount
}

// Decimal returns the value in major units as an exact decimal,
// e.g. BRL(10050) -> 100.50.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -int32(currencyExponent(m.Currency)))
}

// FormatMajor returns the major unit string without currency symbol.
// "49.00" for BRL(4900), "100" for JPY(100).
func (m Money) FormatMajor() string {
	return m.Decimal().StringFixed(int32(currencyExponent(m.Currency)))
}

// String returns a human-readable string with currency symbol.
// Examples: "R$49.00", "$199.00", "¥100"
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. The display field is ignored.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Amount = raw.Amount
	m.Currency = NormalizeCurrency(raw.Currency)
	return nil
}

// MoneyFromDecimal converts a major-unit decimal into Money. It fails when
// the value carries more fractional digits than the currency allows, so no
// rounding ever happens silently.
func MoneyFromDecimal(d decimal.Decimal, currency string) (Money, error) {
	currency = NormalizeCurrency(currency)
	exp := int32(currencyExponent(currency))
	shifted := d.Shift(exp)
	if !shifted.Equal(shifted.Truncate(0)) {
		return Money{}, fmt.Errorf("money: %s has more than %d fractional digits for %s", d.String(), exp, currency)
	}
	if !shifted.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("money: %s overflows minor units", d.String())
	}
	return Money{Amount: shifted.IntPart(), Currency: currency}, nil
}

// ParseMoney parses a major-unit decimal string such as "100.50".
func ParseMoney(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return MoneyFromDecimal(d, currency)
}

// Sum calculates the sum of multiple Money values. All must have the same
// currency. The empty sum is zero in the given fallback currency.
func Sum(currency string, values ...Money) Money {
	result := Zero(currency)
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// assertSameCurrency panics if currencies don't match.
func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}
