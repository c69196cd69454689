package types

import "sort"

// Currency describes an ISO 4217 currency the ledger can hold.
type Currency struct {
	Code     string
	Exponent int // number of minor-unit digits
	Symbol   string
}

// Amount columns are NUMERIC(18,2), so no registered currency may use
// more than two minor digits.
var currencies = map[string]Currency{
	"BRL": {Code: "BRL", Exponent: 2, Symbol: "R$"},
	"USD": {Code: "USD", Exponent: 2, Symbol: "$"},
	"EUR": {Code: "EUR", Exponent: 2, Symbol: "€"},
	"GBP": {Code: "GBP", Exponent: 2, Symbol: "£"},
	"CAD": {Code: "CAD", Exponent: 2, Symbol: "C$"},
	"AUD": {Code: "AUD", Exponent: 2, Symbol: "A$"},
	"CHF": {Code: "CHF", Exponent: 2, Symbol: "CHF "},
	"JPY": {Code: "JPY", Exponent: 0, Symbol: "¥"},
	"CLP": {Code: "CLP", Exponent: 0, Symbol: "CLP$"},
}

// LookupCurrency returns the registered currency for code.
func LookupCurrency(code string) (Currency, bool) {
	c, ok := currencies[NormalizeCurrency(code)]
	return c, ok
}

// KnownCurrencies returns every registered currency code, sorted.
func KnownCurrencies() []string {
	codes := make([]string, 0, len(currencies))
	for code := range currencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// MaxIntegerDigits is the number of major-unit digits an amount may carry.
// NUMERIC(18,2) leaves sixteen digits left of the point.
const MaxIntegerDigits = 16

// MaxAmount returns the largest amount, in minor units, the ledger stores
// for currency.
func MaxAmount(currency string) int64 {
	n := int64(1)
	for range MaxIntegerDigits + currencyExponent(NormalizeCurrency(currency)) {
		n *= 10
	}
	return n - 1
}

func currencySymbol(code string) string {
	if c, ok := currencies[code]; ok {
		return c.Symbol
	}
	return code + " "
}

func currencyExponent(code string) int {
	if c, ok := currencies[code]; ok {
		return c.Exponent
	}
	return 2
}
