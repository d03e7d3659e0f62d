// Package currency converts stored base-currency prices into a viewer's
// display currency.
package currency

import (
	"fmt"
	"strings"

	"marketplace-catalog/internal/catalog"

	"github.com/shopspring/decimal"
)

type Code string

func ParseCode(raw string) Code {
	return Code(strings.ToUpper(strings.TrimSpace(raw)))
}

// Table is the read-only rate table seeded at startup. Rates are
// multiplicative factors relative to the base currency.
type Table struct {
	base      Code
	fallback  Code
	rates     map[Code]decimal.Decimal
	countries map[string]Code
}

func NewTable(base, fallback Code, rates map[Code]decimal.Decimal, countries map[string]Code) (*Table, error) {
	if base == "" {
		return nil, fmt.Errorf("base currency is required")
	}

	t := &Table{
		base:      base,
		fallback:  fallback,
		rates:     make(map[Code]decimal.Decimal, len(rates)+1),
		countries: make(map[string]Code, len(countries)),
	}
	for code, rate := range rates {
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive, got %s", code, rate)
		}
		t.rates[code] = rate
	}
	t.rates[base] = decimal.NewFromInt(1)

	if t.fallback == "" {
		t.fallback = base
	}
	if _, ok := t.rates[t.fallback]; !ok {
		return nil, fmt.Errorf("fallback currency %s has no rate", t.fallback)
	}

	for country, code := range countries {
		if _, ok := t.rates[code]; !ok {
			return nil, fmt.Errorf("country %s maps to %s which has no rate", country, code)
		}
		t.countries[strings.ToUpper(strings.TrimSpace(country))] = code
	}

	return t, nil
}

func (t *Table) Base() Code     { return t.base }
func (t *Table) Fallback() Code { return t.fallback }

func (t *Table) Supports(code Code) bool {
	_, ok := t.rates[code]
	return ok
}

// Convert returns amount expressed in target. An unknown target returns the
// amount unchanged together with catalog.ErrUnknownCurrency.
func (t *Table) Convert(amount decimal.Decimal, target Code) (decimal.Decimal, error) {
	if target == t.base {
		return amount, nil
	}
	rate, ok := t.rates[target]
	if !ok {
		return amount, fmt.Errorf("%w: %q", catalog.ErrUnknownCurrency, target)
	}
	return amount.Mul(rate), nil
}

// CurrencyForCountry resolves a viewer country to its default display
// currency, or the fallback when the country is absent or unmapped.
func (t *Table) CurrencyForCountry(countryID string) Code {
	if code, ok := t.countries[strings.ToUpper(strings.TrimSpace(countryID))]; ok {
		return code
	}
	return t.fallback
}
