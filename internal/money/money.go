// Package money implements a typed decimal amount with currency-checked
// arithmetic, grounded on original_source/src/common/money.rs.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is a closed set of supported settlement currencies. Precision
// (decimal places) is per-currency, matching original_source's precision().
type Currency string

const (
	USD Currency = "USD"
	TWD Currency = "TWD"
)

var ErrInvalidCurrency = errors.New("money: invalid currency")

// Precision returns the number of decimal places used when formatting an
// amount in this currency.
func (c Currency) Precision() int32 {
	switch c {
	case TWD:
		return 0
	default:
		return 2
	}
}

func (c Currency) Valid() bool {
	switch c {
	case USD, TWD:
		return true
	default:
		return false
	}
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}

// ErrCurrencyMismatch is returned instead of panicking (unlike the Rust
// source, which panics on cross-currency Add/Sub) because arithmetic here
// may be driven by untrusted request input.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money pairs a decimal amount with its currency. The zero value is not a
// valid Money (use New or Zero).
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

func New(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

func Zero(currency Currency) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// Parse builds a Money from a decimal string, as received over the wire.
func Parse(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("money: invalid amount %q: %w", amount, err)
	}
	return Money{Amount: d, Currency: currency}, nil
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Cmp compares two Money values of the same currency: -1, 0, 1. Comparison
// across currencies is undefined, so it errors rather than silently ordering
// by amount alone.
func (m Money) Cmp(other Money) (int, error) {
	if m.Currency != other.Currency {
		return 0, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return m.Amount.Cmp(other.Amount), nil
}

func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// String formats the amount at the currency's precision, e.g. "50.00" for
// USD, "50" for TWD.
func (m Money) String() string {
	return m.Amount.StringFixed(m.Currency.Precision())
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	m.Amount = d
	return nil
}
