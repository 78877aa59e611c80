package projector

import "github.com/ledgerkiro/ledgerkiro/internal/money"

// parseOrZero parses a previously-rendered Money string, defaulting to zero
// for a not-yet-initialized view (empty string).
func parseOrZero(s string, currency money.Currency) money.Money {
	if s == "" {
		return money.Zero(currency)
	}
	m, err := money.Parse(s, currency)
	if err != nil {
		return money.Zero(currency)
	}
	return m
}
